package report

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"porosity/domain/core"
	"porosity/domain/record"
	"porosity/internal/porestats"
)

func refinedRecord(id core.SampleID, maxDiameter float64, warning string) record.Record {
	return record.New(id).
		WithStep(record.ProcessStep{
			Name:    record.HeatTreatmentStep,
			Details: []record.Detail{{Name: record.HeatTreatmentDetail, Scalars: record.Label("YES")}},
		}).
		WithProperties(
			record.Property{Name: porestats.PropMaxDiameter, Scalars: record.Scalar(maxDiameter)},
			record.Property{Name: porestats.PropSizeWarning, Scalars: record.Label(warning)},
		)
}

func TestRowFromRecord(t *testing.T) {
	row, err := RowFromRecord(refinedRecord("P001_B001_A01", 250, "RED"))
	require.NoError(t, err)
	assert.Equal(t, core.BuildID("P001_B001"), row.Build)
	assert.Equal(t, "YES", row.HeatTreated)
	require.NotNil(t, row.MaxDiameter)
	assert.Equal(t, 250.0, *row.MaxDiameter)
	assert.Nil(t, row.MeanDiameter)
	assert.Equal(t, "RED", row.SizeWarning)

	_, err = RowFromRecord(record.Record{})
	assert.ErrorIs(t, err, core.ErrRecordMalformed)
}

func testSummary(t *testing.T) Summary {
	t.Helper()
	var rows []Row
	for _, r := range []record.Record{
		refinedRecord("P002_B001_A02", 50, "GREEN"),
		refinedRecord("P001_B001_A01", 250, "RED"),
		record.New("P001_B001_A03"),
	} {
		row, err := RowFromRecord(r)
		require.NoError(t, err)
		rows = append(rows, row)
	}
	return NewSummary("Porosity summary", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), rows)
}

func TestSummary_Markdown(t *testing.T) {
	s := testSummary(t)
	assert.Equal(t, core.SampleID("P001_B001_A01"), s.Rows[0].SampleID)
	assert.Equal(t, map[string]int{"GREEN": 1, "RED": 1, "": 1}, s.WarningCounts())

	md := string(s.Markdown())
	assert.True(t, strings.HasPrefix(md, "# Porosity summary\n"))
	assert.Contains(t, md, "Generated 2026-01-02T03:04:05Z from 3 samples.")
	assert.Contains(t, md, "Sample set: `"+s.Fingerprint().String()[:12]+"`")
	assert.Contains(t, md, "| RED | 1 |")
	assert.Contains(t, md, "| unclassified | 1 |")
	assert.Contains(t, md, "| P001_B001_A01 | P001_B001 | YES | 250 |")
	assert.Contains(t, md, "| P001_B001_A03 | P001_B001 | - | - |")
}

func TestSummary_FingerprintIgnoresOrder(t *testing.T) {
	s := testSummary(t)
	reversed := Summary{Rows: []Row{s.Rows[2], s.Rows[1], s.Rows[0]}}
	assert.True(t, s.Fingerprint().Equals(reversed.Fingerprint()))
	assert.False(t, s.Fingerprint().Equals(Summary{Rows: s.Rows[:2]}.Fingerprint()))
}

func TestSummary_HTML(t *testing.T) {
	page := string(testSummary(t).HTML())
	assert.Contains(t, page, "<title>Porosity summary</title>")
	assert.Contains(t, page, "<table>")
	assert.Contains(t, page, "P002_B001_A02")
}

func TestSummary_WriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.xlsx")
	require.NoError(t, testSummary(t).WriteXLSX(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Porosity")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "Sample ID", rows[0][0])
	assert.Equal(t, "P001_B001_A01", rows[1][0])
	assert.Equal(t, "250", rows[1][3])
}
