// Package report renders porosity summaries of refined sample records as
// Markdown, HTML and XLSX.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/xuri/excelize/v2"

	"porosity/domain/core"
	"porosity/domain/record"
	"porosity/internal/porestats"
)

// Row summarizes one sample
type Row struct {
	SampleID         core.SampleID
	Build            core.BuildID
	HeatTreated      string
	MaxDiameter      *float64
	MeanDiameter     *float64
	MedianDiameter   *float64
	MedianSpacing    *float64
	FractionPorosity *float64
	SizeWarning      string
	MedianClass      string
}

// Summary is the content of one report
type Summary struct {
	Title     string
	Generated time.Time
	Rows      []Row
}

// RowFromRecord extracts the summary fields of a refined record. Records
// without a Sample ID are rejected.
func RowFromRecord(r record.Record) (Row, error) {
	id, ok := r.SampleID()
	if !ok {
		return Row{}, core.NewMalformedRecordError("record", "missing Sample ID")
	}
	row := Row{
		SampleID:         id,
		Build:            id.Build(),
		MaxDiameter:      scalar(r, porestats.PropMaxDiameter),
		MeanDiameter:     scalar(r, porestats.PropMeanDiameter),
		MedianDiameter:   scalar(r, porestats.PropMedianDiameter),
		MedianSpacing:    scalar(r, porestats.PropMedianSpacing),
		FractionPorosity: scalar(r, porestats.PropFractionPorosity),
		SizeWarning:      label(r, porestats.PropSizeWarning),
		MedianClass:      label(r, porestats.PropMedianClass),
	}
	if step, ok := r.Step(record.HeatTreatmentStep); ok {
		if d, ok := step.Detail(record.HeatTreatmentDetail); ok {
			row.HeatTreated, _ = d.Scalars.Text()
		}
	}
	return row, nil
}

func scalar(r record.Record, name string) *float64 {
	p, ok := r.Property(name)
	if !ok {
		return nil
	}
	v, ok := p.Scalars.Float()
	if !ok {
		return nil
	}
	return &v
}

func label(r record.Record, name string) string {
	p, ok := r.Property(name)
	if !ok {
		return ""
	}
	s, _ := p.Scalars.Text()
	return s
}

// NewSummary sorts rows by sample ID
func NewSummary(title string, generated time.Time, rows []Row) Summary {
	sorted := append([]Row(nil), rows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].SampleID < sorted[j].SampleID })
	return Summary{Title: title, Generated: generated, Rows: sorted}
}

// WarningCounts tallies samples per size warning; unclassified samples count
// under "".
func (s Summary) WarningCounts() map[string]int {
	counts := make(map[string]int)
	for _, r := range s.Rows {
		counts[r.SizeWarning]++
	}
	return counts
}

// Fingerprint identifies the sample set independent of row order, so two
// reports over the same samples can be matched up.
func (s Summary) Fingerprint() core.Hash {
	ids := make([]core.SampleID, len(s.Rows))
	for i, r := range s.Rows {
		ids[i] = r.SampleID
	}
	return core.ComputeBatchHash(ids)
}

var columns = []string{
	"Sample ID", "Build", "Heat treated", "Max diameter (µm)", "Mean diameter (µm)",
	"Median diameter (µm)", "Median spacing (µm)", "Fraction porosity", "Size warning", "Median class",
}

func (r Row) cells() []interface{} {
	return []interface{}{
		r.SampleID.String(), r.Build.String(), r.HeatTreated,
		cellValue(r.MaxDiameter), cellValue(r.MeanDiameter), cellValue(r.MedianDiameter),
		cellValue(r.MedianSpacing), cellValue(r.FractionPorosity), r.SizeWarning, r.MedianClass,
	}
}

func cellValue(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func fmtValue(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'g', 6, 64)
}

// Markdown renders the summary as a Markdown document
func (s Summary) Markdown() []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# %s\n\n", s.Title)
	fmt.Fprintf(&b, "Generated %s from %d samples.\n\n", s.Generated.UTC().Format(time.RFC3339), len(s.Rows))
	fmt.Fprintf(&b, "Sample set: `%s`\n\n", s.Fingerprint().String()[:12])

	b.WriteString("## Size warnings\n\n| Warning | Samples |\n|---|---|\n")
	counts := s.WarningCounts()
	for _, w := range []string{string(porestats.WarningGreen), string(porestats.WarningYellow), string(porestats.WarningRed)} {
		fmt.Fprintf(&b, "| %s | %d |\n", w, counts[w])
	}
	if n := counts[""]; n > 0 {
		fmt.Fprintf(&b, "| unclassified | %d |\n", n)
	}

	b.WriteString("\n## Samples\n\n|")
	for _, c := range columns {
		fmt.Fprintf(&b, " %s |", c)
	}
	b.WriteString("\n|")
	for range columns {
		b.WriteString("---|")
	}
	b.WriteString("\n")
	for _, r := range s.Rows {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s | %s | %s | %s |\n",
			r.SampleID, r.Build, dash(r.HeatTreated),
			fmtValue(r.MaxDiameter), fmtValue(r.MeanDiameter), fmtValue(r.MedianDiameter),
			fmtValue(r.MedianSpacing), fmtValue(r.FractionPorosity), dash(r.SizeWarning), dash(r.MedianClass))
	}
	return b.Bytes()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// HTML renders the Markdown report as a complete HTML page
func (s Summary) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: s.Title,
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(s.Markdown(), p, renderer)
}

// WriteXLSX writes the sample table to a workbook
func (s Summary) WriteXLSX(path string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Porosity"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	for i, r := range s.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		cells := r.cells()
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return err
		}
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	return f.SaveAs(path)
}
