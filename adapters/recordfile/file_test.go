package recordfile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porosity/domain/core"
	"porosity/domain/record"
)

func TestWriteRead_SingleRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "P001_B001_A01.json")
	r := record.New("P001_B001_A01").WithProperties(record.Property{Name: "max pore diameter", Scalars: record.Scalar(2.5)})

	require.NoError(t, Write(path, r))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "{\n  \""), "two-space indentation")

	got, err := Read(path)
	require.NoError(t, err)
	id, ok := got.SampleID()
	require.True(t, ok)
	assert.Equal(t, core.SampleID("P001_B001_A01"), id)
	p, ok := got.Property("max pore diameter")
	require.True(t, ok)
	v, _ := p.Scalars.Float()
	assert.Equal(t, 2.5, v)
}

func TestWriteAll_ReadAll(t *testing.T) {
	path := filepath.Join(t.TempDir(), "P001_B001-nohough.json")
	records := []record.Record{record.New("P001_B001_A01"), record.New("P001_B001_A02")}
	require.NoError(t, WriteAll(path, records))

	got, err := ReadAll(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	_, err = Read(path)
	assert.ErrorIs(t, err, core.ErrRecordMalformed)

	empty := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, WriteAll(empty, nil))
	got, err = ReadAll(empty)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadAll_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadAll(filepath.Join(dir, "missing.json"))
	assert.True(t, core.IsNotFoundError(err))

	blank := filepath.Join(dir, "blank.json")
	require.NoError(t, os.WriteFile(blank, []byte("  \n"), 0o644))
	_, err = ReadAll(blank)
	assert.ErrorIs(t, err, core.ErrRecordMalformed)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte(`{"ids": [`), 0o644))
	_, err = ReadAll(broken)
	assert.ErrorIs(t, err, core.ErrRecordMalformed)
	assert.Contains(t, err.Error(), "broken.json")
}

func TestWrite_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Write(filepath.Join(dir, "a.json"), record.New("A")))
	require.NoError(t, Write(filepath.Join(dir, "a.json"), record.New("B")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.json", entries[0].Name())
}

func TestReadMergeWrite_KeepsUnmodelledMembers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "P001_B001_A03.json")
	sample := `{
  "category": "system.chemical",
  "chemicalFormula": "NiCrFe",
  "tags": ["IN718", "tensile"],
  "composition": [{"element": "Ni", "idealWeightPercent": {"value": 52.5}}],
  "quantity": {"massPercent": {"value": 100}},
  "ids": [{"name": "Sample ID", "value": "P001_B001_A03", "tags": ["primary"]}],
  "preparation": [{
    "name": "printing",
    "instrument": {"name": "EOS M290"},
    "details": [{"name": "row", "scalars": 3, "units": "index"}]
  }],
  "properties": [{
    "name": "yield strength",
    "scalars": {"value": 1050, "uncertainty": 12},
    "units": "MPa",
    "conditions": [{"name": "Temperature", "scalars": {"value": 650}, "units": "C"}],
    "dataType": "EXPERIMENTAL",
    "references": [{"doi": "10.1/ys"}],
    "method": {"name": "ASTM E8", "instruments": [{"name": "Instron"}]}
  }, {
    "name": "elongation",
    "scalars": [{"value": 10, "minimum": 9}, {"value": 12}],
    "units": "%"
  }]
}`
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))

	base, err := Read(path)
	require.NoError(t, err)
	porosity := record.New("P001_B001_A03").WithProperties(record.Property{Name: "max pore diameter", Scalars: record.Scalar(42)})
	require.NoError(t, Write(path, record.Merge(base, porosity)))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "NiCrFe", got["chemicalFormula"])
	assert.Equal(t, []interface{}{"IN718", "tensile"}, got["tags"])
	assert.NotNil(t, got["composition"])
	assert.NotNil(t, got["quantity"])

	ids := got["ids"].([]interface{})
	assert.Equal(t, []interface{}{"primary"}, ids[0].(map[string]interface{})["tags"])

	step := got["preparation"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"name": "EOS M290"}, step["instrument"])
	detail := step["details"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "index", detail["units"])

	props := got["properties"].([]interface{})
	require.Len(t, props, 3)
	ys := props[0].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"value": 1050.0, "uncertainty": 12.0}, ys["scalars"])
	assert.Equal(t, "EXPERIMENTAL", ys["dataType"])
	assert.Len(t, ys["conditions"], 1)
	assert.Len(t, ys["references"], 1)
	assert.Contains(t, ys["method"], "instruments")

	elongation := props[1].(map[string]interface{})
	assert.Equal(t, 9.0, elongation["scalars"].([]interface{})[0].(map[string]interface{})["minimum"])

	added := props[2].(map[string]interface{})
	assert.Equal(t, "max pore diameter", added["name"])
	assert.Equal(t, map[string]interface{}{"value": 42.0}, added["scalars"])

	// a second pass leaves the file unchanged
	again, err := Read(path)
	require.NoError(t, err)
	require.NoError(t, Write(path, again))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, string(raw), string(second))
}
