package record

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_JSONShapes(t *testing.T) {
	tests := []struct {
		name string
		in   Value
		want string
	}{
		{"scalar", Scalar(1.5), `{"value":1.5}`},
		{"list", List([]float64{1, 10}), `[{"value":1},{"value":10}]`},
		{"label", Label("RED"), `"RED"`},
		{"none", Value{}, `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.in)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))

			var back Value
			require.NoError(t, json.Unmarshal(data, &back))
			assert.True(t, tt.in.Equal(back))
		})
	}
}

func TestValue_AcceptsLooseInput(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`12`), &v))
	f, ok := v.Float()
	assert.True(t, ok)
	assert.Equal(t, 12.0, f)

	require.NoError(t, json.Unmarshal([]byte(`{"value":"A"}`), &v))
	s, ok := v.Text()
	assert.True(t, ok)
	assert.Equal(t, "A", s)

	require.NoError(t, json.Unmarshal([]byte(`{"value":"7"}`), &v))
	f, ok = v.Float()
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	assert.Error(t, json.Unmarshal([]byte(`[{"value":"x"}]`), &v))
}

func TestWithProperties_ReplacesByNameAndAppends(t *testing.T) {
	base := New("P001_B001_A01").WithProperties(
		Property{Name: "yield strength", Scalars: Scalar(900), Units: "MPa"},
		Property{Name: "max pore diameter", Scalars: Scalar(10)},
	)

	merged := base.WithProperties(
		Property{Name: "max pore diameter", Scalars: Scalar(42)},
		Property{Name: "pore count", Scalars: Scalar(3)},
	)

	require.Len(t, merged.Properties, 3)
	assert.Equal(t, "yield strength", merged.Properties[0].Name)
	got, _ := merged.Properties[1].Scalars.Float()
	assert.Equal(t, 42.0, got)
	assert.Equal(t, "pore count", merged.Properties[2].Name)

	// base is untouched
	old, _ := base.Properties[1].Scalars.Float()
	assert.Equal(t, 10.0, old)
	assert.Len(t, base.Properties, 2)
}

func TestMerge_KeepsBaseIdentity(t *testing.T) {
	base := New("P001_B001_A01").WithStep(ProcessStep{Name: "printing"})
	overlay := New("other").WithProperties(Property{Name: "pore count", Scalars: Scalar(5)})

	merged := Merge(base, overlay)
	id, ok := merged.SampleID()
	require.True(t, ok)
	assert.Equal(t, "P001_B001_A01", id.String())
	_, ok = merged.Step("printing")
	assert.True(t, ok)
	_, ok = merged.Property("pore count")
	assert.True(t, ok)
}

func TestRefine_FiltersAllowList(t *testing.T) {
	r := New("P001_B001_A01").
		WithStep(ProcessStep{Name: "printing", Details: []Detail{{Name: "row", Scalars: Scalar(3)}}}).
		WithProperties(
			Property{Name: "center of mass X", Scalars: List([]float64{1, 2})},
			Property{Name: "max pore diameter", Scalars: Scalar(10)},
			Property{Name: "median pore diameter", Scalars: Scalar(4)},
		)
	r.Names = []string{"IN718"}

	refined := Refine(r, []string{"median pore diameter", "max pore diameter", "fraction porosity"})

	require.Len(t, refined.Properties, 2)
	assert.Equal(t, "max pore diameter", refined.Properties[0].Name)
	assert.Equal(t, "median pore diameter", refined.Properties[1].Name)
	assert.Equal(t, []string{"IN718"}, refined.Names)
	step, ok := refined.Step("printing")
	require.True(t, ok)
	_, ok = step.Detail("row")
	assert.True(t, ok)
	assert.Len(t, r.Properties, 3)
}

func TestRecord_JSONRoundTripPreservesReferences(t *testing.T) {
	in := `{
		"category": "system.chemical",
		"ids": [{"name": "Sample ID", "value": "P002_B001_C12"}],
		"references": [{"doi": "10.1/abc"}],
		"preparation": [{"name": "printing", "details": [{"name": "row", "scalars": 12}, {"name": "column", "scalars": "C"}]}],
		"properties": [{"name": "max pore diameter", "scalars": {"value": 88.5}, "units": "$\\mu m$"}]
	}`

	var r Record
	require.NoError(t, json.Unmarshal([]byte(in), &r))
	id, ok := r.SampleID()
	require.True(t, ok)
	assert.Equal(t, "P002_B001_C12", id.String())

	step, _ := r.Step("printing")
	col, _ := step.Detail("column")
	label, _ := col.Scalars.Text()
	assert.Equal(t, "C", label)

	out, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"doi":"10.1/abc"`)
}

func TestValue_KeepsUncertainty(t *testing.T) {
	var v Value
	require.NoError(t, json.Unmarshal([]byte(`{"value": 1050, "uncertainty": 12}`), &v))
	f, ok := v.Float()
	require.True(t, ok)
	assert.Equal(t, 1050.0, f)
	assert.True(t, v.Equal(Scalar(1050)))

	out, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":1050,"uncertainty":12}`, string(out))

	// plain objects are still written in the canonical shape
	require.NoError(t, json.Unmarshal([]byte(`{ "value" : 3 }`), &v))
	out, err = json.Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"value":3}`, string(out))
}

func TestProperty_UnmodelledMembersSurviveRefine(t *testing.T) {
	in := `{
		"chemicalFormula": "NiCrFe",
		"ids": [{"name": "Sample ID", "value": "P001_B001_A01"}],
		"properties": [
			{"name": "max pore diameter", "scalars": {"value": 80}, "dataType": "EXPERIMENTAL", "tags": ["ct"]},
			{"name": "center of mass X", "scalars": [{"value": 1}]}
		]
	}`
	var r Record
	require.NoError(t, json.Unmarshal([]byte(in), &r))
	assert.Contains(t, r.Extra, "chemicalFormula")
	assert.NotContains(t, r.Extra, "ids")

	refined := Refine(r, []string{"max pore diameter"})
	out, err := json.Marshal(refined)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"ids": [{"name": "Sample ID", "value": "P001_B001_A01"}],
		"properties": [{"name": "max pore diameter", "scalars": {"value": 80}, "dataType": "EXPERIMENTAL", "tags": ["ct"]}],
		"chemicalFormula": "NiCrFe"
	}`, string(out))
}

func TestFields_KnownNamesNeverDuplicated(t *testing.T) {
	p := Property{Name: "pore count", Scalars: Scalar(3), Extra: Fields{"name": json.RawMessage(`"shadow"`), "tags": json.RawMessage(`[]`)}}
	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"pore count","scalars":{"value":3},"tags":[]}`, string(out))
}
