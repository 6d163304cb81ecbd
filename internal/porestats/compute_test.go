package porestats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porosity/domain/core"
	"porosity/domain/pore"
	"porosity/domain/record"
)

func TestCompute_Scenario(t *testing.T) {
	part := 1000.0
	m, err := Compute(threePoreSet(), &part, DefaultThresholds())
	require.NoError(t, err)

	assert.Equal(t, 3, m.PoreCount)
	assert.InDeltaSlice(t, []float64{1.2407, 1.2407, 2.4814}, m.Diameters, 1e-4)
	assert.InDeltaSlice(t, []float64{1, 1, 10}, m.NeighborDistances, 1e-12)
	require.NotNil(t, m.MedianDiameter)
	assert.InDelta(t, 1.2407, *m.MedianDiameter, 1e-4)
	require.NotNil(t, m.MaxDiameter)
	assert.InDelta(t, 2.4814, *m.MaxDiameter, 1e-4)
	require.NotNil(t, m.FractionPorosity)
	assert.InDelta(t, 0.01, *m.FractionPorosity, 1e-12)
	assert.Equal(t, WarningGreen, m.SizeWarning)
	assert.Equal(t, MedianFine, m.MedianClass)
	require.NotNil(t, m.Fits.Normal)
	require.NotNil(t, m.Fits.Lognormal)
	assert.NotEmpty(t, m.Fits.Best)
	assert.False(t, m.Degenerate)
	require.Len(t, m.Histogram, 5)
	assert.Equal(t, 3, m.Histogram[0].Count)
}

func TestCompute_NoPartVolumeLeavesFractionOut(t *testing.T) {
	m, err := Compute(threePoreSet(), nil, DefaultThresholds())
	require.NoError(t, err)
	assert.Nil(t, m.FractionPorosity)

	for _, p := range m.Properties() {
		assert.NotEqual(t, PropFractionPorosity, p.Name)
	}
}

func TestCompute_SinglePoreReportsError(t *testing.T) {
	set := pore.NewSet("P001_B001_A02", []pore.Pore{{Centroid: pore.Centroid{X: 1}, Volume: 8}})

	m, err := Compute(set, nil, DefaultThresholds())
	require.Error(t, err)
	assert.True(t, core.IsInvalidInput(err))
	assert.True(t, core.IsFitFailure(err))

	assert.Nil(t, m.NeighborDistances)
	assert.Nil(t, m.MedianSpacing)
	require.NotNil(t, m.MaxDiameter)
	assert.InDelta(t, 2*unitDiameter, *m.MaxDiameter, 1e-12)
}

func TestCompute_EmptySet(t *testing.T) {
	_, err := Compute(pore.NewSet("x", nil), nil, DefaultThresholds())
	assert.True(t, core.IsInvalidInput(err))
}

func TestCompute_NegativeVolumeSkipsDiameterMetrics(t *testing.T) {
	set := pore.NewSet("P001_B001_A03", []pore.Pore{
		{Centroid: pore.Centroid{X: 0}, Volume: 1},
		{Centroid: pore.Centroid{X: 3}, Volume: -1},
	})
	m, err := Compute(set, nil, DefaultThresholds())
	assert.True(t, core.IsInvalidInput(err))
	assert.Nil(t, m.MaxDiameter)
	assert.Empty(t, m.SizeWarning)
	assert.InDeltaSlice(t, []float64{3, 3}, m.NeighborDistances, 1e-12)
}

func TestMetrics_Properties(t *testing.T) {
	part := 600.0
	m, err := Compute(threePoreSet(), &part, DefaultThresholds())
	require.NoError(t, err)

	r := record.New("P001_B001_A01").WithProperties(m.Properties()...)

	for _, name := range []string{
		PropNeighborDistance, PropMedianDiameter, PropMeanDiameter, PropMaxDiameter,
		PropDiameterStdDev, PropMedianSpacing, PropMeanSpacing, PropPoreCount,
		PropFractionPorosity, PropNormalFitR2, PropLognormalFitR2, PropDistribution,
		PropSizeWarning, PropMedianClass, PropLogMaxDiameter,
		PropHistogramPrefix + "0-50", PropHistogramPrefix + "200+",
	} {
		_, ok := r.Property(name)
		assert.True(t, ok, name)
	}

	p, _ := r.Property(PropMaxDiameter)
	assert.Equal(t, UnitMicrometer, p.Units)
	require.NotNil(t, p.Method)
	assert.Equal(t, SoftwareName, p.Method.Software.Name)

	nn, _ := r.Property(PropNeighborDistance)
	values, ok := nn.Scalars.Floats()
	require.True(t, ok)
	assert.InDeltaSlice(t, []float64{1, 1, 10}, values, 1e-12)

	warning, _ := r.Property(PropSizeWarning)
	label, _ := warning.Scalars.Text()
	assert.Equal(t, "GREEN", label)
}

func TestCentroidProperties(t *testing.T) {
	props := CentroidProperties(threePoreSet())
	require.Len(t, props, 4)
	z, ok := props[2].Scalars.Floats()
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0, 10}, z)
	assert.Equal(t, UnitCubicMicrometer, props[3].Units)
}

func TestClassify_FromRefinedRecord(t *testing.T) {
	r := record.New("P001_B001_A01").WithProperties(
		record.Property{Name: PropMaxDiameter, Scalars: record.Scalar(250)},
		record.Property{Name: PropMedianDiameter, Scalars: record.Scalar(30)},
	)

	props, err := Classify(r, DefaultThresholds())
	require.NoError(t, err)
	out := record.New("x").WithProperties(props...)

	w, _ := out.Property(PropSizeWarning)
	label, _ := w.Scalars.Text()
	assert.Equal(t, "RED", label)

	c, _ := out.Property(PropMedianClass)
	label, _ = c.Scalars.Text()
	assert.Equal(t, "COARSE", label)

	_, ok := out.Property(PropLogMaxDiameter)
	assert.True(t, ok)
}

func TestClassify_RejectsLabelledMax(t *testing.T) {
	r := record.New("x").WithProperties(record.Property{Name: PropMaxDiameter, Scalars: record.Label("big")})
	_, err := Classify(r, DefaultThresholds())
	assert.True(t, core.IsInvalidInput(err))
}
