package porestats

import (
	"porosity/domain/core"
	"porosity/domain/pore"
	"porosity/domain/record"
)

// Units attached to record properties
const (
	UnitMicrometer      = `$\mu m$`
	UnitCubicMicrometer = `$\mu m^3$`
)

// Property names written to sample records
const (
	PropCenterOfMassX    = "center of mass X"
	PropCenterOfMassY    = "center of mass Y"
	PropCenterOfMassZ    = "center of mass Z"
	PropPoreVolume       = "pore volume"
	PropNeighborDistance = "neighbor pore distance"
	PropMedianDiameter   = "median pore diameter"
	PropMeanDiameter     = "mean pore diameter"
	PropMaxDiameter      = "max pore diameter"
	PropDiameterStdDev   = "pore diameter stdev"
	PropMedianSpacing    = "median pore spacing"
	PropMeanSpacing      = "mean pore spacing"
	PropPoreCount        = "pore count"
	PropFractionPorosity = "fraction porosity"
	PropNormalFitR2      = "normal fit R2"
	PropLognormalFitR2   = "lognormal fit R2"
	PropDistribution     = "pore diameter distribution"
	PropSizeWarning      = "Pore size warning"
	PropMedianClass      = "median pore diameter class"
	PropLogMaxDiameter   = "log max pore diameter"
	PropHistogramPrefix  = "pore diameter histogram "
)

// Provenance of computed properties
const (
	MethodName      = "porosity"
	SoftwareName    = "tracr"
	SoftwareVersion = "beta"
)

// RefineAllowList names the properties kept when records are refined for
// modelling.
var RefineAllowList = []string{
	PropMaxDiameter,
	PropMeanDiameter,
	PropFractionPorosity,
	PropMedianSpacing,
	PropMedianDiameter,
}

// Method is the provenance attached to computed properties.
func Method() *record.Method {
	return &record.Method{Name: MethodName, Software: &record.Software{Name: SoftwareName, Version: SoftwareVersion}}
}

// CentroidProperties lists the per-pore centroid coordinates and volumes.
func CentroidProperties(set pore.Set) []record.Property {
	method := Method()
	return []record.Property{
		{Name: PropCenterOfMassX, Scalars: record.List(set.Axis('x')), Units: UnitMicrometer, Method: method},
		{Name: PropCenterOfMassY, Scalars: record.List(set.Axis('y')), Units: UnitMicrometer, Method: method},
		{Name: PropCenterOfMassZ, Scalars: record.List(set.Axis('z')), Units: UnitMicrometer, Method: method},
		{Name: PropPoreVolume, Scalars: record.List(set.Volumes()), Units: UnitCubicMicrometer, Method: method},
	}
}

// Properties converts the computed metrics to record properties. Metrics that
// were not computed are left out.
func (m Metrics) Properties() []record.Property {
	method := Method()
	var props []record.Property
	scalar := func(name string, v *float64, units string) {
		if v != nil {
			props = append(props, record.Property{Name: name, Scalars: record.Scalar(*v), Units: units, Method: method})
		}
	}
	label := func(name, v string) {
		if v != "" {
			props = append(props, record.Property{Name: name, Scalars: record.Label(v)})
		}
	}

	if m.NeighborDistances != nil {
		props = append(props, record.Property{Name: PropNeighborDistance, Scalars: record.List(m.NeighborDistances), Units: UnitMicrometer, Method: method})
	}
	scalar(PropMedianDiameter, m.MedianDiameter, UnitMicrometer)
	scalar(PropMeanDiameter, m.MeanDiameter, UnitMicrometer)
	scalar(PropMaxDiameter, m.MaxDiameter, UnitMicrometer)
	scalar(PropDiameterStdDev, m.DiameterStdDev, UnitMicrometer)
	scalar(PropMedianSpacing, m.MedianSpacing, UnitMicrometer)
	scalar(PropMeanSpacing, m.MeanSpacing, UnitMicrometer)
	count := float64(m.PoreCount)
	scalar(PropPoreCount, &count, "")
	scalar(PropFractionPorosity, m.FractionPorosity, "")

	if m.Fits.Normal != nil {
		scalar(PropNormalFitR2, &m.Fits.Normal.R2, "")
	}
	if m.Fits.Lognormal != nil {
		scalar(PropLognormalFitR2, &m.Fits.Lognormal.R2, "")
	}
	label(PropDistribution, string(m.Fits.Best))

	for _, b := range m.Histogram {
		c := float64(b.Count)
		scalar(PropHistogramPrefix+b.Label(), &c, "")
	}

	label(PropSizeWarning, string(m.SizeWarning))
	label(PropMedianClass, string(m.MedianClass))
	scalar(PropLogMaxDiameter, m.LogMaxDiameter, "")
	return props
}

// Classify recomputes the label properties of a refined record from its max
// and median pore diameters, as stored on the record.
func Classify(r record.Record, t Thresholds) ([]record.Property, error) {
	var props []record.Property

	if p, ok := r.Property(PropMaxDiameter); ok {
		maxDiameter, ok := p.Scalars.Float()
		if !ok {
			return nil, errNotScalar(PropMaxDiameter)
		}
		w, err := SizeWarning(maxDiameter, t)
		if err != nil {
			return nil, err
		}
		props = append(props, record.Property{Name: PropSizeWarning, Scalars: record.Label(string(w))})
		logMax, err := LogMaxDiameter(maxDiameter)
		if err != nil {
			return nil, err
		}
		props = append(props, record.Property{Name: PropLogMaxDiameter, Scalars: record.Scalar(logMax)})
	}

	if p, ok := r.Property(PropMedianDiameter); ok {
		median, ok := p.Scalars.Float()
		if !ok {
			return nil, errNotScalar(PropMedianDiameter)
		}
		c, err := MedianDiameterClass(median, t)
		if err != nil {
			return nil, err
		}
		props = append(props, record.Property{Name: PropMedianClass, Scalars: record.Label(string(c))})
	}
	return props, nil
}

func errNotScalar(name string) error {
	return core.NewInvalidInputError("classify", name+" is not a scalar")
}
