package porestats

import (
	"errors"

	"porosity/domain/core"
	"porosity/domain/pore"
)

// Metrics holds every descriptor derived from one pore set. Scalars that could
// not be computed stay nil; the reason is part of the error returned by
// Compute.
type Metrics struct {
	SampleID  core.SampleID `json:"sample_id"`
	PoreCount int           `json:"pore_count"`

	Diameters         []float64 `json:"diameters,omitempty"`
	NeighborDistances []float64 `json:"neighbor_distances,omitempty"`

	MedianDiameter   *float64 `json:"median_diameter,omitempty"`
	MeanDiameter     *float64 `json:"mean_diameter,omitempty"`
	MaxDiameter      *float64 `json:"max_diameter,omitempty"`
	DiameterStdDev   *float64 `json:"diameter_stdev,omitempty"`
	MedianSpacing    *float64 `json:"median_spacing,omitempty"`
	MeanSpacing      *float64 `json:"mean_spacing,omitempty"`
	FractionPorosity *float64 `json:"fraction_porosity,omitempty"`
	LogMaxDiameter   *float64 `json:"log_max_diameter,omitempty"`

	Fits        FitComparison `json:"fits"`
	SizeWarning Warning       `json:"size_warning,omitempty"`
	MedianClass MedianClass   `json:"median_class,omitempty"`
	Histogram   []Bucket      `json:"histogram,omitempty"`
	Degenerate  bool          `json:"degenerate,omitempty"`
}

func ptr(v float64) *float64 { return &v }

// Compute derives all metrics of set. partVolume is the whole-part volume in
// cubic micrometers, or nil when unknown. The returned Metrics always carries
// whatever succeeded; err joins every metric that failed.
func Compute(set pore.Set, partVolume *float64, t Thresholds) (Metrics, error) {
	m := Metrics{SampleID: set.SampleID, PoreCount: set.Len()}
	if set.Len() == 0 {
		return m, core.NewInvalidInputError("compute", "empty pore set")
	}

	var errs []error
	keep := func(err error) bool {
		if err != nil {
			errs = append(errs, err)
			return false
		}
		return true
	}

	volumes := set.Volumes()
	diameters, err := SphereEquivalentDiameters(volumes)
	if keep(err) {
		m.Diameters = diameters
		if v, err := Median(diameters); keep(err) {
			m.MedianDiameter = ptr(v)
		}
		if v, err := Mean(diameters); keep(err) {
			m.MeanDiameter = ptr(v)
		}
		if v, err := Max(diameters); keep(err) {
			m.MaxDiameter = ptr(v)
		}
		if v, err := StdDev(diameters); keep(err) {
			m.DiameterStdDev = ptr(v)
		}

		fits, err := CompareFits(diameters, FitOptions{Shift: t.LognormalShift})
		keep(err)
		m.Fits = fits

		if buckets, err := DiameterHistogram(diameters, t); keep(err) {
			m.Histogram = buckets
		}
	}

	if m.MaxDiameter != nil {
		if w, err := SizeWarning(*m.MaxDiameter, t); keep(err) {
			m.SizeWarning = w
		}
		if v, err := LogMaxDiameter(*m.MaxDiameter); keep(err) {
			m.LogMaxDiameter = ptr(v)
		}
	}
	if m.MedianDiameter != nil {
		if c, err := MedianDiameterClass(*m.MedianDiameter, t); keep(err) {
			m.MedianClass = c
		}
	}

	if distances, err := NeighborDistances(set.Centroids(), t.KDTreeMinPores); keep(err) {
		m.NeighborDistances = distances
		m.Degenerate = IsDegenerate(distances)
		if v, err := Median(distances); keep(err) {
			m.MedianSpacing = ptr(v)
		}
		if v, err := Mean(distances); keep(err) {
			m.MeanSpacing = ptr(v)
		}
	}

	if partVolume != nil {
		if v, err := FractionPorosity(volumes, *partVolume); keep(err) {
			m.FractionPorosity = ptr(v)
		}
	}

	return m, errors.Join(errs...)
}
