package porestats

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"porosity/domain/core"
)

// Thresholds carries every fixed cutoff used by the classification functions.
type Thresholds struct {
	// SevereDiameter: a max pore diameter above it is RED (µm).
	SevereDiameter float64 `yaml:"severe_diameter" json:"severe_diameter"`
	// CautionDiameter: a max pore diameter above it, up to SevereDiameter, is YELLOW (µm).
	CautionDiameter float64 `yaml:"caution_diameter" json:"caution_diameter"`
	// MedianSplit separates FINE from COARSE median diameters (µm).
	MedianSplit float64 `yaml:"median_split" json:"median_split"`
	// HistogramEdges are the inner bucket boundaries, strictly increasing (µm).
	HistogramEdges []float64 `yaml:"histogram_edges" json:"histogram_edges"`
	// LognormalShift is subtracted before the log transform of the lognormal fit.
	LognormalShift float64 `yaml:"lognormal_shift" json:"lognormal_shift"`
	// KDTreeMinPores switches neighbour search to the kd-tree at this pore
	// count. Zero keeps the distance matrix for every sample.
	KDTreeMinPores int `yaml:"kdtree_min_pores" json:"kdtree_min_pores"`
}

// DefaultThresholds returns the cutoffs used for IN718 porosity screening.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SevereDiameter:  200,
		CautionDiameter: 75,
		MedianSplit:     22,
		HistogramEdges:  []float64{50, 100, 150, 200},
		LognormalShift:  0,
		KDTreeMinPores:  5000,
	}
}

// Validate checks the thresholds are internally consistent.
func (t Thresholds) Validate() error {
	if !(t.SevereDiameter > 0) {
		return fmt.Errorf("severe_diameter must be positive, got %v", t.SevereDiameter)
	}
	if t.CautionDiameter < 0 || t.CautionDiameter >= t.SevereDiameter {
		return fmt.Errorf("caution_diameter must be in [0, %v), got %v", t.SevereDiameter, t.CautionDiameter)
	}
	if t.MedianSplit <= 0 {
		return fmt.Errorf("median_split must be positive, got %v", t.MedianSplit)
	}
	if len(t.HistogramEdges) == 0 {
		return fmt.Errorf("histogram_edges must not be empty")
	}
	for i := 1; i < len(t.HistogramEdges); i++ {
		if t.HistogramEdges[i] <= t.HistogramEdges[i-1] {
			return fmt.Errorf("histogram_edges must be strictly increasing at index %d", i)
		}
	}
	if t.HistogramEdges[0] <= 0 {
		return fmt.Errorf("histogram_edges must start above 0")
	}
	if t.KDTreeMinPores < 0 {
		return fmt.Errorf("kdtree_min_pores must not be negative")
	}
	return nil
}

// Warning is the traffic-light label for a sample's largest pore.
type Warning string

const (
	WarningGreen  Warning = "GREEN"
	WarningYellow Warning = "YELLOW"
	WarningRed    Warning = "RED"
)

// SizeWarning labels a max pore diameter: RED above SevereDiameter, YELLOW
// above CautionDiameter up to and including SevereDiameter, GREEN otherwise.
func SizeWarning(maxDiameter float64, t Thresholds) (Warning, error) {
	if math.IsNaN(maxDiameter) || maxDiameter < 0 {
		return "", core.NewInvalidInputError("size warning", fmt.Sprintf("invalid max diameter %v", maxDiameter))
	}
	switch {
	case maxDiameter > t.SevereDiameter:
		return WarningRed, nil
	case maxDiameter > t.CautionDiameter:
		return WarningYellow, nil
	default:
		return WarningGreen, nil
	}
}

// MedianClass buckets a sample by its median pore diameter.
type MedianClass string

const (
	MedianFine   MedianClass = "FINE"
	MedianCoarse MedianClass = "COARSE"
)

// MedianDiameterClass is FINE below MedianSplit and COARSE at or above it.
func MedianDiameterClass(median float64, t Thresholds) (MedianClass, error) {
	if math.IsNaN(median) || median < 0 {
		return "", core.NewInvalidInputError("median diameter class", fmt.Sprintf("invalid median diameter %v", median))
	}
	if median < t.MedianSplit {
		return MedianFine, nil
	}
	return MedianCoarse, nil
}

// Bucket is one half-open histogram range [Lower, Upper). The last bucket has
// Upper = +Inf.
type Bucket struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

type bucketJSON struct {
	Lower float64  `json:"lower"`
	Upper *float64 `json:"upper"`
	Count int      `json:"count"`
	Label string   `json:"label"`
}

// MarshalJSON writes the open upper bound of the last bucket as null.
func (b Bucket) MarshalJSON() ([]byte, error) {
	out := bucketJSON{Lower: b.Lower, Count: b.Count, Label: b.Label()}
	if !math.IsInf(b.Upper, 1) {
		upper := b.Upper
		out.Upper = &upper
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads a null upper bound as +Inf.
func (b *Bucket) UnmarshalJSON(data []byte) error {
	var in bucketJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	b.Lower, b.Count, b.Upper = in.Lower, in.Count, math.Inf(1)
	if in.Upper != nil {
		b.Upper = *in.Upper
	}
	return nil
}

// Label renders the bucket range, e.g. "50-100" or "200+".
func (b Bucket) Label() string {
	lo := strconv.FormatFloat(b.Lower, 'f', -1, 64)
	if math.IsInf(b.Upper, 1) {
		return lo + "+"
	}
	return lo + "-" + strconv.FormatFloat(b.Upper, 'f', -1, 64)
}

// DiameterHistogram counts diameters into len(HistogramEdges)+1 half-open
// buckets starting at 0. Each diameter lands in exactly one bucket, so the
// counts sum to len(diameters).
func DiameterHistogram(diameters []float64, t Thresholds) ([]Bucket, error) {
	edges := t.HistogramEdges
	buckets := make([]Bucket, len(edges)+1)
	lower := 0.0
	for i := range buckets {
		upper := math.Inf(1)
		if i < len(edges) {
			upper = edges[i]
		}
		buckets[i] = Bucket{Lower: lower, Upper: upper}
		lower = upper
	}

	for i, d := range diameters {
		if math.IsNaN(d) || d < 0 {
			return nil, core.NewInvalidInputError("diameter histogram", fmt.Sprintf("invalid diameter %v at index %d", d, i))
		}
		idx := len(edges)
		for j, edge := range edges {
			if d < edge {
				idx = j
				break
			}
		}
		buckets[idx].Count++
	}
	return buckets, nil
}

// LogMaxDiameter is the natural log of the max pore diameter.
func LogMaxDiameter(maxDiameter float64) (float64, error) {
	if !(maxDiameter > 0) {
		return 0, core.NewInvalidInputError("log max diameter", fmt.Sprintf("max diameter must be positive, got %v", maxDiameter))
	}
	return math.Log(maxDiameter), nil
}
