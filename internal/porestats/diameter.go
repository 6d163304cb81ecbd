// Package porestats derives porosity descriptors from per-pore measurements.
//
// Every function is pure: inputs are never modified, nothing is cached and no
// I/O happens here. Failures are returned as errors wrapping
// core.ErrInvalidInput or core.ErrFitFailure; a failing metric is never
// replaced by a default value.
package porestats

import (
	"fmt"
	"math"

	"porosity/domain/core"
)

// SphereEquivalentDiameter returns the diameter of the sphere with volume v,
// (6v/π)^(1/3). A negative volume yields NaN.
func SphereEquivalentDiameter(v float64) float64 {
	if v < 0 {
		return math.NaN()
	}
	return math.Cbrt(6 * v / math.Pi)
}

// SphereEquivalentDiameters converts every volume to its sphere-equivalent
// diameter. Negative volumes map to NaN and are reported together in the
// returned error; the remaining diameters are still computed.
func SphereEquivalentDiameters(volumes []float64) ([]float64, error) {
	diameters := make([]float64, len(volumes))
	var negative []int
	for i, v := range volumes {
		if v < 0 || math.IsNaN(v) {
			negative = append(negative, i)
		}
		diameters[i] = SphereEquivalentDiameter(v)
	}
	if len(negative) > 0 {
		return diameters, core.NewInvalidInputError("sphere equivalent diameter",
			fmt.Sprintf("negative or NaN volume at index %v", negative))
	}
	return diameters, nil
}
