package porestats

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"porosity/domain/core"
	"porosity/domain/pore"
)

type reducer func(stats.Float64Data) (float64, error)

func reduce(op string, data []float64, fn reducer) (float64, error) {
	if len(data) == 0 {
		return 0, core.NewInvalidInputError(op, "empty input")
	}
	for i, x := range data {
		if math.IsNaN(x) {
			return 0, core.NewInvalidInputError(op, fmt.Sprintf("NaN at index %d", i))
		}
	}
	v, err := fn(stats.Float64Data(data))
	if err != nil {
		return 0, core.NewInvalidInputError(op, err.Error())
	}
	return v, nil
}

// Median of a non-empty array
func Median(data []float64) (float64, error) {
	return reduce("median", data, stats.Median)
}

// Mean of a non-empty array
func Mean(data []float64) (float64, error) {
	return reduce("mean", data, stats.Mean)
}

// Max of a non-empty array
func Max(data []float64) (float64, error) {
	return reduce("max", data, stats.Max)
}

// StdDev is the population standard deviation of a non-empty array
func StdDev(data []float64) (float64, error) {
	return reduce("standard deviation", data, stats.StandardDeviationPopulation)
}

// MedianPoreDiameter is the median sphere-equivalent diameter of the volumes.
func MedianPoreDiameter(volumes []float64) (float64, error) {
	d, err := SphereEquivalentDiameters(volumes)
	if err != nil {
		return 0, err
	}
	return Median(d)
}

// MeanPoreDiameter is the mean sphere-equivalent diameter of the volumes.
func MeanPoreDiameter(volumes []float64) (float64, error) {
	d, err := SphereEquivalentDiameters(volumes)
	if err != nil {
		return 0, err
	}
	return Mean(d)
}

// MaxPoreDiameter is the largest sphere-equivalent diameter of the volumes.
func MaxPoreDiameter(volumes []float64) (float64, error) {
	d, err := SphereEquivalentDiameters(volumes)
	if err != nil {
		return 0, err
	}
	return Max(d)
}

// MedianPoreSpacing is the median nearest-neighbour distance.
func MedianPoreSpacing(centroids []pore.Centroid) (float64, error) {
	d, err := NearestNeighborDistances(centroids)
	if err != nil {
		return 0, err
	}
	return Median(d)
}

// MeanPoreSpacing is the mean nearest-neighbour distance.
func MeanPoreSpacing(centroids []pore.Centroid) (float64, error) {
	d, err := NearestNeighborDistances(centroids)
	if err != nil {
		return 0, err
	}
	return Mean(d)
}

// FractionPorosity is the summed pore volume over the whole part volume.
func FractionPorosity(volumes []float64, partVolume float64) (float64, error) {
	if len(volumes) == 0 {
		return 0, core.NewInvalidInputError("fraction porosity", "empty input")
	}
	if !(partVolume > 0) || math.IsInf(partVolume, 0) {
		return 0, core.NewInvalidInputError("fraction porosity", fmt.Sprintf("part volume must be positive, got %v", partVolume))
	}
	total, err := reduce("fraction porosity", volumes, stats.Sum)
	if err != nil {
		return 0, err
	}
	if total < 0 {
		return 0, core.NewInvalidInputError("fraction porosity", "negative total pore volume")
	}
	return total / partVolume, nil
}
