package porestats

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"porosity/domain/core"
)

// Hypothesis names a distribution tested by the probability-plot fit.
type Hypothesis string

const (
	Normal    Hypothesis = "normal"
	Lognormal Hypothesis = "lognormal"
)

// FitOptions tunes DistributionFit
type FitOptions struct {
	// Shift is subtracted from every value before the log transform of the
	// lognormal hypothesis. Ignored for the normal hypothesis.
	Shift float64
}

// FitResult is the outcome of a probability-plot correlation test.
type FitResult struct {
	Hypothesis Hypothesis `json:"hypothesis"`
	Slope      float64    `json:"slope"`
	Intercept  float64    `json:"intercept"`
	R2         float64    `json:"r2"`
	// Scale is exp(mean(ln(x - shift))) for the lognormal hypothesis, zero otherwise.
	Scale float64 `json:"scale,omitempty"`
	N     int     `json:"n"`
}

// FitComparison holds both hypotheses evaluated on the same data. Best is empty
// unless both fits succeeded.
type FitComparison struct {
	Normal    *FitResult `json:"normal,omitempty"`
	Lognormal *FitResult `json:"lognormal,omitempty"`
	Best      Hypothesis `json:"best,omitempty"`
}

// OrderStatisticMedians returns Filliben's estimate of the uniform order
// statistic medians for a sample of size n.
func OrderStatisticMedians(n int) []float64 {
	if n <= 0 {
		return nil
	}
	m := make([]float64, n)
	m[n-1] = math.Pow(0.5, 1/float64(n))
	m[0] = 1 - m[n-1]
	for i := 1; i < n-1; i++ {
		m[i] = (float64(i+1) - 0.3175) / (float64(n) + 0.365)
	}
	return m
}

// DistributionFit orders the data, pairs it with the theoretical quantiles of
// the hypothesised distribution, fits a least-squares line and reports its
// slope, intercept and squared correlation. For the lognormal hypothesis the
// data is log-transformed after subtracting opts.Shift and compared with
// normal quantiles.
func DistributionFit(data []float64, h Hypothesis, opts FitOptions) (FitResult, error) {
	if len(data) < 2 {
		return FitResult{}, core.NewFitFailureError(string(h), fmt.Sprintf("need at least 2 points, got %d", len(data)))
	}

	ordered := make([]float64, len(data))
	for i, x := range data {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return FitResult{}, core.NewFitFailureError(string(h), fmt.Sprintf("non-finite value at index %d", i))
		}
		switch h {
		case Normal:
			ordered[i] = x
		case Lognormal:
			shifted := x - opts.Shift
			if shifted <= 0 {
				return FitResult{}, core.NewFitFailureError(string(h), fmt.Sprintf("value %v at index %d is not above shift %v", x, i, opts.Shift))
			}
			ordered[i] = math.Log(shifted)
		default:
			return FitResult{}, core.NewFitFailureError(string(h), "unknown hypothesis")
		}
	}
	sort.Float64s(ordered)

	if stat.Variance(ordered, nil) == 0 {
		return FitResult{}, core.NewFitFailureError(string(h), "all values identical")
	}

	medians := OrderStatisticMedians(len(ordered))
	quantiles := make([]float64, len(medians))
	for i, p := range medians {
		quantiles[i] = distuv.UnitNormal.Quantile(p)
	}

	intercept, slope := stat.LinearRegression(quantiles, ordered, nil, false)
	r := stat.Correlation(quantiles, ordered, nil)

	result := FitResult{
		Hypothesis: h,
		Slope:      slope,
		Intercept:  intercept,
		R2:         r * r,
		N:          len(ordered),
	}
	if h == Lognormal {
		result.Scale = math.Exp(stat.Mean(ordered, nil))
	}
	return result, nil
}

// CompareFits evaluates the normal and lognormal hypotheses on the same data.
// Failures of either fit are joined into the returned error; a successful fit
// is still reported.
func CompareFits(data []float64, opts FitOptions) (FitComparison, error) {
	var cmp FitComparison
	var errs []error

	if fit, err := DistributionFit(data, Normal, opts); err != nil {
		errs = append(errs, err)
	} else {
		cmp.Normal = &fit
	}
	if fit, err := DistributionFit(data, Lognormal, opts); err != nil {
		errs = append(errs, err)
	} else {
		cmp.Lognormal = &fit
	}

	if cmp.Normal != nil && cmp.Lognormal != nil {
		cmp.Best = BestFit(*cmp.Normal, *cmp.Lognormal)
	}
	return cmp, errors.Join(errs...)
}

// fitTieTolerance is how much higher the lognormal R² must be to win; scores
// closer than this are a tie.
const fitTieTolerance = 1e-12

// BestFit returns the hypothesis with the higher R². Scores within
// fitTieTolerance of each other go to normal.
func BestFit(normal, lognormal FitResult) Hypothesis {
	if lognormal.R2 > normal.R2+fitTieTolerance {
		return Lognormal
	}
	return Normal
}
