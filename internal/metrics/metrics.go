package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for per-sample stage results
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Metrics provides observability for the porosity pipeline and API.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Stage durations by stage name
	StageDuration *prometheus.HistogramVec

	// Per-sample outcomes by stage and outcome
	SampleOutcome *prometheus.CounterVec

	// Size warnings assigned to computed samples
	SizeWarning *prometheus.CounterVec

	// Pores per computed sample
	PoreCount prometheus.Histogram

	// Descriptor computation latency
	ComputeLatency prometheus.Histogram
}

// New creates a Metrics instance registered with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the metrics with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "porosity_stage_duration_seconds",
			Help:    "Duration of pipeline stages",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"stage"}),

		SampleOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "porosity_samples_total",
			Help: "Samples handled by each pipeline stage by outcome",
		}, []string{"stage", "outcome"}), // outcome: "processed", "skipped", "failed"

		SizeWarning: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "porosity_size_warnings_total",
			Help: "Pore size warnings assigned to computed samples",
		}, []string{"warning"}),

		PoreCount: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "porosity_pores_per_sample",
			Help:    "Number of pores measured per sample",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),

		ComputeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "porosity_compute_duration_seconds",
			Help:    "Duration of porosity descriptor computation for one sample",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}),
	}
}

// ObserveStage records the duration of a pipeline stage.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageDuration.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// IncrementSample records one sample outcome for a stage.
func (m *Metrics) IncrementSample(stage, outcome string) {
	if m != nil {
		m.SampleOutcome.WithLabelValues(stage, outcome).Inc()
	}
}

// ObserveCompute records one descriptor computation.
func (m *Metrics) ObserveCompute(pores int, warning string, d time.Duration) {
	if m != nil {
		m.PoreCount.Observe(float64(pores))
		m.ComputeLatency.Observe(d.Seconds())
		if warning != "" {
			m.SizeWarning.WithLabelValues(warning).Inc()
		}
	}
}
