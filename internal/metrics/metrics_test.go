package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.IncrementSample("ingest", OutcomeProcessed)
	m.IncrementSample("ingest", OutcomeProcessed)
	m.IncrementSample("ingest", OutcomeSkipped)
	m.ObserveCompute(120, "RED", 3*time.Millisecond)
	m.ObserveCompute(4, "", time.Millisecond)
	m.ObserveStage("ingest", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SampleOutcome.WithLabelValues("ingest", OutcomeProcessed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SampleOutcome.WithLabelValues("ingest", OutcomeSkipped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SizeWarning.WithLabelValues("RED")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.StageDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementSample("merge", OutcomeFailed)
		m.ObserveStage("merge", time.Second)
		m.ObserveCompute(1, "GREEN", time.Second)
	})
}
