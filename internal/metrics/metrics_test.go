package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"SurgeScreener/internal/model"
)

func TestMetrics_ObserveUnitAndRun(t *testing.T) {
	m := New()
	m.ObserveUnit(model.ReasonRetained)
	m.ObserveUnit(model.ReasonFetchFailed)
	m.ObserveUnit(model.ReasonFetchFailed)
	m.ObserveFetch(120 * time.Millisecond)
	m.ObserveRun(model.ScreenSummary{
		Total:    3,
		Counts:   map[model.DropReason]int{model.ReasonRetained: 1, model.ReasonFetchFailed: 2},
		Duration: 2 * time.Second,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.units.WithLabelValues("retained")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.units.WithLabelValues("fetch_failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.retained))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.universe))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveUnit(model.ReasonRejected)
		m.ObserveFetch(time.Second)
		m.ObserveRun(model.ScreenSummary{})
	})
	assert.Nil(t, m.Registry())
}
