package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"SurgeScreener/internal/model"
)

// Metrics holds the screener's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	units         *prometheus.CounterVec
	fetchDuration prometheus.Histogram
	runDuration   prometheus.Histogram
	runs          prometheus.Counter
	retained      prometheus.Gauge
	universe      prometheus.Gauge
}

// New creates and registers all collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		units: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "screener",
			Name:      "units_total",
			Help:      "Per-ticker evaluation units by outcome.",
		}, []string{"outcome"}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "screener",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of per-ticker series fetches.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "screener",
			Name:      "run_duration_seconds",
			Help:      "Wall time of a full screening run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "screener",
			Name:      "runs_total",
			Help:      "Completed screening runs.",
		}),
		retained: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "screener",
			Name:      "last_run_retained",
			Help:      "Tickers retained by the most recent run.",
		}),
		universe: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "screener",
			Name:      "last_run_universe",
			Help:      "Distinct tickers screened by the most recent run.",
		}),
	}
	m.registry.MustRegister(
		m.units, m.fetchDuration, m.runDuration, m.runs, m.retained, m.universe,
		collectors.NewGoCollector(),
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveFetch records one fetch latency.
func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchDuration.Observe(d.Seconds())
}

// ObserveUnit counts one unit outcome.
func (m *Metrics) ObserveUnit(reason model.DropReason) {
	if m == nil {
		return
	}
	m.units.WithLabelValues(string(reason)).Inc()
}

// ObserveRun records the totals of a finished run.
func (m *Metrics) ObserveRun(summary model.ScreenSummary) {
	if m == nil {
		return
	}
	m.runs.Inc()
	m.runDuration.Observe(summary.Duration.Seconds())
	m.retained.Set(float64(summary.Passed()))
	m.universe.Set(float64(summary.Total))
}
