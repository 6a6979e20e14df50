package repocache

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the repository cache Prometheus collectors.
// Each instance owns an isolated registry so tests and multiple caches never collide.
type Metrics struct {
	Registry *prometheus.Registry

	AcquisitionsTotal    *prometheus.CounterVec
	InitializedTotal     prometheus.Counter
	FetchesTotal         *prometheus.CounterVec
	FetchDurationSeconds prometheus.Histogram
}

// Acquisition result labels.
const (
	resultSuccess     = "success"
	resultSoftFailure = "soft_failure"
	resultError       = "error"
)

// NewMetrics creates a Metrics instance with all collectors registered.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		AcquisitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openhub_repocache_acquisitions_total",
				Help: "Total repository acquisitions by refresh policy and result.",
			},
			[]string{"policy", "result"},
		),
		InitializedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "openhub_repocache_initialized_total",
				Help: "Total working copies created from scratch.",
			},
		),
		FetchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "openhub_repocache_fetches_total",
				Help: "Total shallow fetches attempted against remotes.",
			},
			[]string{"result"},
		),
		FetchDurationSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "openhub_repocache_fetch_duration_seconds",
				Help:    "Duration of shallow fetches in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
			},
		),
	}

	reg.MustRegister(
		m.AcquisitionsTotal,
		m.InitializedTotal,
		m.FetchesTotal,
		m.FetchDurationSeconds,
	)

	return m
}
