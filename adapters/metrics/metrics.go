// Package metrics provides Prometheus metrics collection for PathTracker.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds all Prometheus metrics for PathTracker.
type Collector struct {
	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Auth metrics
	AuthFailures *prometheus.CounterVec

	// Ingestion metrics
	EventsIngested  *prometheus.CounterVec
	BatchSize       prometheus.Histogram
	BodiesTruncated *prometheus.CounterVec

	// LLM metrics
	TokensRecorded prometheus.Counter
	CostRecorded   prometheus.Counter

	// Config metrics
	ConfigReloads      prometheus.Counter
	ConfigReloadErrors prometheus.Counter
	ConfigLastReload   prometheus.Gauge
}

// New creates a new metrics collector registered on the default registry.
func New() *Collector {
	return newWith(promauto.With(prometheus.DefaultRegisterer))
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	return newWith(promauto.With(reg))
}

func newWith(factory promauto.Factory) *Collector {
	return &Collector{
		// HTTP metrics
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pathtracker",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "pathtracker",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path", "status"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pathtracker",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),

		// Auth metrics
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pathtracker",
				Name:      "auth_failures_total",
				Help:      "Total number of authentication failures",
			},
			[]string{"reason"},
		),

		// Ingestion metrics
		EventsIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pathtracker",
				Name:      "events_ingested_total",
				Help:      "Total events accepted, by type",
			},
			[]string{"type"},
		),
		BatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "pathtracker",
				Name:      "batch_size",
				Help:      "Number of events per accepted batch",
				Buckets:   []float64{1, 2, 5, 10, 25, 50, 100},
			},
		),
		BodiesTruncated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "pathtracker",
				Name:      "bodies_truncated_total",
				Help:      "Total request/response bodies truncated at ingest",
			},
			[]string{"direction"},
		),

		// LLM metrics
		TokensRecorded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pathtracker",
				Name:      "llm_tokens_recorded_total",
				Help:      "Total LLM tokens recorded across all tenants",
			},
		),
		CostRecorded: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pathtracker",
				Name:      "llm_cost_recorded_usd_total",
				Help:      "Total LLM cost in USD recorded across all tenants",
			},
		),

		// Config metrics
		ConfigReloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pathtracker",
				Name:      "config_reloads_total",
				Help:      "Total number of successful config reloads",
			},
		),
		ConfigReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "pathtracker",
				Name:      "config_reload_errors_total",
				Help:      "Total number of config reload errors",
			},
		),
		ConfigLastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "pathtracker",
				Name:      "config_last_reload_timestamp",
				Help:      "Unix timestamp of last successful config reload",
			},
		),
	}
}

// NormalizePath reduces label cardinality for paths with embedded IDs.
func NormalizePath(path string) string {
	if len(path) > 50 {
		return path[:50] + "..."
	}
	return path
}
