// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Places & routing provider
	MapsRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokotoko_maps_requests_total",
			Help: "Provider requests by operation and outcome",
		},
		[]string{"operation", "outcome"}, // outcome: ok, empty, error, rejected
	)

	MapsRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tokotoko_maps_request_duration_seconds",
			Help:    "Provider request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tokotoko_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	RouteCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokotoko_route_cache_lookups_total",
			Help: "Route cache lookups by result",
		},
		[]string{"result"}, // hit, miss
	)

	// Adventure pipeline
	PipelineItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokotoko_pipeline_items_total",
			Help: "Per-item outcomes of adventure pipeline phases",
		},
		[]string{"phase", "outcome"},
	)

	AdventuresFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tokotoko_adventures_finished_total",
			Help: "Adventure generations by terminal status",
		},
		[]string{"status"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tokotoko_pipeline_duration_seconds",
			Help:    "End-to-end adventure generation time",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		},
	)
)

// ObserveMapsRequest records one provider call.
func ObserveMapsRequest(operation, outcome string, started time.Time) {
	MapsRequests.WithLabelValues(operation, outcome).Inc()
	MapsRequestDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}
