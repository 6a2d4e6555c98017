package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LifecycleTransitions counts request and pickup lifecycle operations by
	// operation name and outcome (ok, conflict, validation, error).
	LifecycleTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recolecta_lifecycle_transitions_total",
		Help: "Total number of lifecycle operations by operation and outcome",
	}, []string{"operation", "outcome"})

	// NotificationFailures counts event publish failures by channel.
	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recolecta_notification_failures_total",
		Help: "Total number of failed event notifications by channel",
	}, []string{"channel"})

	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recolecta_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "recolecta_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ReportCacheHits counts summary report cache lookups by result (hit, miss).
	ReportCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recolecta_report_cache_total",
		Help: "Total number of summary report cache lookups by result",
	}, []string{"result"})

	// EventStreamConnections is the gauge of active event stream connections.
	EventStreamConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "recolecta_event_stream_connections",
		Help: "Number of active WebSocket event stream connections",
	})

	// EventsPublished counts lifecycle events published by kind.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recolecta_events_published_total",
		Help: "Total number of lifecycle events published by kind",
	}, []string{"kind"})
)

const (
	// OutcomeOK marks a successfully committed lifecycle operation.
	OutcomeOK = "ok"
	// OutcomeConflict marks an operation rejected by an optimistic guard.
	OutcomeConflict = "conflict"
	// OutcomeValidation marks an operation rejected by input validation.
	OutcomeValidation = "validation"
	// OutcomeError marks an operation that failed for any other reason.
	OutcomeError = "error"
)

// RecordTransition increments the lifecycle transition counter.
func RecordTransition(operation, outcome string) {
	LifecycleTransitions.WithLabelValues(operation, outcome).Inc()
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
