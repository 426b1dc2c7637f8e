package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActionsTotal counts mutation action invocations by action and outcome.
	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "witwaves_actions_total",
		Help: "Total mutation actions by action and outcome",
	}, []string{"action", "outcome"})

	// DatabaseQueryLatency records repository call latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "witwaves_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// ViewInvalidations counts invalidated view keys by key kind.
	ViewInvalidations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "witwaves_view_invalidations_total",
		Help: "Total derived-view invalidations by view kind",
	}, []string{"kind"})

	// ViewCacheLookups counts view cache lookups by result (hit, miss, error).
	ViewCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "witwaves_view_cache_lookups_total",
		Help: "Total view cache lookups by result",
	}, []string{"result"})

	// StorageCleanupFailures counts tolerated object storage cleanup failures.
	StorageCleanupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "witwaves_storage_cleanup_failures_total",
		Help: "Object storage deletions that failed but were tolerated",
	}, []string{"operation"})

	// CounterRepairs counts cached counters repaired by the reconciler.
	CounterRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "witwaves_counter_repairs_total",
		Help: "Cached post counters repaired by reconciliation",
	}, []string{"counter"})

	// ActiveWebSockets tracks open notification sockets.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "witwaves_active_websockets",
		Help: "Open activity notification websocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "witwaves_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// RecordAction counts one action outcome ("success", "invalid", "forbidden", "not_found", "error").
func RecordAction(action, outcome string) {
	ActionsTotal.WithLabelValues(action, outcome).Inc()
}
