package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Lifecycle metrics
	LifecycleOpsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_lifecycle_ops_total",
			Help: "Total lifecycle operations by op and outcome",
		},
		[]string{"op", "outcome"},
	)

	InstancesByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "burrow_instances_total",
			Help: "Number of instances by status",
		},
		[]string{"status"},
	)

	// Sync loop metrics
	SyncTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_sync_ticks_total",
			Help: "Total sync ticks by outcome (synced, skipped, health_failed, sync_failed)",
		},
		[]string{"outcome"},
	)

	SyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "burrow_sync_duration_seconds",
			Help:    "Duration of backup sync operations",
			Buckets: prometheus.DefBuckets,
		},
	)

	SelfHealsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_self_heals_total",
			Help: "Instances force-stopped after sustained health check failure",
		},
	)

	CrashNotificationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_crash_notifications_total",
			Help: "Container stop notifications received from the runtime",
		},
	)

	// Registry mirror metrics
	MirrorWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "burrow_mirror_writes_total",
			Help: "Fire-and-forget registry mirror writes by outcome",
		},
		[]string{"outcome"},
	)

	// Retry harness metrics
	RetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "burrow_retries_total",
			Help: "Operation attempts retried after a transient error",
		},
	)
)

// Register registers all metrics with the default prometheus registry.
// Call once during startup.
func Register() {
	prometheus.MustRegister(
		LifecycleOpsTotal,
		InstancesByStatus,
		SyncTicksTotal,
		SyncDuration,
		SelfHealsTotal,
		CrashNotificationsTotal,
		MirrorWritesTotal,
		RetriesTotal,
	)
}

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
