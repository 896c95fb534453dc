package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for monitoring the sync agent
var (
	QueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "offline_queue_depth",
			Help: "Number of submissions currently waiting in the offline queue",
		},
	)

	ItemsProcessedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "offline_queue_items_processed_total",
			Help: "Total number of queued submissions delivered successfully",
		},
	)

	ItemsFailedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "offline_queue_items_failed_total",
			Help: "Total number of failed submission attempts",
		},
	)

	PersistFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "offline_queue_persist_failures_total",
			Help: "Total number of local store write failures",
		},
	)

	DrainCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "offline_queue_drain_cycles_total",
			Help: "Total number of completed drain cycles",
		},
	)

	DrainDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "offline_queue_drain_duration_seconds",
			Help:    "Duration of drain cycles",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register registers all agent metrics with the default registry.
func Register() {
	prometheus.MustRegister(
		QueueDepth,
		ItemsProcessedTotal,
		ItemsFailedTotal,
		PersistFailuresTotal,
		DrainCyclesTotal,
		DrainDuration,
	)
}
