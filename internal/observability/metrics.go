package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every Prometheus collector the service exposes,
// registered against a private registry so /metrics output is limited to
// testharbor's own series; no Go-runtime or process collectors are
// registered on it.
type Metrics struct {
	Registry *prometheus.Registry

	QueueDepth       *prometheus.GaugeVec
	FlushesTotal     *prometheus.CounterVec
	FlushErrorsTotal *prometheus.CounterVec
	ItemsWritten     *prometheus.CounterVec
	SweepRunsTotal   prometheus.Counter
	SweepRowsPurged  *prometheus.CounterVec
	SweepDurationSec prometheus.Histogram
}

// NewMetrics builds and registers every collector against a fresh
// registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "testharbor",
			Subsystem: "queue",
			Name:      "depth",
			Help:      "Current occupancy of a writer's ring buffer.",
		}, []string{"writer"}),
		FlushesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "testharbor",
			Subsystem: "writer",
			Name:      "flushes_total",
			Help:      "Total number of successful batch flushes.",
		}, []string{"writer"}),
		FlushErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "testharbor",
			Subsystem: "writer",
			Name:      "flush_errors_total",
			Help:      "Total number of batch flushes that failed and were dropped.",
		}, []string{"writer"}),
		ItemsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "testharbor",
			Subsystem: "writer",
			Name:      "items_written_total",
			Help:      "Total number of items successfully persisted.",
		}, []string{"writer"}),
		SweepRunsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "testharbor",
			Subsystem: "sweeper",
			Name:      "runs_total",
			Help:      "Total number of retention sweep runs completed.",
		}),
		SweepRowsPurged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "testharbor",
			Subsystem: "sweeper",
			Name:      "rows_purged_total",
			Help:      "Total number of rows purged by the retention sweeper, by table.",
		}, []string{"table"}),
		SweepDurationSec: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "testharbor",
			Subsystem: "sweeper",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of each retention sweep run.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}
