package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initIOMetrics() {
	r.PersistWritesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphview_persist_writes_total",
			Help: "Preference writes by key and status",
		},
		[]string{"key", "status"},
	)

	r.LinkRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphview_link_requests_total",
			Help: "Link create/update/delete requests by operation and status",
		},
		[]string{"op", "status"},
	)

	r.LinkRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphview_link_request_duration_seconds",
			Help:    "Link request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	r.SnapshotFetchesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphview_snapshot_fetches_total",
			Help: "Snapshot fetches by status",
		},
		[]string{"status"},
	)

	r.OptimisticEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphview_optimistic_edges",
			Help: "Optimistic edges awaiting confirmation",
		},
	)

	r.OptimisticExpiredTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphview_optimistic_expired_total",
			Help: "Optimistic edges dropped after failing or timing out",
		},
	)

	r.HiddenEdges = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphview_hidden_edges",
			Help: "Edges locally deleted and awaiting confirmation",
		},
	)
}
