package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initSimulationMetrics() {
	r.TicksTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphview_ticks_total",
			Help: "Total number of simulation ticks that advanced the layout",
		},
	)

	r.Alpha = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphview_alpha",
			Help: "Current simulation temperature",
		},
	)

	r.NodesVisible = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphview_nodes",
			Help: "Nodes in the working set",
		},
	)

	r.EdgesVisible = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "graphview_edges",
			Help: "Edges in the draw list, optimistic edges included",
		},
	)

	r.DrawsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphview_draws_total",
			Help: "Total number of frames drawn",
		},
	)

	r.ReconcileTime = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphview_reconcile_duration_seconds",
			Help:    "Time spent reconciling a snapshot into the working set",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	r.NodesEntered = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphview_nodes_entered_total",
			Help: "Nodes that entered the working set",
		},
	)

	r.NodesExited = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "graphview_nodes_exited_total",
			Help: "Nodes that left the working set",
		},
	)
}
