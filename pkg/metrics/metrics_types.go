package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// Simulation Metrics
	TicksTotal    prometheus.Counter
	Alpha         prometheus.Gauge
	NodesVisible  prometheus.Gauge
	EdgesVisible  prometheus.Gauge
	DrawsTotal    prometheus.Counter
	ReconcileTime prometheus.Histogram
	NodesEntered  prometheus.Counter
	NodesExited   prometheus.Counter

	// I/O Metrics
	PersistWritesTotal   *prometheus.CounterVec
	LinkRequestsTotal    *prometheus.CounterVec
	LinkRequestDuration  *prometheus.HistogramVec
	SnapshotFetchesTotal *prometheus.CounterVec

	// Optimistic overlay
	OptimisticEdges        prometheus.Gauge
	OptimisticExpiredTotal prometheus.Counter
	HiddenEdges            prometheus.Gauge

	// System Metrics
	UptimeSeconds    prometheus.Gauge
	GoRoutines       prometheus.Gauge
	MemoryAllocBytes prometheus.Gauge

	registry *prometheus.Registry
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initSimulationMetrics()
	r.initIOMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
