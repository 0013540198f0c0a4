package metrics

import (
	"runtime"
	"time"
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// StatusOf maps an error to a status label.
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// RecordTick records one simulation step and the resulting temperature.
func (r *Registry) RecordTick(alpha float64) {
	r.TicksTotal.Inc()
	r.Alpha.Set(alpha)
}

// RecordReconcile records a reconciliation and its churn.
func (r *Registry) RecordReconcile(duration time.Duration, nodes, edges, entered, exited int) {
	r.ReconcileTime.Observe(duration.Seconds())
	r.NodesVisible.Set(float64(nodes))
	r.EdgesVisible.Set(float64(edges))
	r.NodesEntered.Add(float64(entered))
	r.NodesExited.Add(float64(exited))
}

// RecordPersist records a debounced preference write.
func (r *Registry) RecordPersist(key string, err error) {
	r.PersistWritesTotal.WithLabelValues(key, StatusOf(err)).Inc()
}

// RecordLinkRequest records a link mutation sent to the backend.
func (r *Registry) RecordLinkRequest(op string, duration time.Duration, err error) {
	r.LinkRequestsTotal.WithLabelValues(op, StatusOf(err)).Inc()
	r.LinkRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordFetch records a snapshot fetch.
func (r *Registry) RecordFetch(err error) {
	r.SnapshotFetchesTotal.WithLabelValues(StatusOf(err)).Inc()
}

// UpdateOverlay sets the optimistic overlay gauges.
func (r *Registry) UpdateOverlay(optimistic, hidden int) {
	r.OptimisticEdges.Set(float64(optimistic))
	r.HiddenEdges.Set(float64(hidden))
}

// UpdateSystemMetrics samples runtime statistics.
func (r *Registry) UpdateSystemMetrics(started time.Time) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.UptimeSeconds.Set(time.Since(started).Seconds())
	r.GoRoutines.Set(float64(runtime.NumGoroutine()))
	r.MemoryAllocBytes.Set(float64(m.Alloc))
}
