package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r.TicksTotal == nil || r.PersistWritesTotal == nil || r.OptimisticEdges == nil {
		t.Fatal("metrics not initialized")
	}
	if r.GetPrometheusRegistry() == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordTick(t *testing.T) {
	r := NewRegistry()
	r.RecordTick(0.5)
	r.RecordTick(0.25)

	if got := counterValue(t, r.TicksTotal); got != 2 {
		t.Errorf("ticks = %v, want 2", got)
	}
	if got := gaugeValue(t, r.Alpha); got != 0.25 {
		t.Errorf("alpha = %v, want 0.25", got)
	}
}

func TestRecordPersistAndLinks(t *testing.T) {
	r := NewRegistry()
	r.RecordPersist("graph_positions", nil)
	r.RecordPersist("graph_positions", errors.New("offline"))
	r.RecordLinkRequest("create", 10*time.Millisecond, nil)

	if got := counterValue(t, r.PersistWritesTotal.WithLabelValues("graph_positions", StatusError)); got != 1 {
		t.Errorf("error writes = %v, want 1", got)
	}
	if got := counterValue(t, r.LinkRequestsTotal.WithLabelValues("create", StatusOK)); got != 1 {
		t.Errorf("create ok = %v, want 1", got)
	}
}

func TestRecordReconcile(t *testing.T) {
	r := NewRegistry()
	r.RecordReconcile(time.Millisecond, 20, 31, 15, 0)

	if got := gaugeValue(t, r.NodesVisible); got != 20 {
		t.Errorf("nodes = %v, want 20", got)
	}
	if got := counterValue(t, r.NodesEntered); got != 15 {
		t.Errorf("entered = %v, want 15", got)
	}

	families, err := r.GetPrometheusRegistry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	found := false
	for _, mf := range families {
		if mf.GetName() == "graphview_reconcile_duration_seconds" {
			found = mf.GetMetric()[0].GetHistogram().GetSampleCount() == 1
		}
	}
	if !found {
		t.Error("expected one reconcile duration sample")
	}
}

func TestUpdateSystemMetrics(t *testing.T) {
	r := NewRegistry()
	r.UpdateSystemMetrics(time.Now().Add(-time.Minute))
	if got := gaugeValue(t, r.UptimeSeconds); got < 59 {
		t.Errorf("uptime = %v, want >= 59", got)
	}
	if gaugeValue(t, r.GoRoutines) < 1 {
		t.Error("expected at least one goroutine")
	}
}
