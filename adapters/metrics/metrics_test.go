package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/artpar/accrue/adapters/metrics"
)

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)

	if m.RequestsTotal == nil || m.CacheHits == nil || m.RateConflicts == nil || m.EngineDuration == nil {
		t.Fatal("collector has nil metrics")
	}

	m.RequestsTotal.WithLabelValues("GET", "/api/items/{id}", "2xx").Inc()
	m.CacheHits.WithLabelValues("item").Add(3)
	m.RateConflicts.WithLabelValues("overlap").Inc()
	m.UsesRecorded.Inc()

	if got := counterValue(t, m.CacheHits.WithLabelValues("item")); got != 3 {
		t.Errorf("cache hits = %v, want 3", got)
	}
	if got := counterValue(t, m.UsesRecorded); got != 1 {
		t.Errorf("uses recorded = %v, want 1", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather error: %v", err)
	}
	found := false
	for _, f := range families {
		if f.GetName() == "accrue_requests_total" {
			found = true
		}
	}
	if !found {
		t.Error("accrue_requests_total not gathered")
	}
}

func TestNewWithRegistry_Isolated(t *testing.T) {
	// Two collectors on separate registries must not collide.
	metrics.NewWithRegistry(prometheus.NewRegistry())
	metrics.NewWithRegistry(prometheus.NewRegistry())
}

func TestStatusClass(t *testing.T) {
	tests := map[int]string{200: "2xx", 201: "2xx", 404: "4xx", 409: "4xx", 500: "5xx", 42: "unknown"}
	for code, want := range tests {
		if got := metrics.StatusClass(code); got != want {
			t.Errorf("StatusClass(%d) = %q, want %q", code, got, want)
		}
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var out dto.Metric
	if err := c.Write(&out); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return out.GetCounter().GetValue()
}
