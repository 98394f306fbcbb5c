package prometheus

import (
	"testing"
	"time"

	"account-grid/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

var _ metrics.Collector = (*PrometheusCollector)(nil)

func newRegistered(t *testing.T) (*PrometheusCollector, *prometheus.Registry) {
	registry := prometheus.NewRegistry()
	pc := NewPrometheusCollector("bbbank")
	if err := pc.Register(registry); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return pc, registry
}

// gathered returns the value of the counter or gauge sample whose labels
// include all of want.
func gathered(t *testing.T, registry *prometheus.Registry, name string, want map[string]string) float64 {
	t.Helper()

	families, err := registry.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			matched := 0
			for _, lp := range m.GetLabel() {
				if v, ok := want[lp.GetName()]; ok && v == lp.GetValue() {
					matched++
				}
			}
			if matched != len(want) {
				continue
			}
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			if g := m.GetGauge(); g != nil {
				return g.GetValue()
			}
		}
	}
	t.Fatalf("metric %s%v not found", name, want)
	return 0
}

func TestPrometheusCollector_Register(t *testing.T) {
	pc, registry := newRegistered(t)

	if err := pc.Register(registry); err == nil {
		t.Error("Expected error on duplicate registration")
	}
}

func TestPrometheusCollector_RecordQuery(t *testing.T) {
	pc, registry := newRegistered(t)

	pc.RecordQuery("", 10, time.Millisecond)
	pc.RecordQuery("STORE_UNAVAILABLE", 0, time.Millisecond)
	pc.RecordQuery("STORE_UNAVAILABLE", 0, time.Millisecond)

	if got := gathered(t, registry, "bbbank_page_queries_total", map[string]string{"code": "OK"}); got != 1 {
		t.Errorf("Expected 1 OK query, got %v", got)
	}
	if got := gathered(t, registry, "bbbank_page_queries_total", map[string]string{"code": "STORE_UNAVAILABLE"}); got != 2 {
		t.Errorf("Expected 2 STORE_UNAVAILABLE queries, got %v", got)
	}
}

func TestPrometheusCollector_CircuitState(t *testing.T) {
	pc, registry := newRegistered(t)
	labels := map[string]string{"store": "postgres"}

	pc.RecordCircuitState("postgres", metrics.CircuitOpen)
	if got := gathered(t, registry, "bbbank_circuit_state", labels); got != 1 {
		t.Errorf("Expected state gauge 1, got %v", got)
	}
	if got := gathered(t, registry, "bbbank_circuit_opens_total", labels); got != 1 {
		t.Errorf("Expected 1 open, got %v", got)
	}

	pc.RecordCircuitState("postgres", metrics.CircuitClosed)
	if got := gathered(t, registry, "bbbank_circuit_state", labels); got != 0 {
		t.Errorf("Expected state gauge 0, got %v", got)
	}
}

func TestPrometheusCollector_StoreErrors(t *testing.T) {
	pc, registry := newRegistered(t)

	pc.RecordStoreOp("memory", "slice", false, time.Millisecond)
	pc.RecordStoreError("memory", "slice", "timeout")

	got := gathered(t, registry, "bbbank_store_errors_total", map[string]string{
		"store": "memory", "operation": "slice", "error_type": "timeout",
	})
	if got != 1 {
		t.Errorf("Expected 1 timeout error, got %v", got)
	}

	got = gathered(t, registry, "bbbank_store_operations_total", map[string]string{
		"store": "memory", "operation": "slice", "status": "error",
	})
	if got != 1 {
		t.Errorf("Expected 1 failed slice, got %v", got)
	}
}

func TestPrometheusCollector_HTTPRequest(t *testing.T) {
	pc, registry := newRegistered(t)

	pc.RecordHTTPRequest("GET", "/health", 200, time.Millisecond)

	got := gathered(t, registry, "bbbank_http_requests_total", map[string]string{
		"method": "GET", "route": "/health", "status": "200",
	})
	if got != 1 {
		t.Errorf("Expected 1 request, got %v", got)
	}
}
