package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestOrderMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewOrderMetrics(reg)

	metrics.IncPlaced()
	metrics.IncPlaced()
	metrics.IncFailed("insufficient_stock")
	metrics.IncTransition("processing")

	if got := testutil.ToFloat64(metrics.placed); got != 2 {
		t.Fatalf("expected placed=2, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.failed.WithLabelValues("insufficient_stock")); got != 1 {
		t.Fatalf("expected failure=1, got %f", got)
	}
	if got := testutil.ToFloat64(metrics.transitions.WithLabelValues("processing")); got != 1 {
		t.Fatalf("expected transitions=1, got %f", got)
	}
}

func TestOrderMetricsNilSafe(t *testing.T) {
	var metrics *OrderMetrics
	metrics.IncPlaced()
	metrics.IncFailed("any")
	metrics.IncTransition("any")

	empty := NewOrderMetrics(nil)
	empty.IncPlaced()
	empty.IncFailed("")
	empty.IncTransition("")
}
