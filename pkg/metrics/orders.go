package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records counters for the order transaction manager.
type OrderMetrics struct {
	placed      prometheus.Counter
	failed      *prometheus.CounterVec
	transitions *prometheus.CounterVec
}

// NewOrderMetrics registers order metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders committed successfully.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_placement_failures_total",
		Help: "Order placements rolled back, by reason.",
	}, []string{"reason"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Order status updates applied, by target status.",
	}, []string{"status"})
	reg.MustRegister(placed, failed, transitions)
	return &OrderMetrics{
		placed:      placed,
		failed:      failed,
		transitions: transitions,
	}
}

// IncPlaced increments the successful placement counter.
func (m *OrderMetrics) IncPlaced() {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.Inc()
}

// IncFailed increments the failure counter for the given reason.
func (m *OrderMetrics) IncFailed(reason string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncTransition increments the transition counter for the target status.
func (m *OrderMetrics) IncTransition(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
