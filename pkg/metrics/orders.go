package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics tracks the placement workflow and the unpaid-order sweep.
type OrderMetrics struct {
	placed        *prometheus.CounterVec
	rejected      *prometheus.CounterVec
	compensations *prometheus.CounterVec
	expired       prometheus.Counter
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders committed, by payment method.",
	}, []string{"payment_method"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Placement attempts rejected, by error code.",
	}, []string{"code"})
	compensations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_compensated_total",
		Help: "Orders whose reservations were released, by reason.",
	}, []string{"reason"})
	expired := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_expired_total",
		Help: "Unpaid online orders cancelled by the expiry sweep.",
	})
	reg.MustRegister(placed, rejected, compensations, expired)
	return &OrderMetrics{
		placed:        placed,
		rejected:      rejected,
		compensations: compensations,
		expired:       expired,
	}
}

func (m *OrderMetrics) IncPlaced(method string) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.WithLabelValues(normalizeLabel(method)).Inc()
}

func (m *OrderMetrics) IncRejected(code string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *OrderMetrics) IncCompensated(reason string) {
	if m == nil || m.compensations == nil {
		return
	}
	m.compensations.WithLabelValues(normalizeLabel(reason)).Inc()
}

// AddExpired adds n sweep cancellations.
func (m *OrderMetrics) AddExpired(n int) {
	if m == nil || m.expired == nil || n <= 0 {
		return
	}
	m.expired.Add(float64(n))
}
