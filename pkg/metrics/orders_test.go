package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestOrderMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.IncPlaced("cod")
	m.IncPlaced("cod")
	m.IncRejected("CONFLICT")
	m.IncCompensated("expired")
	m.AddExpired(3)
	m.AddExpired(0)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "orders_placed_total", "payment_method", "cod"); err != nil || got != 2 {
		t.Fatalf("expected placed=2, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "orders_rejected_total", "code", "CONFLICT"); err != nil || got != 1 {
		t.Fatalf("expected rejected=1, got %f err=%v", got, err)
	}
	if got, err := fetchCounterValue(mfs, "orders_compensated_total", "reason", "expired"); err != nil || got != 1 {
		t.Fatalf("expected compensated=1, got %f err=%v", got, err)
	}
	mf := findMetricFamily(mfs, "orders_expired_total")
	if mf == nil || mf.GetMetric()[0].GetCounter().GetValue() != 3 {
		t.Fatalf("expected expired=3")
	}
}

func TestOrderMetricsNilSafe(t *testing.T) {
	var m *OrderMetrics
	m.IncPlaced("cod")
	m.AddExpired(1)
	NewOrderMetrics(nil).IncRejected("x")
}
