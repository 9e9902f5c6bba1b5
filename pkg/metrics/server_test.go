package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHandlerExposesRegisteredMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	orders := NewOrderMetrics(reg)
	orders.IncPlaced("vnpay")

	rec := httptest.NewRecorder()
	NewHandler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `payment_method="vnpay"`) {
		t.Fatalf("expected placed counter in output:\n%s", rec.Body.String())
	}
}

func TestHandlerHealthz(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHandler(prometheus.NewRegistry()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
}
