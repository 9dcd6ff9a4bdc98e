package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestHTTPMetricsCountsByRouteAndStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewHTTPMetrics(reg)
	metrics.ObserveRequest("PUT", "/api/v1/slots/{slotId}/order/items", 200, 40*time.Millisecond)
	metrics.ObserveRequest("PUT", "/api/v1/slots/{slotId}/order/items", 200, 10*time.Millisecond)
	metrics.ObserveRequest("GET", "", 404, time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	family := findMetricFamily(mfs, "filazero_http_requests_total")
	if family == nil {
		t.Fatal("request counter not exported")
	}
	var items, unmatched float64
	for _, metric := range family.GetMetric() {
		switch {
		case matchesLabel(metric.GetLabel(), "route", "/api/v1/slots/{slotId}/order/items") && matchesLabel(metric.GetLabel(), "status", "200"):
			items = metric.GetCounter().GetValue()
		case matchesLabel(metric.GetLabel(), "route", "unmatched") && matchesLabel(metric.GetLabel(), "status", "404"):
			unmatched = metric.GetCounter().GetValue()
		}
	}
	if items != 2 || unmatched != 1 {
		t.Fatalf("unexpected counts items=%f unmatched=%f", items, unmatched)
	}

	if got, err := fetchHistogramSum(mfs, "filazero_http_request_duration_seconds", "method", "PUT"); err != nil || got < 0.05 {
		t.Fatalf("expected PUT duration sum >= 0.05, got %f err=%v", got, err)
	}
}

func TestNilHTTPMetricsIsNoop(t *testing.T) {
	var metrics *HTTPMetrics
	metrics.ObserveRequest("GET", "/health/live", 200, time.Millisecond)
	NewHTTPMetrics(nil).ObserveRequest("GET", "/health/live", 200, time.Millisecond)
}
