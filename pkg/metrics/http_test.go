package metrics

import (
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func requestCount(t *testing.T, reg *prometheus.Registry, method, route, class string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	mf := findMetricFamily(mfs, "datavend_http_requests_total")
	if mf == nil {
		t.Fatal("requests metric not exported")
	}
	for _, metric := range mf.GetMetric() {
		labels := metric.GetLabel()
		if matchesLabel(labels, "method", method) && matchesLabel(labels, "route", route) && matchesLabel(labels, "status", class) {
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestHTTPMetricsGroupsByStatusClass(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)

	m.Observe(http.MethodPost, "/api/v1/orders/", http.StatusCreated, 20*time.Millisecond)
	m.Observe(http.MethodPost, "/api/v1/orders/", http.StatusOK, 5*time.Millisecond)
	m.Observe(http.MethodPost, "/api/v1/orders/", http.StatusConflict, time.Millisecond)
	m.Observe(http.MethodGet, "", http.StatusNotFound, time.Millisecond)

	if got := requestCount(t, reg, http.MethodPost, "/api/v1/orders/", "2xx"); got != 2 {
		t.Fatalf("expected 2 successful requests, got %v", got)
	}
	if got := requestCount(t, reg, http.MethodPost, "/api/v1/orders/", "4xx"); got != 1 {
		t.Fatalf("expected 1 rejected request, got %v", got)
	}
	if got := requestCount(t, reg, http.MethodGet, "unknown", "4xx"); got != 1 {
		t.Fatalf("expected unmatched route under unknown, got %v", got)
	}

	mfs, _ := reg.Gather()
	latency := findMetricFamily(mfs, "datavend_http_request_duration_seconds")
	if latency == nil || latency.GetType() != dto.MetricType_HISTOGRAM || len(latency.GetMetric()) != 2 {
		t.Fatalf("expected two latency series, got %v", latency)
	}
}

func TestHTTPMetricsNilSafe(t *testing.T) {
	var m *HTTPMetrics
	m.Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	NewHTTPMetrics(nil).Observe(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	if statusClass(42) != "unknown" {
		t.Fatal("expected unknown class for invalid status")
	}
}
