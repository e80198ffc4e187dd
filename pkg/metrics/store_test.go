package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestStoreMetricsLabelsTransportErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStoreMetrics(reg)
	m.ObserveRequest("Orders", "POST", 200, 30*time.Millisecond)
	m.ObserveRequest("Orders", "POST", 0, 10*time.Millisecond)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, status := range []string{"200", "error"} {
		got, err := fetchCounterValue(mfs, "bulkbuddy_airtable_requests_total", map[string]string{"table": "Orders", "method": "POST", "status": status})
		if err != nil {
			t.Fatalf("fetch %s: %v", status, err)
		}
		if got != 1 {
			t.Fatalf("expected 1 request with status %s, got %f", status, got)
		}
	}
	if sum, err := fetchHistogramSum(mfs, "bulkbuddy_airtable_request_duration_seconds", map[string]string{"table": "Orders"}); err != nil || sum <= 0 {
		t.Fatalf("unexpected duration sum %f err=%v", sum, err)
	}
}

func TestOrderMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetrics(reg)
	m.IncCreated("Pooled")
	m.IncCreated("Pooled")
	m.IncFailed("")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, _ := fetchCounterValue(mfs, "bulkbuddy_orders_created_total", map[string]string{"type": "Pooled"}); got != 2 {
		t.Fatalf("expected 2 pooled orders, got %f", got)
	}
	if got, _ := fetchCounterValue(mfs, "bulkbuddy_orders_failed_total", map[string]string{"step": "unknown"}); got != 1 {
		t.Fatalf("expected 1 unknown failure, got %f", got)
	}
}
