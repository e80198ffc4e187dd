package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics instruments calls to the hosted table store.
type StoreMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func NewStoreMetrics(reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		return &StoreMetrics{}
	}
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "airtable_requests_total",
		Help:      "Requests sent to the table store by table, method and status.",
	}, []string{"table", "method", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "airtable_request_duration_seconds",
		Help:      "Latency of table store requests.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"table", "method"})
	reg.MustRegister(requests, duration)
	return &StoreMetrics{requests: requests, duration: duration}
}

// ObserveRequest implements the store client's request observer. Status 0 means a transport error.
func (m *StoreMetrics) ObserveRequest(table, method string, status int, d time.Duration) {
	if m == nil || m.requests == nil {
		return
	}
	code := "error"
	if status > 0 {
		code = strconv.Itoa(status)
	}
	table = normalizeLabel(table)
	m.requests.WithLabelValues(table, method, code).Inc()
	m.duration.WithLabelValues(table, method).Observe(d.Seconds())
}

// OrderMetrics counts order workflow outcomes.
type OrderMetrics struct {
	created *prometheus.CounterVec
	failed  *prometheus.CounterVec
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Orders fully written to the store, by order type.",
	}, []string{"type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_failed_total",
		Help:      "Order submissions that failed, by the step that failed.",
	}, []string{"step"})
	reg.MustRegister(created, failed)
	return &OrderMetrics{created: created, failed: failed}
}

func (m *OrderMetrics) IncCreated(orderType string) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(orderType)).Inc()
}

func (m *OrderMetrics) IncFailed(step string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(step)).Inc()
}
