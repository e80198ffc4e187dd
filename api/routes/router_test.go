package routes

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/AlazarG19/Test-Bulk-Buddy/internal/catalog"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/orders"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/pools"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/config"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/redis"
)

type memoryRedis struct {
	mu      sync.Mutex
	values  map[string]string
	counts  map[string]int64
	pingErr error
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryRedis) Ping(context.Context) error { return m.pingErr }

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value.(string)
	return nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "bb:idempotency:" + scope + ":" + id
}

func (m *memoryRedis) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[scope]++
	return m.counts[scope] <= limit, m.counts[scope], nil
}

type stubCatalog struct{}

func (stubCatalog) ListProducts(context.Context) []catalog.Product {
	return []catalog.Product{{ID: "recBURGER", Name: "Burger", Price: decimal.RequireFromString("5")}}
}

type stubPools struct{}

func (stubPools) ListOpenPools(context.Context) []pools.Pool { return []pools.Pool{} }

func (stubPools) CreatePool(_ context.Context, creator string) (*pools.Pool, error) {
	return &pools.Pool{RecordID: "recPOOL", PoolID: "1", CreatedBy: creator}, nil
}

func (stubPools) ResolvePool(context.Context, string) (*pools.Pool, error) { return nil, nil }

type countingOrders struct {
	mu      sync.Mutex
	creates int
}

func (c *countingOrders) CreateOrder(_ context.Context, input orders.CreateOrderInput) (*orders.OrderRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creates++
	return &orders.OrderRef{RecordID: "recORDER", OrderID: c.creates, Kind: input.Kind}, nil
}

func (c *countingOrders) CreateOrderItems(context.Context, string, []orders.CartLine) ([]string, error) {
	return nil, errors.New("not used")
}

func (c *countingOrders) ResolveOrderItems(context.Context, string) ([]orders.ItemView, error) {
	return []orders.ItemView{}, nil
}

func (c *countingOrders) AttachItems(context.Context, string, []string) error { return nil }

func (c *countingOrders) GetOrdersForCustomer(context.Context, string) ([]orders.OrderView, error) {
	return []orders.OrderView{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		HTTP: config.HTTPConfig{
			AllowedOrigins: []string{"http://localhost:3000"},
			WriteRateLimit: 3,
			WriteWindow:    time.Minute,
		},
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
}

func newTestRouter(store *memoryRedis, ordersSvc orders.Service) http.Handler {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "bulkbuddy_test_total", Help: "test"}))
	return NewRouter(testConfig(), testLogger(), nil, store, reg, Services{
		Catalog: stubCatalog{},
		Pools:   stubPools{},
		Orders:  ordersSvc,
	})
}

const orderBody = `{"customer":"Abebe","kind":"single","lines":[{"productRef":"recBURGER","quantity":1,"unitPrice":5}]}`

func postOrder(h http.Handler, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(orderBody))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthAndMetrics(t *testing.T) {
	h := newTestRouter(newMemoryRedis(), &countingOrders{})

	for _, path := range []string{"/health/live", "/health/ready", "/metrics", "/api/v1/products", "/api/v1/pools"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rec.Code)
		}
		if path == "/metrics" && !strings.Contains(rec.Body.String(), "bulkbuddy_test_total") {
			t.Fatalf("metrics output missing registered counter")
		}
	}
}

func TestRouterReadyReportsRedisDown(t *testing.T) {
	store := newMemoryRedis()
	store.pingErr = errors.New("connection refused")
	h := newTestRouter(store, &countingOrders{})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRouterOrderWritesAreIdempotent(t *testing.T) {
	svc := &countingOrders{}
	h := newTestRouter(newMemoryRedis(), svc)

	if rec := postOrder(h, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without key, got %d", rec.Code)
	}

	first := postOrder(h, "order-1")
	if first.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", first.Code, first.Body.String())
	}
	second := postOrder(h, "order-1")
	if second.Code != http.StatusCreated || second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replayed 201, got %d headers=%v", second.Code, second.Header())
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replayed body differs: %q vs %q", second.Body.String(), first.Body.String())
	}
	if svc.creates != 1 {
		t.Fatalf("expected one order write, got %d", svc.creates)
	}
}

func TestRouterRateLimitsWrites(t *testing.T) {
	h := newTestRouter(newMemoryRedis(), &countingOrders{})

	var last *httptest.ResponseRecorder
	for i := 0; i < 4; i++ {
		last = postOrder(h, "key-"+string(rune('a'+i)))
	}
	if last.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", last.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("reads must not be limited, got %d", rec.Code)
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	h := newTestRouter(newMemoryRedis(), &countingOrders{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
