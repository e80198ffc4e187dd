package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/config"
	"github.com/redis/go-redis/v9"
)

func TestFixedWindowAllow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	allowed, count, err := client.FixedWindowAllow(ctx, "orders:10.0.0.1", 2, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !allowed || count != 1 {
		t.Fatalf("unexpected first call allowed=%v count=%d", allowed, count)
	}
	if len(mock.expireCalls) != 1 || mock.expireCalls[0].key != "bb:rate_limit:orders:10.0.0.1" {
		t.Fatalf("expected expire on first increment, got %+v", mock.expireCalls)
	}

	if allowed, count, _ = client.FixedWindowAllow(ctx, "orders:10.0.0.1", 2, time.Minute); !allowed || count != 2 {
		t.Fatalf("unexpected second call allowed=%v count=%d", allowed, count)
	}
	if len(mock.expireCalls) != 1 {
		t.Fatalf("expire should not be set again")
	}
	if allowed, _, _ = client.FixedWindowAllow(ctx, "orders:10.0.0.1", 2, time.Minute); allowed {
		t.Fatalf("expected limit reached")
	}
}

func TestGetTouchRefreshesTTL(t *testing.T) {
	ctx := context.Background()
	mock := newMockCmdable()
	client := &Client{store: mock}

	key := client.SessionKey(42)
	if err := client.Set(ctx, key, `{"state":"idle"}`, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := client.GetTouch(ctx, key, 2*time.Hour)
	if err != nil {
		t.Fatalf("get touch: %v", err)
	}
	if got != `{"state":"idle"}` {
		t.Fatalf("unexpected value %q", got)
	}
	if mock.ttl[key] != 2*time.Hour {
		t.Fatalf("expected ttl to slide to 2h, got %v", mock.ttl[key])
	}

	if _, err := client.GetTouch(ctx, client.SessionKey(7), time.Hour); !errors.Is(err, Nil) {
		t.Fatalf("expected Nil for missing session, got %v", err)
	}
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := client.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	if got := client.IdempotencyKey("orders", "abc"); got != "bb:idempotency:orders:abc" {
		t.Fatalf("unexpected idempotency key %s", got)
	}
	if got := client.RateLimitKey("writes"); got != "bb:rate_limit:writes" {
		t.Fatalf("unexpected rate limit key %s", got)
	}
	if got := client.SessionKey(-100123); got != "bb:session:-100123" {
		t.Fatalf("unexpected session key %s", got)
	}
	if got := client.LockKey("order-journal-reconcile"); got != "bb:lock:order-journal-reconcile" {
		t.Fatalf("unexpected lock key %s", got)
	}
	if got := client.IdempotencyKey("orders", ""); got != "bb:idempotency:orders" {
		t.Fatalf("empty parts should be skipped, got %s", got)
	}
}

func TestOptionsFromConfig(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error without url or address")
	}
	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/3", PoolSize: 7})
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if opts.DB != 3 || opts.PoolSize != 7 || opts.Addr != "localhost:6379" {
		t.Fatalf("unexpected options %+v", opts)
	}
}

type mockCmdable struct {
	data        map[string]string
	ttl         map[string]time.Duration
	incr        map[string]int64
	expireCalls []expireCall
}

type expireCall struct {
	key string
	ttl time.Duration
}

func newMockCmdable() *mockCmdable {
	return &mockCmdable{
		data: make(map[string]string),
		ttl:  make(map[string]time.Duration),
		incr: make(map[string]int64),
	}
}

func (m *mockCmdable) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCmdable) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	m.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCmdable) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) GetEx(_ context.Context, key string, expiration time.Duration) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	m.ttl[key] = expiration
	return redis.NewStringResult(v, nil)
}

func (m *mockCmdable) SetNX(_ context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	m.ttl[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Incr(_ context.Context, key string) *redis.IntCmd {
	m.incr[key]++
	return redis.NewIntResult(m.incr[key], nil)
}

func (m *mockCmdable) Expire(_ context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	m.expireCalls = append(m.expireCalls, expireCall{key: key, ttl: expiration})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCmdable) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
