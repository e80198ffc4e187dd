package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
)

type fakeLock struct {
	acquired bool
	releases int
}

func (f *fakeLock) TryAcquire(context.Context) (Lease, bool, error) {
	if f.acquired {
		return nil, false, nil
	}
	f.acquired = true
	return fakeLease{lock: f}, true, nil
}

type fakeLease struct{ lock *fakeLock }

func (fakeLease) Owner() string { return "test" }

func (f fakeLease) Release(context.Context) error {
	f.lock.acquired = false
	f.lock.releases++
	return nil
}

func mustRegistry(t *testing.T, jobs ...Job) *Registry {
	t.Helper()
	registry, err := NewRegistry(jobs...)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return registry
}

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunOnceRunsAllJobsEvenOnFailure(t *testing.T) {
	success := &testJob{name: "success"}
	failure := &testJob{name: "fail", err: errors.New("boom")}
	reg := prometheus.NewRegistry()
	lock := &fakeLock{}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: mustRegistry(t, success, failure),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if success.runs != 1 || failure.runs != 1 {
		t.Fatalf("expected each job to run once, got %d and %d", success.runs, failure.runs)
	}
	if lock.releases != 1 {
		t.Fatalf("expected lock to be released once, got %d", lock.releases)
	}
	count, err := testutil.GatherAndCount(reg, "bulkbuddy_job_runs_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 run series, got %d", count)
	}
}

func TestServiceRunOnceSkipsWhenLocked(t *testing.T) {
	job := &testJob{name: "job"}
	service, err := NewService(ServiceParams{
		Logger:   logger.Nop(),
		Registry: mustRegistry(t, job),
		Lock:     &fakeLock{acquired: true},
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job to be skipped, ran %d", job.runs)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{Lock: &fakeLock{}}); err == nil {
		t.Fatal("expected error without logger")
	}
	if _, err := NewService(ServiceParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected error without lock")
	}
}

type memoryStore struct {
	values map[string]string
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func TestRedisLockOwnership(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{values: map[string]string{}}
	lock, err := NewRedisLock(store, "bb:lock:cron", time.Minute)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}

	first, ok, err := lock.TryAcquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if store.values["bb:lock:cron"] != first.Owner() {
		t.Fatalf("stored owner %q does not match lease %q", store.values["bb:lock:cron"], first.Owner())
	}
	if _, ok, _ := lock.TryAcquire(ctx); ok {
		t.Fatal("held lock must not be acquired twice")
	}

	// simulate expiry followed by another replica taking over
	store.values["bb:lock:cron"] = "other-replica"
	if err := first.Release(ctx); err != nil {
		t.Fatalf("stale release: %v", err)
	}
	if store.values["bb:lock:cron"] != "other-replica" {
		t.Fatal("stale lease must not delete another owner's lock")
	}

	delete(store.values, "bb:lock:cron")
	second, ok, _ := lock.TryAcquire(ctx)
	if !ok {
		t.Fatal("expected lock to be free")
	}
	if second.Owner() == first.Owner() {
		t.Fatal("each lease must carry a fresh owner token")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("owner release: %v", err)
	}
	if _, held := store.values["bb:lock:cron"]; held {
		t.Fatal("owner release must delete the key")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("double release: %v", err)
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "k", 0); err == nil {
		t.Fatal("expected error without store")
	}
	if _, err := NewRedisLock(&memoryStore{}, "", 0); err == nil {
		t.Fatal("expected error without key")
	}
}
