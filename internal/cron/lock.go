package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/instance"
)

const defaultLockTTL = 10 * time.Minute

// Lock elects a single worker replica to run a cycle.
type Lock interface {
	TryAcquire(ctx context.Context) (Lease, bool, error)
}

// Lease is a held lock. Release is safe to call after the lease expired.
type Lease interface {
	Owner() string
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

// RedisLock is a SETNX lock whose TTL frees it if the holder dies mid-cycle.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration
}

// NewRedisLock builds a lock on key. A non-positive ttl uses ten minutes.
func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

// TryAcquire claims the key for a fresh owner token. ok is false when
// another replica holds it.
func (l *RedisLock) TryAcquire(ctx context.Context) (Lease, bool, error) {
	owner := instance.ID() + ":" + uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("claim %s: %w", l.key, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{store: l.store, key: l.key, owner: owner}, true, nil
}

type redisLease struct {
	store lockStore
	key   string
	owner string
}

func (l *redisLease) Owner() string { return l.owner }

// Release deletes the key only while it still carries this lease's token.
func (l *redisLease) Release(ctx context.Context) error {
	current, err := l.store.Get(ctx, l.key)
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return fmt.Errorf("read %s: %w", l.key, err)
	case current != l.owner:
		return nil
	}
	if err := l.store.Del(ctx, l.key); err != nil {
		return fmt.Errorf("delete %s: %w", l.key, err)
	}
	return nil
}
