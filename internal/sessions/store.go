// Package sessions keeps per-chat conversation state for the bot in redis.
package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
	pkgredis "github.com/AlazarG19/Test-Bulk-Buddy/pkg/redis"
)

const defaultTTL = 30 * 24 * time.Hour

// Step is how far a chat has progressed through account setup.
type Step string

const (
	StepAwaitContact Step = "await_contact"
	StepAwaitName    Step = "await_name"
	StepReady        Step = "ready"
)

// Session is the state kept for one chat.
type Session struct {
	ChatID    int64     `json:"chatId"`
	UserID    int64     `json:"userId"`
	Username  string    `json:"username,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Name      string    `json:"name,omitempty"`
	Step      Step      `json:"step"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Ready reports whether the account setup is complete.
func (s *Session) Ready() bool {
	return s != nil && s.Step == StepReady && s.Name != ""
}

// Store loads and saves sessions. Load returns (nil, nil) for an unknown chat.
type Store interface {
	Load(ctx context.Context, chatID int64) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, chatID int64) error
}

type kv interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetTouch(ctx context.Context, key string, ttl time.Duration) (string, error)
	Del(ctx context.Context, keys ...string) error
	SessionKey(chatID int64) string
}

// RedisStore stores each session as JSON under its own key. Every Load
// and Save pushes the expiry out by ttl.
type RedisStore struct {
	client kv
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore builds a session store. A non-positive ttl uses 30 days.
func NewRedisStore(client kv, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{client: client, ttl: ttl, now: time.Now}, nil
}

func (s *RedisStore) Load(ctx context.Context, chatID int64) (*Session, error) {
	raw, err := s.client.GetTouch(ctx, s.client.SessionKey(chatID), s.ttl)
	if errors.Is(err, pkgredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load session")
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode session")
	}
	return &session, nil
}

func (s *RedisStore) Save(ctx context.Context, session *Session) error {
	if session == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "session required")
	}
	session.UpdatedAt = s.now().UTC()
	payload, err := json.Marshal(session)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode session")
	}
	if err := s.client.Set(ctx, s.client.SessionKey(session.ChatID), string(payload), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save session")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, s.client.SessionKey(chatID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete session")
	}
	return nil
}
