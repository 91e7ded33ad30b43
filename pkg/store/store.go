package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"scibrain/pkg/kv"
)

// DefaultListLimit bounds listings when the caller passes no limit.
const DefaultListLimit = 50

var (
	// ErrEmailTaken is returned by CreateUser when the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidPayload is returned when a quiz payload is not valid JSON.
	ErrInvalidPayload = errors.New("invalid quiz payload")
)

// Store is the entity-level facade over a kv.Backend. It behaves the same on
// every backend; which one is used is decided by whoever constructs it.
type Store struct {
	kv  kv.Backend
	now func() time.Time
}

// Option customizes a Store.
type Option func(*Store)

// WithClock overrides the time source used for timestamps and session expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New builds a Store on top of backend.
func New(backend kv.Backend, opts ...Option) *Store {
	s := &Store{
		kv:  backend,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Ping checks the backend.
func (s *Store) Ping(ctx context.Context) error {
	return s.kv.Ping(ctx)
}

// nextID allocates the next id for category. Ids start at 1 and are never reused.
func (s *Store) nextID(ctx context.Context, category string) (int64, error) {
	id, err := s.kv.Incr(ctx, counterKey(category))
	if err != nil {
		return 0, fmt.Errorf("allocate %s id: %w", category, err)
	}
	return id, nil
}

func (s *Store) getJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *Store) putJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data), ttl); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// indexIDs returns up to limit ids from the head of a per-user index.
// A limit <= 0 returns the whole index.
func (s *Store) indexIDs(ctx context.Context, key string, limit int) ([]int64, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	vals, err := s.kv.LRange(ctx, key, 0, stop)
	if err != nil {
		return nil, fmt.Errorf("read index %s: %w", key, err)
	}
	ids := make([]int64, 0, len(vals))
	for _, v := range vals {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) indexLen(ctx context.Context, key string) (int, error) {
	n, err := s.kv.LLen(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("count index %s: %w", key, err)
	}
	return int(n), nil
}

func (s *Store) pushIndex(ctx context.Context, key string, id int64) error {
	if err := s.kv.LPush(ctx, key, strconv.FormatInt(id, 10)); err != nil {
		return fmt.Errorf("update index %s: %w", key, err)
	}
	return nil
}

func (s *Store) removeFromIndex(ctx context.Context, key string, id int64) error {
	if err := s.kv.LRem(ctx, key, strconv.FormatInt(id, 10)); err != nil {
		return fmt.Errorf("update index %s: %w", key, err)
	}
	return nil
}
