package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "scibrain:ratelimit"

var fixedWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Limiter decides whether a keyed request fits in its quota.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// Option customizes a fixed-window limiter.
type Option func(*window)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(w *window) {
		if now != nil {
			w.now = now
		}
	}
}

type window struct {
	limit  int
	length time.Duration
	now    func() time.Time
}

func newWindow(limit int, length time.Duration, opts []Option) (window, error) {
	if limit <= 0 || length < time.Millisecond {
		return window{}, errors.New("rate limiter requires positive limit and window")
	}
	w := window{limit: limit, length: length, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&w)
		}
	}
	return w, nil
}

func (w window) slot() int64 {
	return w.now().UTC().UnixMilli() / w.length.Milliseconds()
}

func normalizeKey(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return "unknown"
	}
	return key
}

// RedisLimiter counts requests in Redis so every instance shares one quota.
type RedisLimiter struct {
	window
	client redis.UniversalClient
	prefix string
}

// NewRedisLimiter builds a distributed fixed-window limiter on client.
func NewRedisLimiter(client redis.UniversalClient, prefix string, limit int, length time.Duration, opts ...Option) (*RedisLimiter, error) {
	if client == nil {
		return nil, errors.New("rate limiter redis client is required")
	}
	w, err := newWindow(limit, length, opts)
	if err != nil {
		return nil, err
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &RedisLimiter{window: w, client: client, prefix: prefix}, nil
}

// Allow fails closed when Redis is unreachable.
func (l *RedisLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil {
		return false
	}
	redisKey := fmt.Sprintf("%s:%s:%d", l.prefix, normalizeKey(key), l.slot())
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	count, err := fixedWindowScript.Run(ctx, l.client, []string{redisKey}, l.length.Milliseconds()).Int64()
	if err != nil {
		return false
	}
	return count <= int64(l.limit)
}

// MemoryLimiter keeps counters in process. Used when the store runs without
// Redis.
type MemoryLimiter struct {
	window
	mu       sync.Mutex
	current  int64
	counters map[string]int
}

// NewMemoryLimiter builds an in-process fixed-window limiter.
func NewMemoryLimiter(limit int, length time.Duration, opts ...Option) (*MemoryLimiter, error) {
	w, err := newWindow(limit, length, opts)
	if err != nil {
		return nil, err
	}
	return &MemoryLimiter{window: w, counters: make(map[string]int)}, nil
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) bool {
	if l == nil {
		return false
	}
	slot := l.slot()
	l.mu.Lock()
	defer l.mu.Unlock()
	if slot != l.current {
		// new window, old counts are irrelevant
		l.current = slot
		clear(l.counters)
	}
	key = normalizeKey(key)
	l.counters[key]++
	return l.counters[key] <= l.limit
}

// New picks the Redis limiter when client is non-nil and the memory one
// otherwise. A non-positive limit disables limiting and returns nil.
func New(client redis.UniversalClient, prefix string, limit int, length time.Duration, opts ...Option) (Limiter, error) {
	if limit <= 0 {
		return nil, nil
	}
	if client != nil {
		l, err := NewRedisLimiter(client, prefix, limit, length, opts...)
		if err != nil {
			return nil, err
		}
		return l, nil
	}
	l, err := NewMemoryLimiter(limit, length, opts...)
	if err != nil {
		return nil, err
	}
	return l, nil
}
