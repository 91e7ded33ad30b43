package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrWrongType is returned when a value operation hits a list key or the
	// other way around.
	ErrWrongType = errors.New("operation against a key holding the wrong kind of value")
	// ErrNotInteger is returned by Incr when the stored value is not an integer.
	ErrNotInteger = errors.New("value is not an integer")
)

// Backend is the primitive key-value surface the storage facade is built on.
// Values are opaque strings. Lists are ordered head-first.
type Backend interface {
	// Get returns the value stored at key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value at key. A positive ttl is an expiry hint; backends
	// without native expiry may ignore it.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only when key does not exist yet.
	SetNX(ctx context.Context, key, value string) (bool, error)
	Del(ctx context.Context, keys ...string) error
	// Incr atomically increments the integer at key, starting from 0.
	Incr(ctx context.Context, key string) (int64, error)

	LPush(ctx context.Context, key, value string) error
	// LRem removes every element equal to value.
	LRem(ctx context.Context, key, value string) error
	// LRange returns elements between start and stop inclusive; negative
	// indexes count from the tail as in Redis.
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LLen(ctx context.Context, key string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// Name identifies the backend kind in logs.
func Name(b Backend) string {
	switch b.(type) {
	case *RedisBackend:
		return "redis"
	case *MemoryBackend:
		return "memory"
	default:
		return "custom"
	}
}
