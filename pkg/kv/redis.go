package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultOpTimeout = 3 * time.Second

// RedisConfig configures a Redis-backed Backend.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisOption customizes a RedisBackend.
type RedisOption func(*RedisBackend)

// WithOpTimeout bounds every Redis call. Zero or negative keeps the default.
func WithOpTimeout(d time.Duration) RedisOption {
	return func(b *RedisBackend) {
		if d > 0 {
			b.opTimeout = d
		}
	}
}

// RedisBackend implements Backend on top of go-redis.
type RedisBackend struct {
	client    redis.UniversalClient
	opTimeout time.Duration
}

// NewRedisBackend builds a Redis client for cfg. It does not dial; call Ping
// to check reachability.
func NewRedisBackend(cfg RedisConfig, opts ...RedisOption) (*RedisBackend, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewRedisBackendFromClient(client, opts...), nil
}

// NewRedisBackendFromClient wraps an existing client.
func NewRedisBackendFromClient(client redis.UniversalClient, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{client: client, opTimeout: defaultOpTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Client exposes the underlying client for components sharing the connection.
func (b *RedisBackend) Client() redis.UniversalClient {
	return b.client
}

func (b *RedisBackend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.opTimeout)
}

func (b *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	val, err := b.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, redisErr("get", key, err)
	}
	return val, true, nil
}

func (b *RedisBackend) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	if ttl < 0 {
		ttl = 0
	}
	return b.client.Set(ctx, key, value, ttl).Err()
}

func (b *RedisBackend) SetNX(ctx context.Context, key, value string) (bool, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	return b.client.SetNX(ctx, key, value, 0).Result()
}

func (b *RedisBackend) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	if err := b.client.Del(ctx, keys...).Err(); err != nil && err != redis.Nil {
		return err
	}
	return nil
}

func (b *RedisBackend) Incr(ctx context.Context, key string) (int64, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	n, err := b.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, redisErr("incr", key, err)
	}
	return n, nil
}

func (b *RedisBackend) LPush(ctx context.Context, key, value string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	return redisErr("lpush", key, b.client.LPush(ctx, key, value).Err())
}

func (b *RedisBackend) LRem(ctx context.Context, key, value string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	return redisErr("lrem", key, b.client.LRem(ctx, key, 0, value).Err())
}

func (b *RedisBackend) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	vals, err := b.client.LRange(ctx, key, start, stop).Result()
	if err == redis.Nil {
		return []string{}, nil
	}
	if err != nil {
		return nil, redisErr("lrange", key, err)
	}
	return vals, nil
}

func (b *RedisBackend) LLen(ctx context.Context, key string) (int64, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	n, err := b.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, redisErr("llen", key, err)
	}
	return n, nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()
	return b.client.Ping(ctx).Err()
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// redisErr maps server type errors onto the package sentinels so callers see
// the same errors from every backend.
func redisErr(op, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case strings.HasPrefix(err.Error(), "WRONGTYPE"):
		return fmt.Errorf("%s %s: %w", op, key, ErrWrongType)
	case strings.Contains(err.Error(), "not an integer"):
		return fmt.Errorf("%s %s: %w", op, key, ErrNotInteger)
	default:
		return err
	}
}
