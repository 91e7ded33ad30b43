package kv

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// MemoryBackend keeps all keys in-process. Expiry hints are not enforced;
// state lives as long as the instance.
type MemoryBackend struct {
	mu     sync.Mutex
	values map[string]string
	lists  map[string][]string
}

// NewMemoryBackend initializes an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		values: make(map[string]string),
		lists:  make(map[string][]string),
	}
}

func (m *MemoryBackend) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[key]; ok {
		return "", false, fmt.Errorf("get %s: %w", key, ErrWrongType)
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryBackend) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, key)
	m.values[key] = value
	return nil
}

func (m *MemoryBackend) SetNX(_ context.Context, key, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsLocked(key) {
		return false, nil
	}
	m.values[key] = value
	return true, nil
}

func (m *MemoryBackend) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
		delete(m.lists, key)
	}
	return nil
}

func (m *MemoryBackend) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[key]; ok {
		return 0, fmt.Errorf("incr %s: %w", key, ErrWrongType)
	}
	var n int64
	if raw, ok := m.values[key]; ok {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("incr %s: %w", key, ErrNotInteger)
		}
		n = parsed
	}
	n++
	m.values[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *MemoryBackend) LPush(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return fmt.Errorf("lpush %s: %w", key, ErrWrongType)
	}
	list := m.lists[key]
	next := make([]string, 0, len(list)+1)
	next = append(next, value)
	next = append(next, list...)
	m.lists[key] = next
	return nil
}

func (m *MemoryBackend) LRem(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return fmt.Errorf("lrem %s: %w", key, ErrWrongType)
	}
	list, ok := m.lists[key]
	if !ok {
		return nil
	}
	filtered := list[:0]
	for _, item := range list {
		if item != value {
			filtered = append(filtered, item)
		}
	}
	if len(filtered) == 0 {
		delete(m.lists, key)
		return nil
	}
	m.lists[key] = filtered
	return nil
}

func (m *MemoryBackend) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return nil, fmt.Errorf("lrange %s: %w", key, ErrWrongType)
	}
	list := m.lists[key]
	n := int64(len(list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop {
		return []string{}, nil
	}
	out := make([]string, stop-start+1)
	copy(out, list[start:stop+1])
	return out, nil
}

func (m *MemoryBackend) LLen(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return 0, fmt.Errorf("llen %s: %w", key, ErrWrongType)
	}
	return int64(len(m.lists[key])), nil
}

func (m *MemoryBackend) Ping(context.Context) error { return nil }

func (m *MemoryBackend) Close() error { return nil }

func (m *MemoryBackend) existsLocked(key string) bool {
	if _, ok := m.values[key]; ok {
		return true
	}
	_, ok := m.lists[key]
	return ok
}
