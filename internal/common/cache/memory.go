package cache

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// MemoryCache implements Cache with an in-process map.
// It backs the rate limiter when Redis is not configured; counters are
// then local to the process, which is the deployment model of this
// service anyway.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryEntry
}

type memoryEntry struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryEntry)}
}

func (m *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]memoryEntry)
	return nil
}

// getLocked returns the live entry for key, dropping it when expired.
// Caller must hold mu.
func (m *MemoryCache) getLocked(key string) (memoryEntry, bool) {
	entry, ok := m.items[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.items, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (m *MemoryCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.getLocked(key)
	if !ok {
		return "", nil
	}
	return entry.value, nil
}

func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = memoryEntry{value: fmt.Sprint(value), expiresAt: expiry(ttl)}
	return nil
}

func (m *MemoryCache) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.getLocked(key); ok {
		return false, nil
	}
	m.items[key] = memoryEntry{value: fmt.Sprint(value), expiresAt: expiry(ttl)}
	return true, nil
}

func (m *MemoryCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.items, key)
	}
	return nil
}

func (m *MemoryCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.getLocked(key)
	if !ok {
		return nil
	}
	entry.expiresAt = expiry(ttl)
	m.items[key] = entry
	return nil
}

func (m *MemoryCache) TTL(ctx context.Context, key string) (time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.getLocked(key)
	if !ok {
		return -2, nil
	}
	if entry.expiresAt.IsZero() {
		return -1, nil
	}
	return time.Until(entry.expiresAt), nil
}

func (m *MemoryCache) Incr(ctx context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.getLocked(key)
	count := int64(0)
	if ok {
		parsed, err := strconv.ParseInt(entry.value, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("value at %s is not an integer", key)
		}
		count = parsed
	}
	count++
	entry.value = strconv.FormatInt(count, 10)
	m.items[key] = entry
	return count, nil
}

func expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}
