package tokenstore

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrMissing is returned by KV.Get for absent or expired keys.
var ErrMissing = errors.New("tokenstore: key missing")

// KV is an expiring key/value store. A zero ttl means the entry never
// expires. Expired entries are removed on read.
type KV interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
}

type memoryItem struct {
	value     string
	expiresAt time.Time // zero means no expiry
}

// MemoryKV keeps entries in process memory.
type MemoryKV struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

// NewMemoryKV returns an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return NewMemoryKVWithClock(time.Now)
}

// NewMemoryKVWithClock is NewMemoryKV with an injected clock.
func NewMemoryKVWithClock(now func() time.Time) *MemoryKV {
	return &MemoryKV{items: make(map[string]memoryItem), now: now}
}

func (m *MemoryKV) Set(_ context.Context, key, value string, ttl time.Duration) error {
	item := memoryItem{value: value}
	if ttl > 0 {
		item.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.items[key] = item
	m.mu.Unlock()
	return nil
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return "", ErrMissing
	}
	if !item.expiresAt.IsZero() && !m.now().Before(item.expiresAt) {
		delete(m.items, key)
		return "", ErrMissing
	}
	return item.value, nil
}

func (m *MemoryKV) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}
