package redis

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryClient is a process-local RedisClient used when no Redis address is
// configured and in tests.
type MemoryClient struct {
	mu   sync.Mutex
	data map[string]memoryEntry
	now  func() time.Time
}

func NewMemoryClient() *MemoryClient {
	return &MemoryClient{data: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryClient) getLocked(key string) (memoryEntry, bool) {
	e, ok := m.data[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.data, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (m *MemoryClient) setLocked(key string, value interface{}, expiration time.Duration) {
	e := memoryEntry{value: stringify(value)}
	if expiration > 0 {
		e.expiresAt = m.now().Add(expiration)
	}
	m.data[key] = e
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func (m *MemoryClient) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.getLocked(key)
	if !ok {
		return "", ErrKeyNotFound
	}
	return e.value, nil
}

func (m *MemoryClient) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setLocked(key, value, expiration)
	return nil
}

func (m *MemoryClient) SetNX(_ context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.getLocked(key); ok {
		return false, nil
	}
	m.setLocked(key, value, expiration)
	return true, nil
}

func (m *MemoryClient) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *MemoryClient) Close() error {
	return nil
}
