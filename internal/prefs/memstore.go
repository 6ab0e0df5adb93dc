package prefs

import (
	"context"
	"strings"
	"sync"
)

// MemoryStore keeps values in process memory. Used when no backend is configured and in tests.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[strings.TrimSpace(key)]
	return v, ok, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	m.data[strings.TrimSpace(key)] = value
	m.mu.Unlock()
	return nil
}
