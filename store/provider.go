// Package store keeps the last analysis result of each kind durably, so a
// report survives restarts without asking the backend again.
package store

import (
	"fmt"
	"sync"
)

// Provider is a durable key-value slot. Get returns nil, nil for a key that
// was never written or has been deleted.
type Provider interface {
	Get(key string) ([]byte, error)
	Set(key string, val []byte) error
	Delete(key string) error
	Close() error
}

// MemoryProvider keeps values in process memory. Values survive a Document
// being reopened over the same provider, which is what tests use to simulate
// a reload.
type MemoryProvider struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{data: make(map[string][]byte)}
}

func (m *MemoryProvider) Get(key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryProvider) Set(key string, val []byte) error {
	if key == "" {
		return fmt.Errorf("empty key")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), val...)
	return nil
}

func (m *MemoryProvider) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MemoryProvider) Close() error { return nil }

// Keys lists the stored keys.
func (m *MemoryProvider) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys
}
