package cache

import (
	"context"
	"sync"
)

// MemoryCache is a process-local Cache
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]string)}
}

// Get implements Cache
func (m *MemoryCache) Get(_ context.Context, url string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	path, ok := m.entries[url]
	return path, ok, nil
}

// Put implements Cache
func (m *MemoryCache) Put(_ context.Context, url, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[url] = path
	return nil
}

// Delete implements Cache
func (m *MemoryCache) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, url)
	return nil
}

// Len returns the number of entries
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
