// Package memory provides in-process implementations of the session storage ports.
package memory

import (
	"sort"
	"sync"

	"github.com/target/mmk-ui-shell/internal/ports"
)

var _ ports.TabStorage = (*TabStorage)(nil)

// TabStorage is storage scoped to a single shell instance.
type TabStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewTabStorage returns empty tab storage.
func NewTabStorage() *TabStorage {
	return &TabStorage{items: make(map[string]string)}
}

// Get returns the value for key.
func (s *TabStorage) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Set stores value under key.
func (s *TabStorage) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

// Remove deletes key.
func (s *TabStorage) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// Clear deletes every key.
func (s *TabStorage) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.items)
}

// Keys returns the stored keys sorted.
func (s *TabStorage) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
