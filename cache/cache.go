// Package cache provides the process-lifetime lookup cache shared by
// concurrent requests.
package cache

import (
	"strings"
	"sync"
)

// Cache is an append-only in-memory map. Entries are never evicted; a later
// Put for the same key overwrites. It is safe for concurrent use.
type Cache[V any] struct {
	mu    sync.RWMutex
	store map[string]V
}

// New creates an empty Cache.
func New[V any]() *Cache[V] {
	return &Cache[V]{store: make(map[string]V)}
}

// Key normalises a lookup key by trimming surrounding whitespace.
func Key(s string) string {
	return strings.TrimSpace(s)
}

// Get returns the cached value for key and whether it was present.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	v, ok := c.store[key]
	c.mu.RUnlock()
	return v, ok
}

// Put stores v under key.
func (c *Cache[V]) Put(key string, v V) {
	c.mu.Lock()
	c.store[key] = v
	c.mu.Unlock()
}

// Len returns the number of cached keys.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}
