package remote

import (
	"context"
	"sync"
)

// Cache holds one Collection per scope key, e.g. the comments of each
// resource, so every scope has a single source of truth.
type Cache[K comparable, T any] struct {
	build func(K) *Collection[T]

	mu      sync.Mutex
	entries map[K]*Collection[T]
}

// NewCache creates a cache that builds collections lazily with build.
func NewCache[K comparable, T any](build func(K) *Collection[T]) *Cache[K, T] {
	return &Cache[K, T]{
		build:   build,
		entries: make(map[K]*Collection[T]),
	}
}

// Get returns the collection for key, creating it if needed.
func (c *Cache[K, T]) Get(key K) *Collection[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, ok := c.entries[key]
	if !ok {
		col = c.build(key)
		c.entries[key] = col
	}
	return col
}

// Peek returns the collection for key without creating it.
func (c *Cache[K, T]) Peek(key K) (*Collection[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	col, ok := c.entries[key]
	return col, ok
}

// Invalidate reloads the collection for key if it exists.
func (c *Cache[K, T]) Invalidate(ctx context.Context, key K) error {
	col, ok := c.Peek(key)
	if !ok {
		return nil
	}
	return col.Reload(ctx)
}

// Drop forgets the collection for key.
func (c *Cache[K, T]) Drop(key K) {
	c.mu.Lock()
	col, ok := c.entries[key]
	delete(c.entries, key)
	c.mu.Unlock()
	if ok {
		col.Close()
	}
}

// Clear forgets every collection.
func (c *Cache[K, T]) Clear() {
	c.mu.Lock()
	entries := c.entries
	c.entries = make(map[K]*Collection[T])
	c.mu.Unlock()
	for _, col := range entries {
		col.Close()
	}
}

// Len reports how many scopes are cached.
func (c *Cache[K, T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
