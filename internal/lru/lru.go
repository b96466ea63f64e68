// Package lru provides a small thread-safe LRU cache with optional TTL.
// It backs the model client cache and the per-user integration client
// cache; both hold a bounded number of live clients keyed by identity.
package lru

import (
	"container/list"
	"sync"
	"time"
)

// Cache is a bounded, thread-safe LRU cache. A zero ttl disables
// expiration.
type Cache[V any] struct {
	maxEntries int
	ttl        time.Duration

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // front = most recently used

	hits   int64
	misses int64
}

type cacheEntry[V any] struct {
	key        string
	value      V
	expiration time.Time
}

// New creates a cache holding at most maxEntries values.
func New[V any](maxEntries int, ttl time.Duration) *Cache[V] {
	if maxEntries <= 0 {
		maxEntries = 100
	}
	return &Cache[V]{
		maxEntries: maxEntries,
		ttl:        ttl,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Get retrieves a value, refreshing its recency.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}

	entry := elem.Value.(*cacheEntry[V])
	if !entry.expiration.IsZero() && time.Now().After(entry.expiration) {
		c.removeElement(elem)
		c.misses++
		var zero V
		return zero, false
	}

	c.order.MoveToFront(elem)
	c.hits++
	return entry.value, true
}

// Set stores a value, evicting the least recently used entry when full.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		entry := elem.Value.(*cacheEntry[V])
		entry.value = value
		entry.expiration = c.expiration()
		c.order.MoveToFront(elem)
		return
	}

	elem := c.order.PushFront(&cacheEntry[V]{
		key:        key,
		value:      value,
		expiration: c.expiration(),
	})
	c.entries[key] = elem

	if c.order.Len() > c.maxEntries {
		if oldest := c.order.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// GetOrCreate returns the cached value for key, invoking create and
// caching its result on a miss.
func (c *Cache[V]) GetOrCreate(key string, create func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := create()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v)
	return v, nil
}

// Delete removes a key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.hits = 0
	c.misses = 0
}

// Size returns the current entry count.
func (c *Cache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats reports hit/miss counters.
func (c *Cache[V]) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func (c *Cache[V]) expiration() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(c.ttl)
}

// removeElement must be called with the lock held.
func (c *Cache[V]) removeElement(elem *list.Element) {
	entry := elem.Value.(*cacheEntry[V])
	delete(c.entries, entry.key)
	c.order.Remove(elem)
}
