package marketdata

import (
	"sync"
	"time"
)

// Cache is a TTL-gated key/value store guarding the expensive generators.
// Entries are never evicted; a stale entry is simply bypassed and overwritten
// on the next miss. Cardinality is bounded by the symbol universe (one quote
// and one chain key per symbol plus a single whale flow key), so unbounded
// growth is not a concern here.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	value    any
	storedAt time.Time
}

func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached value for key if it exists and is younger than the TTL.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		return nil, false
	}
	return entry.value, true
}

// IsCached reports whether a fresh entry exists for key.
func (c *Cache) IsCached(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Put stores value under key with the current timestamp, overwriting any
// prior entry regardless of its age.
func (c *Cache) Put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{value: value, storedAt: c.now()}
}
