package client

import (
	"sync"
	"time"
)

// cacheEntry is one cached GET response body
type cacheEntry struct {
	body     []byte
	storedAt time.Time
}

// Cache is a TTL-bounded response cache keyed by request path. Entries past
// the TTL are treated as absent; there is no background eviction, stale
// entries are simply overwritten on the next successful read.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

// NewCache creates a cache with the given TTL. The clock is injectable so
// tests can control expiry without sleeping.
func NewCache(ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached body for key if it is still fresh. A cache with a
// non-positive TTL never holds anything, which is how polling clients opt
// out of caching entirely.
func (c *Cache) Get(key string) ([]byte, bool) {
	if c.ttl <= 0 {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return entry.body, true
}

// Set stores a response body under key, stamped now.
func (c *Cache) Set(key string, body []byte) {
	if c.ttl <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Copy so callers mutating their slice cannot corrupt cached reads.
	stored := make([]byte, len(body))
	copy(stored, body)
	c.entries[key] = cacheEntry{body: stored, storedAt: c.now()}
}

// Clear drops every entry. Called after any mutation since the client cannot
// know which cached reads a write invalidated.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of entries currently held, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
