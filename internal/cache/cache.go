// Package cache provides the process-wide TTL cache that absorbs repeated
// fetches of the same feed URL. Keys are stable fingerprints of the
// normalized URL so identical URLs always land in the same slot.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

const DefaultTTL = 300 * time.Second

// Stats reports cache effectiveness for the health and metrics endpoints.
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Keys   int   `json:"keys"`
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a mutex-guarded TTL map. Expired entries answer as absent and
// are purged lazily on access. Unbounded by design; the working set is a
// handful of feed URLs.
type Cache struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	clock      func() time.Time

	hits   int64
	misses int64
}

// Config bundles optional cache settings.
type Config struct {
	DefaultTTL time.Duration
	Clock      func() time.Time
}

// New constructs a Cache with the provided defaults.
func New(cfg Config) *Cache {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Cache{
		entries:    make(map[string]entry),
		defaultTTL: ttl,
		clock:      clock,
	}
}

// Key derives the stable fingerprint for a feed URL.
func Key(url string) string {
	digest := sha256.Sum256([]byte(url))
	return "rss:" + hex.EncodeToString(digest[:])
}

// Get returns the stored value and whether it is present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()

	stored, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	if now.After(stored.expiresAt) {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	c.hits++
	return stored.value, true
}

// Set stores value under key for the given TTL; ttl <= 0 uses the default.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	expiresAt := c.clock().Add(ttl)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: expiresAt}
}

// Delete removes key if present.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Flush drops every entry.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// PurgeExpired sweeps expired entries and reports how many were removed.
func (c *Cache) PurgeExpired() int {
	now := c.clock()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, stored := range c.entries {
		if now.After(stored.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Stats returns a snapshot of hit/miss counters and the live key count.
func (c *Cache) Stats() Stats {
	now := c.clock()

	c.mu.RLock()
	defer c.mu.RUnlock()

	keys := 0
	for _, stored := range c.entries {
		if !now.After(stored.expiresAt) {
			keys++
		}
	}
	return Stats{Hits: c.hits, Misses: c.misses, Keys: keys}
}
