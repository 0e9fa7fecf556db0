package departures

import (
	"context"
	"sync"
	"time"
)

// Cache holds raw feed bodies per stop for a short TTL. Bodies are cached
// instead of parsed records because minutes depend on the time of parsing.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	body      string
	fetchedAt time.Time
	expiresAt time.Time
}

// NewCache creates a cache with the given TTL. A zero TTL disables caching.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// Get returns the cached body for a stop and when it was downloaded, if
// present and fresh.
func (c *Cache) Get(stopID string) (string, time.Time, bool) {
	if c.ttl <= 0 {
		return "", time.Time{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[stopID]
	if !ok || time.Now().After(entry.expiresAt) {
		return "", time.Time{}, false
	}
	return entry.body, entry.fetchedAt, true
}

// Set stores a body for a stop, downloaded at fetchedAt. The entry expires
// one TTL after it is stored.
func (c *Cache) Set(stopID, body string, fetchedAt time.Time) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[stopID] = cacheEntry{
		body:      body,
		fetchedAt: fetchedAt,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// RunCleanup evicts expired entries every interval until ctx is done.
func (c *Cache) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-ctx.Done():
			return
		}
	}
}

func (c *Cache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for k, v := range c.entries {
		if now.After(v.expiresAt) {
			delete(c.entries, k)
		}
	}
}
