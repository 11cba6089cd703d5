package weather

import (
	"sync"
	"time"
)

// responseCache is a small TTL cache for raw vendor payloads, keyed by
// request kind. It keeps the bridge from hammering the vendor API when the
// hourly cron and on-demand queries land close together.
type responseCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
	now     func() time.Time
}

type cacheEntry struct {
	payload []byte
	stored  time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *responseCache) get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.stored) > c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.payload, true
}

func (c *responseCache) put(key string, payload []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{payload: payload, stored: c.now()}
}
