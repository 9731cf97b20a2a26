package llm

import (
	"strings"
	"sync"
	"time"
)

// cacheEntry represents a cached oracle answer.
type cacheEntry struct {
	expiry time.Time
	parsed ParsedClassification
}

// classificationCache provides thread-safe caching of oracle answers keyed by item.
type classificationCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newClassificationCache creates a new cache with the specified TTL.
// A zero or negative TTL disables caching and returns nil.
func newClassificationCache(ttl time.Duration) *classificationCache {
	if ttl <= 0 {
		return nil
	}

	cache := &classificationCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

func cacheKey(item string) string {
	return strings.ToLower(strings.TrimSpace(item))
}

// get retrieves an answer from the cache if it exists and hasn't expired.
func (c *classificationCache) get(item string) (ParsedClassification, bool) {
	if c == nil {
		return ParsedClassification{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[cacheKey(item)]
	if !exists || time.Now().After(entry.expiry) {
		return ParsedClassification{}, false
	}
	return entry.parsed, true
}

// set stores an answer in the cache.
func (c *classificationCache) set(item string, parsed ParsedClassification) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(item)] = cacheEntry{
		parsed: parsed,
		expiry: time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *classificationCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// size returns the number of entries in the cache.
func (c *classificationCache) size() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *classificationCache) Close() {
	if c != nil {
		close(c.stopCh)
	}
}
