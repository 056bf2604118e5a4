// Package cache is a small in-memory TTL store, used to keep recent
// commentary lines so a replayed track within the window skips the model call.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Default cache configuration
const (
	DefaultTTL      = 30 * time.Minute
	CleanupInterval = 1 * time.Minute // Expired entry cleanup
)

// CommentaryKey returns the cache key for one (album, track) pair.
func CommentaryKey(album, track string) string {
	return fmt.Sprintf("commentary:%s/%s", album, track)
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a simple in-memory key-value store with TTL expiration.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	items   map[string]entry
	hits    atomic.Int64
	misses  atomic.Int64
	stopCh  chan struct{}
	stopped chan struct{}
}

// New creates a new cache that periodically evicts expired entries.
// A non-positive ttl falls back to DefaultTTL.
func New(ttl time.Duration) (*Cache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		items:   make(map[string]entry),
		stopCh:  make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go c.cleanup()
	return c, nil
}

func (c *Cache) cleanup() {
	defer close(c.stopped)
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.evictExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *Cache) evictExpired() {
	now := time.Now()
	c.mu.Lock()
	for k, e := range c.items {
		if now.After(e.expiresAt) {
			delete(c.items, k)
		}
	}
	c.mu.Unlock()
}

// Get retrieves a value from cache. Returns (nil, false) on miss or expiry.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return e.value, true
}

// Set stores a value with the cache's TTL.
func (c *Cache) Set(key string, value any) error {
	c.mu.Lock()
	c.items[key] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
	return nil
}

// Stats returns cache statistics for the stats endpoint.
func (c *Cache) Stats() map[string]any {
	hits := c.hits.Load()
	misses := c.misses.Load()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	c.mu.RLock()
	keyCount := len(c.items)
	c.mu.RUnlock()
	return map[string]any{
		"hits":      hits,
		"misses":    misses,
		"hit_rate":  hitRate,
		"key_count": keyCount,
		"total":     total,
	}
}

// Close stops the cleanup goroutine.
func (c *Cache) Close() error {
	close(c.stopCh)
	<-c.stopped
	return nil
}
