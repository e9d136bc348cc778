// Package cache memoizes rendered highlight markup across documents.
package cache

import (
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// DefaultTTL is how long rendered markup stays cached when no TTL is given.
const DefaultTTL = 30 * time.Minute

// Entry represents a cached rendering
type Entry struct {
	HTML      string
	ExpiresAt time.Time
}

// IsExpired returns true if the entry has expired
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Cache defines the interface for highlight caching
type Cache interface {
	// Get retrieves rendered markup from the cache
	Get(key string) (string, bool)

	// Set stores rendered markup with the given TTL
	Set(key string, html string, ttl time.Duration)

	// Invalidate removes an entry from the cache
	Invalidate(key string)

	// InvalidateAll removes all entries from the cache
	InvalidateAll()
}

// Key derives the cache key of a highlight request. The source is hashed so
// that edits to a file never hit a stale entry.
func Key(lang, meta, code string) string {
	d := xxhash.New()
	_, _ = d.WriteString(lang)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(meta)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(code)
	return lang + ":" + strconv.FormatUint(d.Sum64(), 16)
}

// MemoryCache is an in-memory cache implementation with TTL support
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*Entry

	// For background cleanup
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once // Ensures Stop() is idempotent
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	c := &MemoryCache{
		entries:         make(map[string]*Entry),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get retrieves rendered markup from the cache
func (c *MemoryCache) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, exists := c.entries[key]
	c.mu.RUnlock()

	if !exists {
		return "", false
	}

	if entry.IsExpired() {
		c.Invalidate(key)
		return "", false
	}

	return entry.HTML, true
}

// Set stores rendered markup with the given TTL. A non-positive TTL uses DefaultTTL.
func (c *MemoryCache) Set(key string, html string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	entry := &Entry{
		HTML:      html,
		ExpiresAt: time.Now().Add(ttl),
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
}

// Invalidate removes an entry from the cache
func (c *MemoryCache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// InvalidateAll removes all entries from the cache
func (c *MemoryCache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]*Entry)
	c.mu.Unlock()
}

// cleanupLoop periodically removes expired entries
func (c *MemoryCache) cleanupLoop() {
	ticker := time.NewTicker(c.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCleanup:
			return
		}
	}
}

func (c *MemoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.ExpiresAt) {
			delete(c.entries, key)
		}
	}
}

// Stop stops the background cleanup goroutine
// Safe to call multiple times
func (c *MemoryCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCleanup)
	})
}

// Len returns the number of entries in the cache (for testing)
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
