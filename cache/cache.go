// Package cache keeps recent product analyses so the same identifier
// showing up across runs does not pay for a second model call.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/shelf-labs/scout/models"
)

// entry holds a cached analysis with its creation timestamp.
type entry struct {
	analysis  *models.ProductAnalysis
	createdAt time.Time
}

// Cache is a simple in-memory cache for product analyses.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	maxAge     time.Duration
}

// New creates a Cache holding at most maxEntries analyses, each valid for
// maxAge. A background goroutine evicts expired entries every 5 minutes.
// A maxAge of zero disables the cache entirely.
func New(maxEntries int, maxAge time.Duration) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		maxAge:     maxAge,
	}

	if maxAge > 0 {
		go c.cleanupLoop()
	}
	return c
}

// Key generates a cache key from the identifier, the model, and whether the
// brand-reputation variant is in play. Analyses from different variants are
// not interchangeable.
func Key(asin, model string, brandReputation bool) string {
	h := sha256.New()
	h.Write([]byte(asin))
	h.Write([]byte("|"))
	h.Write([]byte(model))
	if brandReputation {
		h.Write([]byte("|brand"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached analysis if it exists and is still fresh.
func (c *Cache) Get(key string) (*models.ProductAnalysis, bool) {
	if c.maxAge <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Since(e.createdAt) > c.maxAge {
		return nil, false
	}

	return e.analysis, true
}

// Set stores an analysis. If the cache is at capacity, a random entry is
// evicted to make room.
func (c *Cache) Set(key string, analysis *models.ProductAnalysis) {
	if c.maxAge <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Evict one random entry if at capacity (map iteration is random in Go).
	if len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}

	c.store[key] = &entry{
		analysis:  analysis,
		createdAt: time.Now(),
	}
}

// cleanupLoop evicts expired entries every 5 minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-c.maxAge)
		c.mu.Lock()
		for k, e := range c.store {
			if e.createdAt.Before(cutoff) {
				delete(c.store, k)
			}
		}
		c.mu.Unlock()
	}
}
