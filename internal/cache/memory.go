// Package cache provides a TTL-bounded in-memory cache for expensive
// catalog aggregates.
package cache

import (
	"sync"
	"time"

	"cadenza/pkg/models"
)

type entry struct {
	value     interface{}
	expiresAt time.Time
}

// MemoryCache is a concurrency-safe TTL cache. Expired entries are
// invisible to readers immediately and reclaimed by a periodic sweep.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
}

const sweepInterval = 5 * time.Minute

// NewMemoryCache creates a cache whose entries live for ttl.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	c := &MemoryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
	go c.sweep()
	return c
}

// Set stores a value under key, resetting its lifetime.
func (c *MemoryCache) Set(key string, value interface{}) {
	c.mu.Lock()
	c.entries[key] = entry{value: value, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Get retrieves a live value from the cache.
func (c *MemoryCache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all items from the cache.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		c.mu.Lock()
		for key, e := range c.entries {
			if now.After(e.expiresAt) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}

// StatsCache caches library-wide aggregates (stats, genre counts) that
// are recomputed with full-table scans. A scan invalidates it.
type StatsCache struct {
	*MemoryCache
}

const (
	statsKey  = "library:stats"
	genresKey = "library:genres"
)

// NewStatsCache creates an aggregate cache with a short lifetime so
// stale counters self-correct even without explicit invalidation.
func NewStatsCache() *StatsCache {
	return &StatsCache{MemoryCache: NewMemoryCache(5 * time.Minute)}
}

func (sc *StatsCache) SetStats(stats *models.LibraryStats) {
	sc.Set(statsKey, stats)
}

func (sc *StatsCache) GetStats() (*models.LibraryStats, bool) {
	value, exists := sc.Get(statsKey)
	if !exists {
		return nil, false
	}
	stats, ok := value.(*models.LibraryStats)
	return stats, ok
}

func (sc *StatsCache) SetGenres(genres []models.GenreCount) {
	sc.Set(genresKey, genres)
}

func (sc *StatsCache) GetGenres() ([]models.GenreCount, bool) {
	value, exists := sc.Get(genresKey)
	if !exists {
		return nil, false
	}
	genres, ok := value.([]models.GenreCount)
	return genres, ok
}

// Invalidate drops the cached aggregates after catalog mutations.
func (sc *StatsCache) Invalidate() {
	sc.Delete(statsKey)
	sc.Delete(genresKey)
}
