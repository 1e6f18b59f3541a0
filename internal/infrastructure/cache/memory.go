// Package cache provides the in-process analysis cache.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/snacksmith/backend/internal/domain"
)

type entry struct {
	value   interface{}
	expires time.Time
}

// Stats is a point-in-time view of cache usage
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Options tunes a MemoryCache. Zero values pick defaults.
type Options struct {
	MaxEntries      int
	CleanupInterval time.Duration
}

// MemoryCache is a concurrency-safe TTL cache. Nutrition analyses are stored
// as deep copies; any other value is normalized through JSON.
type MemoryCache struct {
	mu        sync.RWMutex
	data      map[string]entry
	max       int
	hits      int64
	misses    int64
	evictions int64
	now       func() time.Time
	log       *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

var _ domain.CacheRepository = (*MemoryCache)(nil)

// NewMemoryCache creates the cache and starts its cleanup loop. Call Close to stop it.
func NewMemoryCache(opts Options, logger *slog.Logger) *MemoryCache {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = 1000
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 10 * time.Minute
	}
	c := &MemoryCache{
		data: make(map[string]entry),
		max:  opts.MaxEntries,
		now:  time.Now,
		log:  logger,
		stop: make(chan struct{}),
	}
	go c.cleanupLoop(opts.CleanupInterval)
	return c
}

func (c *MemoryCache) Get(ctx context.Context, key string) (interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok || !c.now().Before(e.expires) {
		c.misses++
		return nil, domain.ErrCacheMiss
	}
	c.hits++
	if a, ok := e.value.(*domain.NutritionAnalysis); ok {
		clone := a.Clone()
		return &clone, nil
	}
	return e.value, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	stored, err := normalize(value)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && len(c.data) >= c.max {
		c.evictLocked()
	}
	c.data[key] = entry{value: stored, expires: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.data[key]
	return ok && c.now().Before(e.expires), nil
}

// Stats reports entry count and hit/miss counters
func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Entries: len(c.data), Hits: c.hits, Misses: c.misses, Evictions: c.evictions}
}

// Size returns the number of stored entries, expired ones included
func (c *MemoryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Clear drops every entry
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]entry)
}

// Close stops the cleanup loop. Safe to call more than once.
func (c *MemoryCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func normalize(value interface{}) (interface{}, error) {
	if a, ok := value.(*domain.NutritionAnalysis); ok && a != nil {
		clone := a.Clone()
		return &clone, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	var out interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// evictLocked drops expired entries, or the entry closest to expiry when none are.
func (c *MemoryCache) evictLocked() {
	if n := c.purgeLocked(); n > 0 {
		return
	}
	var victim string
	var earliest time.Time
	for k, e := range c.data {
		if victim == "" || e.expires.Before(earliest) {
			victim, earliest = k, e.expires
		}
	}
	if victim != "" {
		delete(c.data, victim)
		c.evictions++
	}
}

func (c *MemoryCache) purgeLocked() int {
	now := c.now()
	n := 0
	for k, e := range c.data {
		if !now.Before(e.expires) {
			delete(c.data, k)
			n++
		}
	}
	c.evictions += int64(n)
	return n
}

func (c *MemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mu.Lock()
			n := c.purgeLocked()
			c.mu.Unlock()
			if n > 0 {
				c.log.Debug("Expired cache entries removed", "count", n)
			}
		}
	}
}
