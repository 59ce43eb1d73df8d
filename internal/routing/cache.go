package routing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/ride-booking/internal/models"
)

// Cache is a tiny in-memory cache for routes keyed by coords.
type Cache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

type cacheEntry struct {
	v  models.Route
	ts time.Time
}

// NewCache creates a cache with the provided TTL.
func NewCache(ttl time.Duration) *Cache {
	return &Cache{store: make(map[string]cacheEntry), ttl: ttl, now: time.Now}
}

func keyFor(a, b models.Coord) string {
	return fmtCoord(a) + "->" + fmtCoord(b)
}

func fmtCoord(c models.Coord) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Get returns cached value and true if present and not expired.
func (c *Cache) Get(a, b models.Coord) (models.Route, bool) {
	k := keyFor(a, b)
	c.mu.RLock()
	e, ok := c.store[k]
	c.mu.RUnlock()
	if !ok {
		return models.Route{}, false
	}
	if c.now().Sub(e.ts) > c.ttl {
		c.mu.Lock()
		delete(c.store, k)
		c.mu.Unlock()
		return models.Route{}, false
	}
	return e.v, true
}

// Set stores a value in the cache.
func (c *Cache) Set(a, b models.Coord, v models.Route) {
	k := keyFor(a, b)
	c.mu.Lock()
	c.store[k] = cacheEntry{v: v, ts: c.now()}
	c.mu.Unlock()
}

// Cached serves repeated lookups of the same pair from a Cache.
type Cached struct {
	Next  Resolver
	Cache *Cache
}

func (c Cached) Resolve(ctx context.Context, from, to models.Coord) (models.Route, error) {
	if r, ok := c.Cache.Get(from, to); ok {
		return r, nil
	}
	r, err := c.Next.Resolve(ctx, from, to)
	if err != nil {
		return r, err
	}
	c.Cache.Set(from, to, r)
	return r, nil
}
