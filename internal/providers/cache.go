package providers

import (
	"fmt"
	"sync"
	"time"

	"github.com/smartcity/trafficsim/internal/domain"
)

// RoadNetworkCache is the one process-wide state the core depends on:
// a single value with an explicit lifetime, never implicitly mutated.
// Keyed by (lat, lng rounded to 4 decimals, radius).
type RoadNetworkCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	data NetworkData
	expires time.Time
}

// NewRoadNetworkCache initializes a cache with the given TTL
// (default 10 minutes).
func NewRoadNetworkCache(ttl time.Duration) *RoadNetworkCache {
	return &RoadNetworkCache{
		ttl: ttl,
		entries: make(map[string]cacheEntry),
	}
}

func cacheKey(center domain.Coordinate, radiusKm float64) string {
	return fmt.Sprintf("%.4f,%.4f,%.2f", center[1], center[0], radiusKm)
}

// Lookup returns a cached entry if present and unexpired.
func (c *RoadNetworkCache) Lookup(center domain.Coordinate, radiusKm float64) (NetworkData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[cacheKey(center, radiusKm)]
	if !ok || time.Now().After(e.expires) {
		return NetworkData{}, false
	}
	return e.data, true
}

// Set stores a fetch result with the cache's configured TTL.
func (c *RoadNetworkCache) Set(center domain.Coordinate, radiusKm float64, data NetworkData) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(center, radiusKm)] = cacheEntry{data: data, expires: time.Now().Add(c.ttl)}
}

// Clear empties the cache.
func (c *RoadNetworkCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
