package geocode

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vashkevichs/citypulse/internal/place"
)

// regionEntry is one memoized lookup outcome. Failed lookups are stored
// too so a bad coordinate does not hammer the provider.
type regionEntry struct {
	info     place.RegionInfo
	err      error
	storedAt time.Time
}

// RegionCache memoizes region lookups under coordinates rounded to three
// decimal places (~100 m). Entries expire after ttl and the cache never
// holds more than maxEntries; a background sweep evicts expired entries.
type RegionCache struct {
	mu sync.Mutex

	provider   RegionProvider
	entries    map[string]regionEntry
	ttl        time.Duration
	maxEntries int
}

// NewRegionCache wraps a provider with a bounded memoization layer.
// If maxEntries is <= 0 it defaults to 1024; if ttl is <= 0 entries never
// expire (bounded by size only).
func NewRegionCache(provider RegionProvider, ttl time.Duration, maxEntries int) *RegionCache {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &RegionCache{
		provider:   provider,
		entries:    make(map[string]regionEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
	}
}

// cacheKey rounds coordinates to 3 decimal places so near-duplicate
// lookups share one provider call.
func cacheKey(lat, lon float64) string {
	return fmt.Sprintf("%.3f,%.3f", lat, lon)
}

// Lookup returns the memoized region for the coordinates, calling the
// underlying provider on a miss. Provider failures are cached under the
// same key and replayed until the entry expires.
func (c *RegionCache) Lookup(ctx context.Context, lat, lon float64) (place.RegionInfo, error) {
	key := cacheKey(lat, lon)

	c.mu.Lock()
	if entry, ok := c.entries[key]; ok && !c.expired(entry, time.Now()) {
		c.mu.Unlock()
		return entry.info, entry.err
	}
	c.mu.Unlock()

	info, err := c.provider.Lookup(ctx, lat, lon)

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = regionEntry{info: info, err: err, storedAt: time.Now()}

	return info, err
}

// Sweep removes expired entries and returns how many were evicted.
func (c *RegionCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for key, entry := range c.entries {
		if c.expired(entry, now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len reports the current number of cached entries.
func (c *RegionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *RegionCache) expired(entry regionEntry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(entry.storedAt) > c.ttl
}

// evictOldest drops the entry with the oldest storedAt. Caller holds the lock.
func (c *RegionCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.storedAt.Before(oldest) {
			oldestKey = key
			oldest = entry.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}
