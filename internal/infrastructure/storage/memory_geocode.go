package storage

import (
	"context"
	"sync"
	"time"

	"SentinelAI/internal/domain"
	"SentinelAI/internal/ports"
)

// MemoryGeocodeCache is the process-local cache used in tests and when
// no database is configured. Mutation is atomic per key under one lock;
// concurrent stores resolve last-writer-wins like the Postgres upsert.
type MemoryGeocodeCache struct {
	mu      sync.RWMutex
	entries map[geocodeKey]domain.GeocodeEntry
	now     func() time.Time
}

type geocodeKey struct {
	city    string
	country string
}

var _ ports.GeocodeCache = (*MemoryGeocodeCache)(nil)

// NewMemoryGeocodeCache builds an empty cache.
func NewMemoryGeocodeCache() *MemoryGeocodeCache {
	return &MemoryGeocodeCache{
		entries: map[geocodeKey]domain.GeocodeEntry{},
		now:     time.Now,
	}
}

// Lookup returns the cached entry; a miss is found=false, never an error.
func (c *MemoryGeocodeCache) Lookup(ctx context.Context, city, country string) (domain.GeocodeEntry, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[geocodeKey{city, country}]
	return entry, ok, nil
}

// Store upserts the key, refreshing coordinates and UpdatedAt.
func (c *MemoryGeocodeCache) Store(ctx context.Context, city, country string, lat, lon float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[geocodeKey{city, country}] = domain.GeocodeEntry{
		City:      city,
		Country:   country,
		Latitude:  lat,
		Longitude: lon,
		UpdatedAt: c.now(),
	}
	return nil
}

// Len reports the number of cached keys.
func (c *MemoryGeocodeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
