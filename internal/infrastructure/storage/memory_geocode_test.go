package storage

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGeocodeUpsert(t *testing.T) {
	t.Parallel()

	cache := NewMemoryGeocodeCache()
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, "Paris", "FR", 48.85, 2.35))
	require.NoError(t, cache.Store(ctx, "Paris", "FR", 48.86, 2.36))

	entry, found, err := cache.Lookup(ctx, "Paris", "FR")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 48.86, entry.Latitude, 1e-9, "second store wins")
	assert.InDelta(t, 2.36, entry.Longitude, 1e-9)
	assert.Equal(t, 1, cache.Len(), "same key must not grow the cache")
}

func TestMemoryGeocodeMiss(t *testing.T) {
	t.Parallel()

	cache := NewMemoryGeocodeCache()
	_, found, err := cache.Lookup(context.Background(), "Atlantis", "XX")
	require.NoError(t, err)
	assert.False(t, found, "a miss is found=false, never an error")
}

func TestMemoryGeocodeKeyIncludesCountry(t *testing.T) {
	t.Parallel()

	cache := NewMemoryGeocodeCache()
	ctx := context.Background()

	require.NoError(t, cache.Store(ctx, "Springfield", "US", 39.80, -89.64))
	require.NoError(t, cache.Store(ctx, "Springfield", "CA", 44.05, -80.93))

	assert.Equal(t, 2, cache.Len())

	entry, found, err := cache.Lookup(ctx, "Springfield", "CA")
	require.NoError(t, err)
	require.True(t, found)
	assert.InDelta(t, 44.05, entry.Latitude, 1e-9)
}

func TestMemoryGeocodeUpdatedAt(t *testing.T) {
	t.Parallel()

	cache := NewMemoryGeocodeCache()
	stamp := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return stamp }

	require.NoError(t, cache.Store(context.Background(), "Oslo", "NO", 59.91, 10.75))

	entry, found, err := cache.Lookup(context.Background(), "Oslo", "NO")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, stamp, entry.UpdatedAt)
}

func TestMemoryGeocodeConcurrentStores(t *testing.T) {
	t.Parallel()

	cache := NewMemoryGeocodeCache()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = cache.Store(ctx, "Paris", "FR", 48.0+float64(i)/100, 2.35)
			_, _, _ = cache.Lookup(ctx, "Paris", "FR")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, cache.Len(), "concurrent stores of one key resolve to one row")
}

func TestBuildGeocodeUpsert(t *testing.T) {
	t.Parallel()

	query, args, err := buildGeocodeUpsert("Paris", "FR", 48.85, 2.35)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(query, "INSERT INTO geocode_cache"), "query: %s", query)
	assert.Contains(t, query, "ON CONFLICT (city, country) DO UPDATE")
	assert.Contains(t, query, "latitude = EXCLUDED.latitude")
	assert.Contains(t, query, "updated_at = NOW()")

	require.Len(t, args, 4, "NOW() rides in the SQL, not the args")
	assert.Equal(t, "Paris", args[0])
	assert.Equal(t, "FR", args[1])

	for i := 1; i <= len(args); i++ {
		assert.Contains(t, query, fmt.Sprintf("$%d", i))
	}
}
