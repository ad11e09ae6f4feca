// Package geocoder defines the Geocoder capability (§6) and a mandatory
// local cache wrapper around it, keyed by rounded coordinates so nearby
// lookups within the same ~100m cell never leave the process.
package geocoder

import (
	"context"
	"fmt"
	"math"
	"sync"
)

// Geocoder reverse-geocodes a coordinate pair to a place name. A concrete
// implementation (network call, offline database) lives outside this
// module; the core only calls through this interface.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (name string, ok bool, err error)
}

// roundPrecision controls the cache-key rounding: 3 decimal degrees is
// roughly 111 meters at the equator, a reasonable "same place" bucket for
// photo GPS EXIF data.
const roundPrecision = 3

// CachedGeocoder wraps a Geocoder with the mandatory local cache the spec
// requires (§6 "with a mandatory local cache keyed by rounded
// coordinates"). It is safe for concurrent use.
type CachedGeocoder struct {
	inner Geocoder

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	name string
	ok   bool
}

// NewCachedGeocoder wraps inner with a local cache.
func NewCachedGeocoder(inner Geocoder) *CachedGeocoder {
	return &CachedGeocoder{inner: inner, cache: make(map[string]cacheEntry)}
}

// Reverse returns the cached result for (lat, lon) if present, else calls
// through to the wrapped Geocoder and caches the result (including a
// negative "not found" result, so repeated misses don't re-dial).
func (c *CachedGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, bool, error) {
	key := roundKey(lat, lon)

	c.mu.RLock()
	entry, found := c.cache[key]
	c.mu.RUnlock()
	if found {
		return entry.name, entry.ok, nil
	}

	name, ok, err := c.inner.Reverse(ctx, lat, lon)
	if err != nil {
		return "", false, fmt.Errorf("reverse geocode: %w", err)
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{name: name, ok: ok}
	c.mu.Unlock()

	return name, ok, nil
}

func roundKey(lat, lon float64) string {
	mult := math.Pow(10, roundPrecision)
	rlat := math.Round(lat*mult) / mult
	rlon := math.Round(lon*mult) / mult
	return fmt.Sprintf("%.*f,%.*f", roundPrecision, rlat, roundPrecision, rlon)
}

// Len reports the number of distinct coordinate cells cached, for
// diagnostics and tests.
func (c *CachedGeocoder) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
