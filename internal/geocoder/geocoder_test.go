package geocoder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGeocoder struct {
	calls int
	name  string
	ok    bool
}

func (c *countingGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, bool, error) {
	c.calls++
	return c.name, c.ok, nil
}

func TestCachedGeocoderDedupesNearbyLookups(t *testing.T) {
	inner := &countingGeocoder{name: "Somewhere", ok: true}
	cached := NewCachedGeocoder(inner)

	ctx := context.Background()
	name, ok, err := cached.Reverse(ctx, 51.50070, -0.12780)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Somewhere", name)

	_, _, err = cached.Reverse(ctx, 51.50071, -0.12779)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cached.Len())
}

func TestCachedGeocoderCachesNegativeResult(t *testing.T) {
	inner := &countingGeocoder{ok: false}
	cached := NewCachedGeocoder(inner)

	ctx := context.Background()
	_, ok1, err := cached.Reverse(ctx, 0, 0)
	require.NoError(t, err)
	_, ok2, err := cached.Reverse(ctx, 0, 0)
	require.NoError(t, err)

	assert.False(t, ok1)
	assert.False(t, ok2)
	assert.Equal(t, 1, inner.calls)
}
