package mapbox

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/site-fueling-service/internal/domain"
	"github.com/couchcryptid/site-fueling-service/internal/observability"
)

type countingGeocoder struct {
	queries []string
	result  domain.GeocodingResult
	err     error
}

func (m *countingGeocoder) ForwardGeocode(_ context.Context, query string) (domain.GeocodingResult, error) {
	m.queries = append(m.queries, query)
	return m.result, m.err
}

var downtown = domain.GeocodingResult{Lat: 24.71, Lon: 46.67, PlaceName: "Downtown", FormattedAddress: "Downtown, Riyadh"}

func TestCachedGeocoder_SameSiteHitsCache(t *testing.T) {
	inner := &countingGeocoder{result: downtown}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedGeocoder(inner, 10, metrics)

	r1, err := cached.ForwardGeocode(context.Background(), "GSM Downtown")
	require.NoError(t, err)
	r2, err := cached.ForwardGeocode(context.Background(), "  gsm   DOWNTOWN ")
	require.NoError(t, err)

	assert.Equal(t, downtown, r1)
	assert.Equal(t, r1, r2)
	assert.Equal(t, []string{"GSM Downtown"}, inner.queries)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("miss")), 0)
}

func TestCachedGeocoder_DistinctSitesMiss(t *testing.T) {
	inner := &countingGeocoder{result: downtown}
	cached := NewCachedGeocoder(inner, 10, observability.NewMetricsForTesting())

	_, _ = cached.ForwardGeocode(context.Background(), "GSM Downtown")
	_, _ = cached.ForwardGeocode(context.Background(), "GSM East Port")

	assert.Len(t, inner.queries, 2)
}

func TestCachedGeocoder_NotCached(t *testing.T) {
	tests := []struct {
		name  string
		inner *countingGeocoder
	}{
		{"no match", &countingGeocoder{}},
		{"error", &countingGeocoder{err: errors.New("timeout")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cached := NewCachedGeocoder(tt.inner, 10, observability.NewMetricsForTesting())

			_, err1 := cached.ForwardGeocode(context.Background(), "GSM Nowhere")
			_, err2 := cached.ForwardGeocode(context.Background(), "GSM Nowhere")

			assert.Equal(t, tt.inner.err, err1)
			assert.Equal(t, tt.inner.err, err2)
			assert.Len(t, tt.inner.queries, 2)
			assert.Equal(t, 0, cached.cache.size())
		})
	}
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "gsm downtown", cacheKey("GSM Downtown"))
	assert.Equal(t, "gsm downtown", cacheKey("\tgsm  downtown\n"))
	assert.Empty(t, cacheKey("   "))
}

func TestSiteCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := newSiteCache(2)

	c.put("a", domain.GeocodingResult{PlaceName: "A"})
	c.put("b", domain.GeocodingResult{PlaceName: "B"})
	_, _ = c.get("a")
	c.put("c", domain.GeocodingResult{PlaceName: "C"})

	_, ok := c.get("b")
	assert.False(t, ok, "b was least recently used")

	for _, key := range []string{"a", "c"} {
		r, ok := c.get(key)
		assert.True(t, ok, key)
		assert.Equal(t, strings.ToUpper(key), r.PlaceName)
	}
	assert.Equal(t, 2, c.size())
}

func TestSiteCache_PutReplaces(t *testing.T) {
	c := newSiteCache(2)

	c.put("a", domain.GeocodingResult{PlaceName: "A1"})
	c.put("a", domain.GeocodingResult{PlaceName: "A2"})

	r, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, "A2", r.PlaceName)
	assert.Equal(t, 1, c.size())
}
