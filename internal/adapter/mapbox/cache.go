package mapbox

import (
	"container/list"
	"context"
	"strings"
	"sync"

	"github.com/couchcryptid/site-fueling-service/internal/domain"
	"github.com/couchcryptid/site-fueling-service/internal/observability"
)

// CachedGeocoder remembers matches by normalized site name, so a sheet whose
// sites keep their names is geocoded once rather than on every refresh.
type CachedGeocoder struct {
	inner   domain.Geocoder
	cache   *siteCache
	metrics *observability.Metrics
}

// NewCachedGeocoder wraps inner with a cache of at most maxEntries sites.
func NewCachedGeocoder(inner domain.Geocoder, maxEntries int, metrics *observability.Metrics) *CachedGeocoder {
	return &CachedGeocoder{
		inner:   inner,
		cache:   newSiteCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedGeocoder) ForwardGeocode(ctx context.Context, query string) (domain.GeocodingResult, error) {
	key := cacheKey(query)
	if result, ok := c.cache.get(key); ok {
		c.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		return result, nil
	}
	c.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	result, err := c.inner.ForwardGeocode(ctx, query)
	if err != nil {
		return result, err
	}
	// Misses are retried on the next pass; the sheet may have been fixed.
	if result.Found() {
		c.cache.put(key, result)
	}
	return result, nil
}

// cacheKey folds case and inner whitespace: "GSM  Downtown " and
// "gsm downtown" are the same site.
func cacheKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// siteCache is a mutex-guarded LRU keyed by cacheKey.
type siteCache struct {
	max     int
	mu      sync.Mutex
	order   *list.List // front is most recently used
	entries map[string]*list.Element
}

type cached struct {
	key    string
	result domain.GeocodingResult
}

func newSiteCache(maxEntries int) *siteCache {
	return &siteCache{
		max:     maxEntries,
		order:   list.New(),
		entries: make(map[string]*list.Element),
	}
}

func (c *siteCache) get(key string) (domain.GeocodingResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return domain.GeocodingResult{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cached).result, true
}

func (c *siteCache) put(key string, result domain.GeocodingResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*cached).result = result
		c.order.MoveToFront(el)
		return
	}
	c.entries[key] = c.order.PushFront(&cached{key: key, result: result})

	for c.order.Len() > c.max {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cached).key)
	}
}

func (c *siteCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
