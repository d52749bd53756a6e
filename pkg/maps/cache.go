package maps

import (
	"context"
	"sync"
	"time"

	"github.com/mmcloughlin/geohash"

	"github.com/syonosuke743/portfolio/internal/metrics"
)

// routeKeyPrecision is the geohash length used for cache keys; 8
// characters is roughly a 38m x 19m cell.
const routeKeyPrecision = 8

const defaultMaxRouteEntries = 1024

type routeEntry struct {
	geo       *RouteGeometry
	expiresAt time.Time
}

// CachedClient wraps a Client and memoizes ComputeRoute results for a TTL.
// Place searches are never cached since random selection must stay random.
type CachedClient struct {
	Client

	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]routeEntry
}

// CacheOption configures a CachedClient.
type CacheOption func(*CachedClient)

// WithMaxEntries bounds the number of cached routes.
func WithMaxEntries(n int) CacheOption {
	return func(c *CachedClient) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) CacheOption {
	return func(c *CachedClient) { c.now = now }
}

// NewCachedClient wraps inner. A non-positive ttl disables caching.
func NewCachedClient(inner Client, ttl time.Duration, opts ...CacheOption) *CachedClient {
	c := &CachedClient{
		Client:     inner,
		ttl:        ttl,
		maxEntries: defaultMaxRouteEntries,
		now:        time.Now,
		entries:    make(map[string]routeEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func routeKey(origin, destination Coordinates, mode TravelMode) string {
	return geohash.EncodeWithPrecision(origin.Lat, origin.Lng, routeKeyPrecision) + ":" +
		geohash.EncodeWithPrecision(destination.Lat, destination.Lng, routeKeyPrecision) + ":" +
		string(mode)
}

// ComputeRoute serves from cache when possible. Only found routes are
// cached; errors and "no route" answers always go to the provider.
func (c *CachedClient) ComputeRoute(ctx context.Context, origin, destination Coordinates, mode TravelMode) (*RouteGeometry, error) {
	if c.ttl <= 0 || origin.IsZero() || destination.IsZero() {
		return c.Client.ComputeRoute(ctx, origin, destination, mode)
	}

	key := routeKey(origin, destination, mode)
	now := c.now()

	c.mu.Lock()
	if e, ok := c.entries[key]; ok {
		if now.Before(e.expiresAt) {
			c.mu.Unlock()
			metrics.RouteCacheLookups.WithLabelValues("hit").Inc()
			return e.geo, nil
		}
		delete(c.entries, key)
	}
	c.mu.Unlock()
	metrics.RouteCacheLookups.WithLabelValues("miss").Inc()

	geo, err := c.Client.ComputeRoute(ctx, origin, destination, mode)
	if err != nil || geo == nil {
		return geo, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxEntries {
		c.evictLocked(now)
	}
	c.entries[key] = routeEntry{geo: geo, expiresAt: now.Add(c.ttl)}
	return geo, nil
}

// evictLocked drops expired entries, then arbitrary ones until there is room.
func (c *CachedClient) evictLocked(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	for k := range c.entries {
		if len(c.entries) < c.maxEntries {
			return
		}
		delete(c.entries, k)
	}
}

// Len returns the number of cached routes, expired ones included.
func (c *CachedClient) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
