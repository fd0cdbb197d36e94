package osrm

import (
	"context"
	"fmt"
	"math"

	"github.com/couchcryptid/shelter-routing-service/internal/domain"
	"github.com/couchcryptid/shelter-routing-service/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedRouter decorates a Router with an in-memory LRU of successful
// routes. Errors are never cached, so a failed lookup is retried on the next
// call.
type CachedRouter struct {
	inner   domain.Router
	cache   *lru.Cache[routeKey, domain.RoadRoute]
	metrics *observability.Metrics
}

// NewCachedRouter creates a cache decorator holding at most maxEntries routes.
// Cached routes are shared between callers and must not be mutated.
func NewCachedRouter(inner domain.Router, maxEntries int, metrics *observability.Metrics) (*CachedRouter, error) {
	cache, err := lru.New[routeKey, domain.RoadRoute](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("route cache of %d entries: %w", maxEntries, err)
	}
	return &CachedRouter{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedRouter) Route(ctx context.Context, profile string, from, to domain.Coordinates) (domain.RoadRoute, error) {
	key := newRouteKey(profile, from, to)
	if route, ok := c.cache.Get(key); ok {
		c.metrics.RouteCache.WithLabelValues("hit").Inc()
		return route, nil
	}
	c.metrics.RouteCache.WithLabelValues("miss").Inc()

	route, err := c.inner.Route(ctx, profile, from, to)
	if err != nil {
		return route, err
	}
	c.cache.Add(key, route)
	return route, nil
}

// routeKey identifies a route by profile and endpoints at micro-degree
// (6 decimal) precision.
type routeKey struct {
	profile  string
	from, to [2]int64
}

func newRouteKey(profile string, from, to domain.Coordinates) routeKey {
	return routeKey{profile: profile, from: microDegrees(from), to: microDegrees(to)}
}

func microDegrees(c domain.Coordinates) [2]int64 {
	return [2]int64{int64(math.Round(c.Lat * 1e6)), int64(math.Round(c.Lng * 1e6))}
}
