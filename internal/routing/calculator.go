// Package routing turns a start position, a shelter and a transport mode into
// a navigable route. The road-network router is consulted first under a hard
// deadline; any failure falls back to a locally synthesized curved route.
package routing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/couchcryptid/shelter-routing-service/internal/domain"
	"github.com/couchcryptid/shelter-routing-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// DefaultTimeout bounds a single road-network request.
const DefaultTimeout = domain.DefaultRouteTimeout

// Fallback reasons reported on the route_fallbacks_total metric.
const (
	reasonTimeout     = "timeout"
	reasonUnavailable = "unavailable"
	reasonNoRoute     = "no_route"
)

var errTimeout = errors.New("routing request timed out")

// Outcome is the result of one calculation: the route handed to the caller
// and which branch produced it. Err holds the upstream failure when Source is
// domain.SourceFallback and is nil otherwise.
type Outcome struct {
	Route  domain.Route
	Source domain.RouteSource
	Err    error
}

// Calculator computes routes to shelters. It is safe for concurrent use.
type Calculator struct {
	router  domain.Router
	timeout time.Duration
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewCalculator wires a calculator. A non-positive timeout selects
// DefaultTimeout and a nil clock selects the real clock.
func NewCalculator(router domain.Router, timeout time.Duration, clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Calculator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Calculator{
		router:  router,
		timeout: timeout,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// CalculateRoute returns a route from the given position to the shelter.
// It never fails: when the road network cannot be used the fallback route
// is returned instead.
func (c *Calculator) CalculateRoute(ctx context.Context, from domain.Coordinates, to domain.Shelter, mode domain.TransportMode) domain.Route {
	return c.Resolve(ctx, from, to, mode).Route
}

// Resolve is CalculateRoute with the branch that produced the route exposed.
func (c *Calculator) Resolve(ctx context.Context, from domain.Coordinates, to domain.Shelter, mode domain.TransportMode) Outcome {
	profile := mode.Profile()

	route, err := c.fetch(ctx, profile, from, to, mode)
	if err == nil {
		c.metrics.RouteRequests.WithLabelValues(string(mode), string(domain.SourceRoadNetwork)).Inc()
		return Outcome{Route: route, Source: domain.SourceRoadNetwork}
	}

	c.logger.Warn("routing unavailable, using fallback route",
		"profile", profile,
		"mode", string(mode),
		"shelter_id", to.ID,
		"error", err,
	)
	c.metrics.RouteFallbacks.WithLabelValues(fallbackReason(err)).Inc()
	c.metrics.RouteRequests.WithLabelValues(string(mode), string(domain.SourceFallback)).Inc()

	return Outcome{
		Route:  domain.FallbackRoute(from, to, mode),
		Source: domain.SourceFallback,
		Err:    err,
	}
}

type fetchResult struct {
	road domain.RoadRoute
	err  error
}

// fetch runs one router request bounded by the calculator timeout. The
// request context is cancelled on return so an abandoned call is released.
func (c *Calculator) fetch(ctx context.Context, profile string, from domain.Coordinates, to domain.Shelter, mode domain.TransportMode) (domain.Route, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	timer := c.clock.NewTimer(c.timeout)
	defer timer.Stop()

	done := make(chan fetchResult, 1)
	go func() {
		road, err := c.router.Route(ctx, profile, from, to.Position)
		done <- fetchResult{road: road, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return domain.Route{}, res.err
		}
		return domain.RoadRouteToRoute(res.road, from, to, mode)
	case <-timer.Chan():
		return domain.Route{}, errTimeout
	case <-ctx.Done():
		return domain.Route{}, ctx.Err()
	}
}

func fallbackReason(err error) string {
	switch {
	case errors.Is(err, errTimeout), errors.Is(err, context.DeadlineExceeded):
		return reasonTimeout
	case errors.Is(err, domain.ErrNoRoute):
		return reasonNoRoute
	default:
		return reasonUnavailable
	}
}
