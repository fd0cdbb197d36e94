package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/shelter-routing-service/internal/domain"
	"github.com/couchcryptid/shelter-routing-service/internal/routing"
)

// RouteResolver computes a route and reports which branch produced it.
// *routing.Calculator satisfies it.
type RouteResolver interface {
	Resolve(ctx context.Context, from domain.Coordinates, to domain.Shelter, mode domain.TransportMode) routing.Outcome
}

// RouteTransformer implements Transformer: it resolves the requested shelter,
// calculates the route and serializes the resulting RouteEvent.
type RouteTransformer struct {
	shelters domain.ShelterDirectory
	resolver RouteResolver
	logger   *slog.Logger
}

// NewTransformer creates a RouteTransformer.
func NewTransformer(shelters domain.ShelterDirectory, resolver RouteResolver, logger *slog.Logger) *RouteTransformer {
	return &RouteTransformer{
		shelters: shelters,
		resolver: resolver,
		logger:   logger,
	}
}

func (t *RouteTransformer) Transform(ctx context.Context, raw domain.RawEvent) (domain.OutputEvent, error) {
	req, err := domain.ParseRouteRequest(raw)
	if err != nil {
		return domain.OutputEvent{}, err
	}

	shelter, err := t.shelters.Get(ctx, req.ShelterID)
	if err != nil {
		return domain.OutputEvent{}, fmt.Errorf("request %s: shelter %q: %w", req.RequestID, req.ShelterID, err)
	}

	out := t.resolver.Resolve(ctx, req.From, shelter, req.Mode)
	t.logger.Debug("route computed",
		"request_id", req.RequestID,
		"shelter_id", shelter.ID,
		"mode", string(req.Mode),
		"source", string(out.Source),
		"distance_km", out.Route.Distance,
	)

	return domain.SerializeRouteEvent(domain.NewRouteEvent(req.RequestID, out.Route, out.Source))
}
