package domain

import (
	"context"
	"time"
)

// DefaultRouteTimeout bounds a single road-network request.
const DefaultRouteTimeout = 8 * time.Second

// RoadRoute is the first route candidate returned by a road-routing service,
// with geometry already in {lat,lng} order.
type RoadRoute struct {
	Geometry        []Coordinates
	DistanceMeters  float64
	DurationSeconds float64
	Legs            []RoadLeg
}

// RoadLeg is the part of a route between two waypoints.
type RoadLeg struct {
	Steps []RoadStep
}

// RoadStep is a single maneuver with the road travelled after it.
type RoadStep struct {
	Maneuver        Maneuver
	Name            string // street name, may be empty
	Distance        float64
	DurationSeconds float64
}

// Maneuver is the routing service's categorical description of an action.
type Maneuver struct {
	Type     string
	Modifier string       // optional
	Location *Coordinates // optional
}

// Router fetches road routes from an external routing service.
type Router interface {
	// Route returns the best road route between two points under the given
	// profile. Implementations return ErrNoRoute when the service answers
	// without a usable route.
	Route(ctx context.Context, profile string, from, to Coordinates) (RoadRoute, error)
}

// ShelterDirectory supplies shelter records.
type ShelterDirectory interface {
	List(ctx context.Context) ([]Shelter, error)
	Get(ctx context.Context, id string) (Shelter, error)
}
