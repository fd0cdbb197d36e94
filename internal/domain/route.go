package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrShelterNotFound is returned by a ShelterDirectory for unknown IDs.
	ErrShelterNotFound = errors.New("shelter not found")

	// ErrNoRoute means the routing provider answered but had no usable route.
	ErrNoRoute = errors.New("no route found")

	// ErrInvalidTransportMode is returned by ParseTransportMode.
	ErrInvalidTransportMode = errors.New("invalid transport mode")
)

// TransportMode selects the routing profile and the fallback travel speed.
type TransportMode string

const (
	ModeCar        TransportMode = "car"
	ModeMotorcycle TransportMode = "motorcycle"
	ModeWalk       TransportMode = "walk"
)

// Routing profiles understood by the upstream routing service.
const (
	ProfileDriving = "driving"
	ProfileFoot    = "foot"
)

// motorcycleDurationFactor scales driving-profile durations for motorcycles,
// which can filter through congested traffic.
const motorcycleDurationFactor = 0.85

// ParseTransportMode validates a mode string. An empty string selects car.
func ParseTransportMode(s string) (TransportMode, error) {
	switch m := TransportMode(s); m {
	case "":
		return ModeCar, nil
	case ModeCar, ModeMotorcycle, ModeWalk:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTransportMode, s)
	}
}

// Profile returns the upstream routing profile for the mode. Car and
// motorcycle share the driving profile; see DurationMinutes for how they differ.
func (m TransportMode) Profile() string {
	if m == ModeWalk {
		return ProfileFoot
	}
	return ProfileDriving
}

// AverageSpeedKmh is the speed used to estimate travel time on fallback routes.
func (m TransportMode) AverageSpeedKmh() float64 {
	switch m {
	case ModeMotorcycle:
		return 45
	case ModeWalk:
		return 5
	default:
		return 50
	}
}

// DurationMinutes converts an upstream duration in seconds to whole minutes
// for this mode, applying the motorcycle correction before rounding.
// The result is never less than one minute.
func (m TransportMode) DurationMinutes(seconds float64) int {
	minutes := seconds / 60
	if m == ModeMotorcycle {
		minutes *= motorcycleDurationFactor
	}
	return atLeastOneMinute(minutes)
}

// Shelter is an emergency evacuation point.
type Shelter struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Position Coordinates `json:"position"`
}

// NavigationStep is one human-readable instruction along a route.
type NavigationStep struct {
	Instruction string      `json:"instruction"`
	Distance    int         `json:"distance"` // metres
	Position    Coordinates `json:"position"`
}

// IsArrival reports whether the step is the terminal arrival instruction.
func (s NavigationStep) IsArrival() bool {
	return s.Instruction == ArrivalInstruction
}

// Route is a navigation result from an origin to a shelter. Routes are
// values: they are built once per request and never mutated afterwards.
type Route struct {
	Shelter       Shelter          `json:"shelter"`
	Distance      float64          `json:"distance"`       // km, one decimal
	EstimatedTime int              `json:"estimated_time"` // minutes, >= 1
	Steps         []NavigationStep `json:"steps"`
	Path          []Coordinates    `json:"path"`
	TransportMode TransportMode    `json:"transport_mode"`
}

// RouteSource records which branch produced a route.
type RouteSource string

const (
	SourceRoadNetwork RouteSource = "osrm"
	SourceFallback    RouteSource = "fallback"
)

// RouteRequest is the message consumed from the route-request topic.
type RouteRequest struct {
	RequestID string        `json:"request_id"`
	From      Coordinates   `json:"from"`
	ShelterID string        `json:"shelter_id"`
	Mode      TransportMode `json:"mode,omitempty"`
}

// RouteEvent is a computed route published to the route topic.
type RouteEvent struct {
	RequestID  string      `json:"request_id"`
	Route      Route       `json:"route"`
	Source     RouteSource `json:"source"`
	ComputedAt time.Time   `json:"computed_at"`
}

// NewRouteEvent stamps a route with the current clock time.
func NewRouteEvent(requestID string, route Route, source RouteSource) RouteEvent {
	return RouteEvent{
		RequestID:  requestID,
		Route:      route,
		Source:     source,
		ComputedAt: clock.Now().UTC(),
	}
}
