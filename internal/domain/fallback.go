package domain

import (
	"math"
	"slices"
)

const (
	// fallbackSegments is the number of interpolated segments in a fallback path.
	fallbackSegments = 12

	// fallbackCurveDeg is the peak latitude offset of the fallback curve.
	fallbackCurveDeg = 0.003
)

// FallbackRoute synthesizes an approximate route when the routing service is
// unavailable: a gently curved 13-point path whose length is the haversine sum
// of its segments and whose duration uses the mode's average speed.
func FallbackRoute(from Coordinates, to Shelter, mode TransportMode) Route {
	path := CurvedPath(from, to.Position)
	distanceKm := PathLengthKm(path)
	minutes := distanceKm / mode.AverageSpeedKmh() * 60

	return Route{
		Shelter:       to,
		Distance:      RoundKm(distanceKm),
		EstimatedTime: atLeastOneMinute(minutes),
		Steps: []NavigationStep{
			{
				Instruction: "Head towards " + to.Name,
				Distance:    roundMeters(distanceKm * 1000),
				Position:    from,
			},
			arrivalStep(to.Position),
		},
		Path:          path,
		TransportMode: mode,
	}
}

// CurvedPath interpolates fallbackSegments+1 points between from and to,
// bowing the line with a sinusoidal offset. The endpoints are exact.
func CurvedPath(from, to Coordinates) []Coordinates {
	path := make([]Coordinates, 0, fallbackSegments+1)
	for i := 0; i <= fallbackSegments; i++ {
		t := float64(i) / fallbackSegments
		offset := math.Sin(t*math.Pi) * fallbackCurveDeg
		path = append(path, Coordinates{
			Lat: from.Lat + (to.Lat-from.Lat)*t + offset,
			Lng: from.Lng + (to.Lng-from.Lng)*t - offset*0.5,
		})
	}
	path[0] = from
	path[len(path)-1] = to
	return path
}

// RoadRouteToRoute assembles a Route from an upstream road route. It returns
// ErrNoRoute when the geometry or the maneuver list cannot form a route.
func RoadRouteToRoute(rr RoadRoute, from Coordinates, to Shelter, mode TransportMode) (Route, error) {
	if len(rr.Geometry) < 2 {
		return Route{}, ErrNoRoute
	}
	steps := BuildSteps(rr.Legs, from, to.Position)
	if len(steps) < 2 {
		return Route{}, ErrNoRoute
	}

	return Route{
		Shelter:       to,
		Distance:      RoundKm(max(0, rr.DistanceMeters) / 1000),
		EstimatedTime: mode.DurationMinutes(rr.DurationSeconds),
		Steps:         steps,
		Path:          slices.Clone(rr.Geometry),
		TransportMode: mode,
	}, nil
}

func atLeastOneMinute(minutes float64) int {
	return max(1, int(math.Round(minutes)))
}
