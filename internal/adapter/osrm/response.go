package osrm

import (
	"errors"
	"fmt"

	"github.com/couchcryptid/shelter-routing-service/internal/domain"
)

// OSRM route service response types.

type response struct {
	Code    string  `json:"code"`
	Message string  `json:"message,omitempty"`
	Routes  []route `json:"routes"`
}

type route struct {
	Geometry geometry `json:"geometry"`
	Distance float64  `json:"distance"` // metres
	Duration float64  `json:"duration"` // seconds
	Legs     []leg    `json:"legs"`
}

type geometry struct {
	Type        string      `json:"type,omitempty"`
	Coordinates [][]float64 `json:"coordinates"` // [lng, lat]
}

type leg struct {
	Steps []step `json:"steps"`
}

type step struct {
	Maneuver maneuver `json:"maneuver"`
	Name     string   `json:"name"`
	Distance float64  `json:"distance"`
	Duration float64  `json:"duration"`
}

type maneuver struct {
	Type     string    `json:"type"`
	Modifier string    `json:"modifier,omitempty"`
	Location []float64 `json:"location,omitempty"` // [lng, lat]
}

// toDomain converts the route to {lat,lng} order. A geometry point that is
// not a pair makes the whole payload malformed.
func (r route) toDomain() (domain.RoadRoute, error) {
	path := make([]domain.Coordinates, 0, len(r.Geometry.Coordinates))
	for i, pt := range r.Geometry.Coordinates {
		c, ok := lngLat(pt)
		if !ok {
			return domain.RoadRoute{}, fmt.Errorf("%w: geometry point %d has %d values", errMalformed, i, len(pt))
		}
		path = append(path, c)
	}

	legs := make([]domain.RoadLeg, 0, len(r.Legs))
	for _, l := range r.Legs {
		steps := make([]domain.RoadStep, 0, len(l.Steps))
		for _, s := range l.Steps {
			m := domain.Maneuver{Type: s.Maneuver.Type, Modifier: s.Maneuver.Modifier}
			if c, ok := lngLat(s.Maneuver.Location); ok {
				m.Location = &c
			}
			steps = append(steps, domain.RoadStep{
				Maneuver:        m,
				Name:            s.Name,
				Distance:        s.Distance,
				DurationSeconds: s.Duration,
			})
		}
		legs = append(legs, domain.RoadLeg{Steps: steps})
	}

	return domain.RoadRoute{
		Geometry:        path,
		DistanceMeters:  r.Distance,
		DurationSeconds: r.Duration,
		Legs:            legs,
	}, nil
}

var errMalformed = errors.New("malformed osrm response")

func lngLat(pt []float64) (domain.Coordinates, bool) {
	if len(pt) != 2 {
		return domain.Coordinates{}, false
	}
	return domain.Coordinates{Lat: pt[1], Lng: pt[0]}, true
}

func isNoRoute(err error) bool {
	return errors.Is(err, domain.ErrNoRoute)
}
