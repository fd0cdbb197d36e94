package shelter

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/couchcryptid/shelter-routing-service/internal/domain"
)

// rankingSpeedKmh is the assumed travel speed for straight-line estimates.
const rankingSpeedKmh = 40

// RankedShelter is a shelter annotated with its straight-line distance from
// a query position.
type RankedShelter struct {
	domain.Shelter
	Distance      float64 `json:"distance"`       // km, one decimal
	EstimatedTime int     `json:"estimated_time"` // minutes at rankingSpeedKmh
}

// Rank orders shelters by haversine distance from the given position, nearest
// first. Ties are broken by id so the order is stable.
func Rank(from domain.Coordinates, shelters []domain.Shelter) []RankedShelter {
	type scored struct {
		shelter domain.Shelter
		km      float64
	}
	all := make([]scored, 0, len(shelters))
	for _, s := range shelters {
		all = append(all, scored{shelter: s, km: domain.HaversineKm(from, s.Position)})
	}
	slices.SortFunc(all, func(a, b scored) int {
		return cmp.Or(cmp.Compare(a.km, b.km), cmp.Compare(a.shelter.ID, b.shelter.ID))
	})

	ranked := make([]RankedShelter, 0, len(all))
	for _, s := range all {
		ranked = append(ranked, RankedShelter{
			Shelter:       s.shelter,
			Distance:      domain.RoundKm(s.km),
			EstimatedTime: max(1, int(math.Round(s.km/rankingSpeedKmh*60))),
		})
	}
	return ranked
}

// Nearest returns the closest shelter in the directory.
func Nearest(ctx context.Context, dir domain.ShelterDirectory, from domain.Coordinates) (RankedShelter, error) {
	shelters, err := dir.List(ctx)
	if err != nil {
		return RankedShelter{}, fmt.Errorf("list shelters: %w", err)
	}
	ranked := Rank(from, shelters)
	if len(ranked) == 0 {
		return RankedShelter{}, domain.ErrShelterNotFound
	}
	return ranked[0], nil
}
