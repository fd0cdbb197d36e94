// Package shelter provides the evacuation shelter directory and ranks
// shelters by straight-line distance from a position.
package shelter

import (
	"context"
	"slices"

	"github.com/couchcryptid/shelter-routing-service/internal/domain"
)

// DefaultPosition is used when a caller has no position fix (KLCC).
var DefaultPosition = domain.Coordinates{Lat: 3.1542, Lng: 101.7148}

var builtin = []domain.Shelter{
	{ID: "shelter-1", Name: "SJK (T) Saraswathy", Position: domain.Coordinates{Lat: 3.1099, Lng: 101.6968}},
	{ID: "shelter-2", Name: "Sekolah Rendah Agama Seksyen 16", Position: domain.Coordinates{Lat: 3.0628, Lng: 101.5129}},
	{ID: "shelter-3", Name: "Dewan MBSA Jati, Sungai Kandis", Position: domain.Coordinates{Lat: 3.0800, Lng: 101.5200}},
	{ID: "shelter-4", Name: "SK Rantau Panjang, Klang", Position: domain.Coordinates{Lat: 3.0432, Lng: 101.4424}},
	{ID: "shelter-5", Name: "Dewan Orang Ramai Taman Gemilang", Position: domain.Coordinates{Lat: 2.8145, Lng: 101.7317}},
}

// Catalogue is an in-memory shelter directory.
type Catalogue struct {
	shelters []domain.Shelter
	byID     map[string]domain.Shelter
}

// NewCatalogue builds a directory over the given shelters. With no arguments
// it serves the built-in Klang Valley shelters.
func NewCatalogue(shelters ...domain.Shelter) *Catalogue {
	if len(shelters) == 0 {
		shelters = builtin
	}
	c := &Catalogue{
		shelters: slices.Clone(shelters),
		byID:     make(map[string]domain.Shelter, len(shelters)),
	}
	for _, s := range c.shelters {
		c.byID[s.ID] = s
	}
	return c
}

// List returns every shelter in catalogue order.
func (c *Catalogue) List(_ context.Context) ([]domain.Shelter, error) {
	return slices.Clone(c.shelters), nil
}

// Get returns the shelter with the given id or domain.ErrShelterNotFound.
func (c *Catalogue) Get(_ context.Context, id string) (domain.Shelter, error) {
	s, ok := c.byID[id]
	if !ok {
		return domain.Shelter{}, domain.ErrShelterNotFound
	}
	return s, nil
}

// CheckReadiness always succeeds for the in-memory catalogue.
func (c *Catalogue) CheckReadiness(_ context.Context) error {
	return nil
}
