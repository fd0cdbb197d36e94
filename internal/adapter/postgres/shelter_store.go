// Package postgres serves the shelter directory from a PostgreSQL table
// through the pgx database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/couchcryptid/shelter-routing-service/internal/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

const (
	listShelters = `SELECT id, name, lat, lng FROM shelters ORDER BY id`
	getShelter   = `SELECT id, name, lat, lng FROM shelters WHERE id = $1`
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("verify postgres connection: %w", err)
	}
	return db, nil
}

// ShelterStore implements domain.ShelterDirectory over the shelters table.
type ShelterStore struct {
	db *sql.DB
}

// NewShelterStore creates a store on an open database handle.
func NewShelterStore(db *sql.DB) *ShelterStore {
	return &ShelterStore{db: db}
}

// List returns all shelters ordered by id.
func (s *ShelterStore) List(ctx context.Context) ([]domain.Shelter, error) {
	rows, err := s.db.QueryContext(ctx, listShelters)
	if err != nil {
		return nil, fmt.Errorf("query shelters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var shelters []domain.Shelter
	for rows.Next() {
		var sh domain.Shelter
		if err := rows.Scan(&sh.ID, &sh.Name, &sh.Position.Lat, &sh.Position.Lng); err != nil {
			return nil, fmt.Errorf("scan shelter: %w", err)
		}
		shelters = append(shelters, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shelters: %w", err)
	}
	return shelters, nil
}

// Get returns one shelter or domain.ErrShelterNotFound.
func (s *ShelterStore) Get(ctx context.Context, id string) (domain.Shelter, error) {
	var sh domain.Shelter
	err := s.db.QueryRowContext(ctx, getShelter, id).
		Scan(&sh.ID, &sh.Name, &sh.Position.Lat, &sh.Position.Lng)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Shelter{}, domain.ErrShelterNotFound
	}
	if err != nil {
		return domain.Shelter{}, fmt.Errorf("get shelter %q: %w", id, err)
	}
	return sh, nil
}

// CheckReadiness pings the database.
func (s *ShelterStore) CheckReadiness(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}
