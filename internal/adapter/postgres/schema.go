package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/couchcryptid/shelter-routing-service/internal/domain"
)

const createShelters = `
CREATE TABLE IF NOT EXISTS shelters (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	lat  DOUBLE PRECISION NOT NULL CHECK (lat BETWEEN -90 AND 90),
	lng  DOUBLE PRECISION NOT NULL CHECK (lng BETWEEN -180 AND 180)
)`

const upsertShelter = `
INSERT INTO shelters (id, name, lat, lng)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, lat = EXCLUDED.lat, lng = EXCLUDED.lng`

// InitSchema creates the shelters table if it does not exist.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}
	if _, err := db.ExecContext(ctx, createShelters); err != nil {
		return fmt.Errorf("init schema: create shelters: %w", err)
	}
	return nil
}

// SeedShelters upserts shelters in a single transaction. Every record is
// validated before anything is written.
func SeedShelters(ctx context.Context, db *sql.DB, shelters []domain.Shelter) error {
	for i, s := range shelters {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("seed shelters: item %d: id cannot be empty", i+1)
		}
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("seed shelters: item %d (%s): name cannot be empty", i+1, s.ID)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed shelters: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertShelter)
	if err != nil {
		return fmt.Errorf("seed shelters: prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, s := range shelters {
		if _, err := stmt.ExecContext(ctx, s.ID, strings.TrimSpace(s.Name), s.Position.Lat, s.Position.Lng); err != nil {
			return fmt.Errorf("seed shelters: upsert %s: %w", s.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed shelters: commit: %w", err)
	}
	return nil
}
