// Command dbtool creates the shelters table and seeds it.
//
// Usage:
//
//	SHELTER_DATABASE_URL=postgres://... go run ./cmd/dbtool [-seed shelters.json]
//
// Without -seed the built-in Klang Valley shelters are loaded.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/shelter-routing-service/internal/adapter/postgres"
	"github.com/couchcryptid/shelter-routing-service/internal/domain"
	"github.com/couchcryptid/shelter-routing-service/internal/shelter"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	seedPath := flag.String("seed", "", "JSON file with shelters to load (default: built-in catalogue)")
	flag.Parse()

	logger := sharedobs.NewLogger(sharedcfg.EnvOrDefault("LOG_LEVEL", "info"), "text")

	databaseURL := strings.TrimSpace(os.Getenv("SHELTER_DATABASE_URL"))
	if databaseURL == "" {
		logger.Error("SHELTER_DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := run(ctx, databaseURL, *seedPath, logger); err != nil {
		logger.Error("dbtool failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, databaseURL, seedPath string, logger *slog.Logger) error {
	shelters, err := loadShelters(ctx, seedPath)
	if err != nil {
		return err
	}

	db, err := postgres.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := postgres.InitSchema(ctx, db); err != nil {
		return err
	}
	logger.Info("schema ready")

	if err := postgres.SeedShelters(ctx, db, shelters); err != nil {
		return err
	}
	logger.Info("seeding complete", "shelters", len(shelters))
	return nil
}

func loadShelters(ctx context.Context, path string) ([]domain.Shelter, error) {
	if path == "" {
		return shelter.NewCatalogue().List(ctx)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %q: %w", path, err)
	}
	var shelters []domain.Shelter
	if err := json.Unmarshal(data, &shelters); err != nil {
		return nil, fmt.Errorf("parse seed %q: %w", path, err)
	}
	if len(shelters) == 0 {
		return nil, errors.New("seed file contains no shelters")
	}
	return shelters, nil
}
