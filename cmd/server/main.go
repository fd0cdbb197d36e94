package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/shelter-routing-service/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/shelter-routing-service/internal/adapter/kafka"
	"github.com/couchcryptid/shelter-routing-service/internal/adapter/osrm"
	"github.com/couchcryptid/shelter-routing-service/internal/adapter/postgres"
	"github.com/couchcryptid/shelter-routing-service/internal/config"
	"github.com/couchcryptid/shelter-routing-service/internal/domain"
	"github.com/couchcryptid/shelter-routing-service/internal/observability"
	"github.com/couchcryptid/shelter-routing-service/internal/pipeline"
	"github.com/couchcryptid/shelter-routing-service/internal/routing"
	"github.com/couchcryptid/shelter-routing-service/internal/shelter"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var router domain.Router = osrm.NewClient(cfg.OSRMBaseURL, cfg.OSRMTimeout, metrics, logger)
	if cfg.RouteCacheSize > 0 {
		router, err = osrm.NewCachedRouter(router, cfg.RouteCacheSize, metrics)
		if err != nil {
			logger.Error("failed to create route cache", "error", err)
			os.Exit(1)
		}
		logger.Info("route cache enabled", "size", cfg.RouteCacheSize)
	}
	calculator := routing.NewCalculator(router, cfg.OSRMTimeout, nil, metrics, logger)

	readiness := &observability.Readiness{}

	// Shelter directory: Postgres when configured, otherwise the built-in catalogue.
	var shelters domain.ShelterDirectory
	var db *sql.DB
	if cfg.ShelterDatabaseURL != "" {
		db, err = postgres.Open(ctx, cfg.ShelterDatabaseURL)
		if err != nil {
			logger.Error("failed to connect to shelter database", "error", err)
			os.Exit(1)
		}
		store := postgres.NewShelterStore(db)
		readiness.Add("shelters", store)
		shelters = store
		logger.Info("shelter directory: postgres")
	} else {
		catalogue := shelter.NewCatalogue()
		readiness.Add("shelters", catalogue)
		shelters = catalogue
		logger.Info("shelter directory: built-in catalogue")
	}

	api := httpadapter.NewAPIHandler(shelters, calculator, logger)

	var (
		reader *kafkaadapter.Reader
		writer *kafkaadapter.Writer
		p      *pipeline.Pipeline
	)
	if cfg.KafkaEnabled {
		reader = kafkaadapter.NewReader(cfg, logger)
		writer = kafkaadapter.NewWriter(cfg, logger)
		transformer := pipeline.NewTransformer(shelters, calculator, logger)
		p = pipeline.New(reader, transformer, writer, logger, metrics, cfg.BatchSize)
		readiness.Add("pipeline", p)
	} else {
		logger.Info("route-request pipeline disabled")
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, readiness, api, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start route-request pipeline.
	if p != nil {
		go func() {
			if err := p.Run(ctx); err != nil {
				logger.Error("pipeline error", "error", err)
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if reader != nil {
		if err := reader.Close(); err != nil {
			logger.Error("kafka reader close error", "error", err)
		}
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}
	if db != nil {
		if err := db.Close(); err != nil {
			logger.Error("shelter database close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
