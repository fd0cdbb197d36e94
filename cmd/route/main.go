// Command route computes one evacuation route and prints it as JSON.
//
// Usage:
//
//	go run ./cmd/route -from-lat 3.1542 -from-lng 101.7148 -shelter shelter-1 -mode walk
//
// Without -shelter the nearest shelter is used. Routing API settings are read
// from the environment (OSRM_BASE_URL) and an optional .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/couchcryptid/shelter-routing-service/internal/adapter/osrm"
	"github.com/couchcryptid/shelter-routing-service/internal/domain"
	"github.com/couchcryptid/shelter-routing-service/internal/observability"
	"github.com/couchcryptid/shelter-routing-service/internal/routing"
	"github.com/couchcryptid/shelter-routing-service/internal/shelter"
	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "route:", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("route", flag.ContinueOnError)
	fromLat := fs.Float64("from-lat", shelter.DefaultPosition.Lat, "start latitude")
	fromLng := fs.Float64("from-lng", shelter.DefaultPosition.Lng, "start longitude")
	shelterID := fs.String("shelter", "", "target shelter id (default: nearest)")
	modeFlag := fs.String("mode", string(domain.ModeCar), "transport mode: car, motorcycle or walk")
	timeout := fs.Duration("timeout", routing.DefaultTimeout, "routing API timeout")
	verbose := fs.Bool("v", false, "log routing diagnostics to stderr")
	if err := fs.Parse(args); err != nil {
		return err
	}

	mode, err := domain.ParseTransportMode(*modeFlag)
	if err != nil {
		return err
	}
	if *timeout <= 0 {
		return errors.New("-timeout must be positive")
	}

	level := "error"
	if *verbose {
		level = "debug"
	}
	logger := observability.NewLoggerTo(os.Stderr, level, "text")
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())

	ctx := context.Background()
	catalogue := shelter.NewCatalogue()
	from := domain.Coordinates{Lat: *fromLat, Lng: *fromLng}

	var target domain.Shelter
	if *shelterID == "" {
		nearest, err := shelter.Nearest(ctx, catalogue, from)
		if err != nil {
			return err
		}
		target = nearest.Shelter
	} else {
		target, err = catalogue.Get(ctx, *shelterID)
		if err != nil {
			return fmt.Errorf("%w: %s", err, *shelterID)
		}
	}

	client := osrm.NewClient(sharedcfg.EnvOrDefault("OSRM_BASE_URL", osrm.DefaultBaseURL), *timeout+time.Second, metrics, logger)
	calculator := routing.NewCalculator(client, *timeout, nil, metrics, logger)
	out := calculator.Resolve(ctx, from, target, mode)

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Source domain.RouteSource `json:"source"`
		domain.Route
	}{Source: out.Source, Route: out.Route})
}
