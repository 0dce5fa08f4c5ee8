// Command locate resolves station identifiers to place names using the
// station table and the reverse geocoding API.
//
// Usage:
//
//	GEOCODER_API_KEY=... go run ./cmd/locate KXYZ KABC
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/weather-stats/internal/adapter/googlemaps"
	"github.com/couchcryptid/weather-stats/internal/config"
	"github.com/couchcryptid/weather-stats/internal/dataset"
	"github.com/couchcryptid/weather-stats/internal/observability"
	"github.com/couchcryptid/weather-stats/internal/pipeline"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s STATION_ID...\n", os.Args[0])
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if failed, err := run(cfg, logger, flag.Args()); err != nil {
		logger.Error("locate failed", "error", err)
		os.Exit(1)
	} else if failed > 0 {
		os.Exit(1)
	}
}

// run prints one line per station and returns how many could not be resolved.
func run(cfg *config.Config, logger *slog.Logger, ids []string) (int, error) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dc := dataset.NewContext(dataset.Options{Workers: cfg.Workers, Partitions: cfg.Partitions}, logger)
	defer dc.Close()

	stations, err := pipeline.LoadStations(ctx, dc, cfg.StationsPath, pipeline.StationOptions{
		SkipHeader:    cfg.StationsSkipHeader,
		RequireUnique: cfg.RequireUniqueStations,
	}, logger)
	if err != nil {
		return 0, err
	}

	client := googlemaps.NewClient(cfg.GeocoderBaseURL, cfg.GeocoderAPIKey, cfg.GeocoderTimeout, observability.NewMetrics(), logger)
	locator := pipeline.NewLocator(stations, client)

	failed := 0
	for _, id := range ids {
		place, err := locator.Locate(ctx, id)
		if err != nil {
			failed++
			logger.Warn("station not resolved", "station", id, "error", err)
			fmt.Printf("%s: error: %v\n", id, err)
			continue
		}
		fmt.Printf("%s: %s\n", id, place)
	}
	return failed, nil
}
