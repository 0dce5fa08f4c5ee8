// Command weatherstats computes the yearly mean TMIN and TMAX temperatures
// of the configured observation files and prints one report per year.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/weather-stats/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-stats/internal/adapter/kafka"
	"github.com/couchcryptid/weather-stats/internal/config"
	"github.com/couchcryptid/weather-stats/internal/dataset"
	"github.com/couchcryptid/weather-stats/internal/observability"
	"github.com/couchcryptid/weather-stats/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	if err := run(cfg, logger, metrics); err != nil {
		logger.Error("pipeline failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	dc := dataset.NewContext(dataset.Options{Workers: cfg.Workers, Partitions: cfg.Partitions}, logger)
	defer dc.Close()

	var sinks pipeline.Loaders
	if len(cfg.KafkaBrokers) > 0 {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		sinks = append(sinks, writer)
		logger.Info("kafka results sink enabled", "topic", cfg.KafkaResultsTopic)
	}

	var reports *httpadapter.Reports
	if cfg.HTTPAddr != "" {
		reports = httpadapter.NewReports()
		sinks = append(sinks, reports)
	}

	var sink pipeline.ReportLoader
	if len(sinks) > 0 {
		sink = sinks
	}

	p := pipeline.New(dc, pipeline.Options{
		StationsPath: cfg.StationsPath,
		Stations: pipeline.StationOptions{
			SkipHeader:    cfg.StationsSkipHeader,
			RequireUnique: cfg.RequireUniqueStations,
		},
		ObservationsFor: cfg.ObservationsFor,
		Parse: pipeline.ParseOptions{
			SkipHeader:    cfg.ObservationsSkipHeader,
			SkipMalformed: cfg.MalformedPolicy == config.MalformedSkip,
			MaxMalformed:  cfg.MaxMalformed,
		},
		Years:        cfg.Years(),
		Kinds:        cfg.Kinds,
		JoinStrategy: cfg.JoinStrategy,
	}, sink, os.Stdout, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.HTTPAddr != "" {
		srv := httpadapter.NewServer(cfg.HTTPAddr, p, reports, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	return p.Run(ctx)
}
