package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	httpadapter "github.com/couchcryptid/site-fueling-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/site-fueling-service/internal/adapter/kafka"
	"github.com/couchcryptid/site-fueling-service/internal/adapter/mapbox"
	"github.com/couchcryptid/site-fueling-service/internal/adapter/sheet"
	"github.com/couchcryptid/site-fueling-service/internal/config"
	"github.com/couchcryptid/site-fueling-service/internal/domain"
	"github.com/couchcryptid/site-fueling-service/internal/observability"
	"github.com/couchcryptid/site-fueling-service/internal/pipeline"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	aliases, err := domain.LoadAliases(cfg.AliasesFile)
	if err != nil {
		logger.Error("failed to load aliases", "error", err)
		os.Exit(1)
	}

	opts := pipeline.Options{Schedule: cfg.Schedule}

	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(mapbox.ClientConfig{
			Token:   cfg.MapboxToken,
			Timeout: cfg.MapboxTimeout,
			Country: cfg.MapboxCountry,
		}, metrics, logger)
		opts.Geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var writer *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		writer = kafkaadapter.NewWriter(cfg, logger)
		opts.Publisher = writer
		logger.Info("snapshot publishing enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	fetcher := sheet.NewFetcher(cfg.SheetURL, cfg.FetchTimeout, logger)
	decoder := domain.NewDecoder(aliases, logger)
	categorizer := domain.NewCategorizer(cfg.Location, cfg.FarFuture, logger)

	p := pipeline.New(fetcher, decoder, categorizer, opts, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start refresh loop.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	logger.Info("service started",
		"sheet_url", cfg.SheetURL,
		"refresh_interval", cfg.RefreshInterval,
		"refresh_schedule", cfg.RefreshSchedule,
		"timezone", cfg.Location.String(),
		"far_future_policy", cfg.FarFuture,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if writer != nil {
		if err := writer.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
