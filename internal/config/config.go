package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/robfig/cron/v3"

	"github.com/couchcryptid/site-fueling-service/internal/domain"
)

// DefaultSheetURL is the published CSV export of the fueling plan sheet.
const DefaultSheetURL = "https://docs.google.com/spreadsheets/d/e/2PACX-1vRDnTkwpbgsnY_i60u3ZleNs1DL3vMdG3fYHMrr5rwVDqMb3GpgKH40Y-7WQsEzEAi-wDHwLaimN8NC/pub?gid=1871402380&single=true&output=csv"

// Config holds all service settings, populated from environment variables.
type Config struct {
	SheetURL        string
	RefreshInterval time.Duration
	RefreshSchedule string
	Schedule        cron.Schedule
	FetchTimeout    time.Duration
	Location        *time.Location
	FarFuture       domain.FarFuturePolicy
	AliasesFile     string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Snapshot publishing.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// Mapbox geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int
	MapboxCountry   string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	refreshInterval, err := parsePositiveDuration("REFRESH_INTERVAL", "2m")
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "8s")
	if err != nil {
		return nil, err
	}

	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	refreshSchedule := strings.TrimSpace(os.Getenv("REFRESH_SCHEDULE"))
	schedule, err := parseSchedule(refreshSchedule, refreshInterval)
	if err != nil {
		return nil, err
	}

	loc, err := parseLocation(os.Getenv("TIMEZONE"))
	if err != nil {
		return nil, err
	}

	farFuture, err := domain.ParseFarFuturePolicy(os.Getenv("FAR_FUTURE_POLICY"))
	if err != nil {
		return nil, fmt.Errorf("invalid FAR_FUTURE_POLICY: %w", err)
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		SheetURL:        sharedcfg.EnvOrDefault("SHEET_URL", DefaultSheetURL),
		RefreshInterval: refreshInterval,
		RefreshSchedule: refreshSchedule,
		Schedule:        schedule,
		FetchTimeout:    fetchTimeout,
		Location:        loc,
		FarFuture:       farFuture,
		AliasesFile:     os.Getenv("ALIASES_FILE"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaEnabled: os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "fueling-sites"),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parseMapboxCacheSize(),
		MapboxCountry:   os.Getenv("MAPBOX_COUNTRY"),
	}

	if cfg.SheetURL == "" {
		return nil, errors.New("SHEET_URL is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_ENABLED is true")
	}
	if cfg.MapboxEnabled && cfg.MapboxToken == "" {
		return nil, errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

// parseSchedule builds the refresh schedule: a standard 5-field cron
// expression or descriptor ("@hourly", "@every 5m") when set, otherwise a
// fixed interval.
func parseSchedule(expr string, interval time.Duration) (cron.Schedule, error) {
	if expr == "" {
		return cron.Every(interval), nil
	}
	sched, err := cron.ParseStandard(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_SCHEDULE %q: %w", expr, err)
	}
	return sched, nil
}

func parseLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}
