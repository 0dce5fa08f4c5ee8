package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Join strategies.
const (
	JoinBroadcast = "broadcast"
	JoinShuffle   = "shuffle"
)

// Malformed-record policies.
const (
	MalformedFail = "fail"
	MalformedSkip = "skip"
)

// YearPlaceholder is replaced by the year in ObservationsPath.
const YearPlaceholder = "{year}"

// Config holds all batch settings, populated from environment variables.
type Config struct {
	StationsPath           string
	ObservationsPath       string // may contain {year} and glob metacharacters
	StationsSkipHeader     bool
	ObservationsSkipHeader bool

	YearStart int
	YearEnd   int // exclusive
	Kinds     []string

	Workers      int
	Partitions   int
	JoinStrategy string

	MalformedPolicy       string
	MaxMalformed          int
	RequireUniqueStations bool

	// Geocoding configuration.
	GeocoderBaseURL string
	GeocoderAPIKey  string
	GeocoderTimeout time.Duration

	// Optional results sink; disabled when KafkaBrokers is empty.
	KafkaBrokers      []string
	KafkaResultsTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables (and a .env file in
// the working directory, if present), applying defaults where unset.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("GEOCODER_TIMEOUT", "5s"))
	if err != nil || geocoderTimeout <= 0 {
		return nil, errors.New("invalid GEOCODER_TIMEOUT")
	}

	yearStart, err := parseInt("YEAR_START", 2000)
	if err != nil {
		return nil, err
	}
	yearEnd, err := parseInt("YEAR_END", 2001)
	if err != nil {
		return nil, err
	}
	workers, err := parseInt("WORKERS", runtime.NumCPU())
	if err != nil {
		return nil, err
	}
	partitions, err := parseInt("PARTITIONS", workers)
	if err != nil {
		return nil, err
	}
	maxMalformed, err := parseInt("MAX_MALFORMED", 1000)
	if err != nil {
		return nil, err
	}
	stationsSkipHeader, err := parseBool("STATIONS_SKIP_HEADER")
	if err != nil {
		return nil, err
	}
	observationsSkipHeader, err := parseBool("OBSERVATIONS_SKIP_HEADER")
	if err != nil {
		return nil, err
	}
	requireUnique, err := parseBool("REQUIRE_UNIQUE_STATIONS")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		StationsPath:           sharedcfg.EnvOrDefault("STATIONS_PATH", "data/stations.csv"),
		ObservationsPath:       sharedcfg.EnvOrDefault("OBSERVATIONS_PATH", "data/"+YearPlaceholder+".csv"),
		StationsSkipHeader:     stationsSkipHeader,
		ObservationsSkipHeader: observationsSkipHeader,
		YearStart:              yearStart,
		YearEnd:                yearEnd,
		Kinds:                  splitList(sharedcfg.EnvOrDefault("MEASUREMENT_KINDS", "TMIN,TMAX")),
		Workers:                workers,
		Partitions:             partitions,
		JoinStrategy:           sharedcfg.EnvOrDefault("JOIN_STRATEGY", JoinBroadcast),
		MalformedPolicy:        sharedcfg.EnvOrDefault("MALFORMED_POLICY", MalformedFail),
		MaxMalformed:           maxMalformed,
		RequireUniqueStations:  requireUnique,
		GeocoderBaseURL:        sharedcfg.EnvOrDefault("GEOCODER_BASE_URL", "https://maps.googleapis.com/maps/api/geocode/json"),
		GeocoderAPIKey:         os.Getenv("GEOCODER_API_KEY"),
		GeocoderTimeout:        geocoderTimeout,
		KafkaBrokers:           splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaResultsTopic:      sharedcfg.EnvOrDefault("KAFKA_RESULTS_TOPIC", "weather-yearly-stats"),
		HTTPAddr:               os.Getenv("HTTP_ADDR"),
		LogLevel:               sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:              sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:        shutdownTimeout,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.YearEnd <= c.YearStart {
		return fmt.Errorf("YEAR_END (%d) must be greater than YEAR_START (%d)", c.YearEnd, c.YearStart)
	}
	if len(c.Kinds) == 0 {
		return errors.New("MEASUREMENT_KINDS is required")
	}
	if c.Workers <= 0 {
		return errors.New("WORKERS must be positive")
	}
	if c.Partitions <= 0 {
		return errors.New("PARTITIONS must be positive")
	}
	if c.JoinStrategy != JoinBroadcast && c.JoinStrategy != JoinShuffle {
		return fmt.Errorf("invalid JOIN_STRATEGY %q: want %s or %s", c.JoinStrategy, JoinBroadcast, JoinShuffle)
	}
	if c.MalformedPolicy != MalformedFail && c.MalformedPolicy != MalformedSkip {
		return fmt.Errorf("invalid MALFORMED_POLICY %q: want %s or %s", c.MalformedPolicy, MalformedFail, MalformedSkip)
	}
	if c.MaxMalformed < 0 {
		return errors.New("MAX_MALFORMED must not be negative")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaResultsTopic == "" {
		return errors.New("KAFKA_RESULTS_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// ObservationsFor returns the observation path or glob for year.
func (c *Config) ObservationsFor(year int) string {
	return strings.ReplaceAll(c.ObservationsPath, YearPlaceholder, strconv.Itoa(year))
}

// Years returns the configured years in ascending order.
func (c *Config) Years() []int {
	years := make([]int, 0, c.YearEnd-c.YearStart)
	for y := c.YearStart; y < c.YearEnd; y++ {
		years = append(years, y)
	}
	return years
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseBool(key string) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
