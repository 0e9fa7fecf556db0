package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration from environment variables,
// optionally overridden by a YAML file.
type Config struct {
	Port          int    `yaml:"port" validate:"min=1,max=65535"`
	DBPath        string `yaml:"db_path" validate:"required"`
	GTFSDir       string `yaml:"gtfs_dir" validate:"required"`
	GTFSURL       string `yaml:"gtfs_url" validate:"omitempty,url"`
	DeparturesURL string `yaml:"departures_url" validate:"required,url"`
	AlertsURL     string `yaml:"alerts_url" validate:"omitempty,url"` // empty disables the GTFS-RT poller
	Timezone      string `yaml:"timezone" validate:"required"`
	LogLevel      string `yaml:"log_level" validate:"oneof=debug info warn error"`

	FetchTimeout time.Duration `yaml:"fetch_timeout" validate:"gt=0"`
	CacheTTL     time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	MaxInFlight  int64         `yaml:"max_in_flight" validate:"min=1"`

	ImportStops bool `yaml:"-"` // CLI flag: force stop re-import
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:          envInt("VILNIUSBUS_PORT", 8080),
		DBPath:        envStr("VILNIUSBUS_DB_PATH", "./vilniusbus.db"),
		GTFSDir:       envStr("VILNIUSBUS_GTFS_DIR", "./data"),
		GTFSURL:       envStr("VILNIUSBUS_GTFS_URL", "https://www.stops.lt/vilnius/vilnius/gtfs.zip"),
		DeparturesURL: envStr("VILNIUSBUS_DEPARTURES_URL", "https://www.stops.lt/vilnius"),
		AlertsURL:     envStr("VILNIUSBUS_ALERTS_URL", ""),
		Timezone:      envStr("VILNIUSBUS_TIMEZONE", "Europe/Vilnius"),
		LogLevel:      envStr("VILNIUSBUS_LOG_LEVEL", "info"),
		FetchTimeout:  envDuration("VILNIUSBUS_FETCH_TIMEOUT", 10*time.Second),
		CacheTTL:      envDuration("VILNIUSBUS_CACHE_TTL", 15*time.Second),
		MaxInFlight:   int64(envInt("VILNIUSBUS_MAX_IN_FLIGHT", 8)),
	}
}

// MergeFile overrides fields present in the YAML file at path.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid config: timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured timezone. The feed counts seconds from
// midnight in this zone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		// Vilnius without tzdata: EET, ignoring DST.
		return time.FixedZone("EET", 2*60*60)
	}
	return loc
}

// SlogLevel maps LogLevel onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
