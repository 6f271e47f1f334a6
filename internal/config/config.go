// Package config loads and validates application configuration.
// Values come from built-in defaults, then an optional TOML file named by
// CONFIG_FILE, then environment variables; each layer overrides the last.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Port is the TCP port the HTTP server listens on. Defaults to "8080".
	Port string `toml:"port"`

	// DatabaseURL is the Postgres connection string.
	// Required when StorageDriver is "postgres".
	DatabaseURL string `toml:"database_url"`

	// StorageDriver selects the booking store: "postgres" (default) or
	// "memory". The memory store loses everything on restart.
	StorageDriver string `toml:"storage_driver"`

	// LogLevel controls the minimum log level. Defaults to "info".
	// Valid values: debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// CORSOrigins is the list of allowed cross-origin request origins.
	// Defaults to ["http://localhost:5173"].
	// Set CORS_ORIGINS to a comma-separated list to override.
	CORSOrigins []string `toml:"cors_origins"`

	// MigrateOnStart applies pending schema migrations before serving.
	MigrateOnStart bool `toml:"migrate_on_start"`

	// MaxBodyBytes caps request body size. Defaults to 1 MiB.
	MaxBodyBytes int64 `toml:"max_body_bytes"`

	// MetricsEnabled exposes Prometheus metrics at /metrics.
	MetricsEnabled bool `toml:"metrics_enabled"`

	// KafkaBrokers lists the brokers booking events are published to.
	// Empty disables event publishing.
	KafkaBrokers []string `toml:"kafka_brokers"`

	// KafkaTopic is the topic booking events are written to.
	KafkaTopic string `toml:"kafka_topic"`
}

func defaults() Config {
	return Config{
		Port:           "8080",
		StorageDriver:  DriverPostgres,
		LogLevel:       "info",
		CORSOrigins:    []string{"http://localhost:5173"},
		MigrateOnStart: true,
		MaxBodyBytes:   1 << 20,
		MetricsEnabled: true,
		KafkaTopic:     "booking-events",
	}
}

// Load builds a Config from defaults, the optional CONFIG_FILE and the
// environment. Returns an error listing every missing or malformed value.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	var errs []error
	overrideString(&cfg.Port, "PORT")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.StorageDriver, "STORAGE_DRIVER")
	overrideString(&cfg.LogLevel, "LOG_LEVEL")
	overrideString(&cfg.KafkaTopic, "KAFKA_TOPIC")
	overrideList(&cfg.CORSOrigins, "CORS_ORIGINS")
	overrideList(&cfg.KafkaBrokers, "KAFKA_BROKERS")
	errs = append(errs,
		overrideBool(&cfg.MigrateOnStart, "MIGRATE_ON_START"),
		overrideBool(&cfg.MetricsEnabled, "METRICS_ENABLED"),
		overrideInt(&cfg.MaxBodyBytes, "MAX_BODY_BYTES"),
	)

	errs = append(errs, cfg.validate())
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadFile decodes a TOML file over cfg. Keys the Config does not know are
// rejected so a typo does not silently fall back to a default.
func loadFile(path string, cfg *Config) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config file %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

func (c Config) validate() error {
	var missing []string
	var errs []error

	switch c.StorageDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("STORAGE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMemory, c.StorageDriver))
	}
	if c.Port == "" {
		missing = append(missing, "PORT")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		missing = append(missing, "KAFKA_TOPIC")
	}

	if len(missing) > 0 {
		errs = append(errs, fmt.Errorf("required environment variables not set: %s", strings.Join(missing, ", ")))
	}
	return errors.Join(errs...)
}

// overrideString replaces *dst with the variable named by key when it is set
// and non-empty.
func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideList(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = splitCSV(v)
	}
}

func overrideBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: invalid boolean %q", key, v)
	}
	*dst = b
	return nil
}

func overrideInt(dst *int64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("%s: invalid integer %q", key, v)
	}
	*dst = n
	return nil
}

// splitCSV splits a comma-separated string into a trimmed slice, ignoring empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if t := strings.TrimSpace(part); t != "" {
			out = append(out, t)
		}
	}
	return out
}
