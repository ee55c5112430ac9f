// Package config loads service configuration from the environment, with an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"pharmastock/internal/domain/settings"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the full configuration surface of the server and the worker.
type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Alerts   AlertsConfig
	Auth     AuthConfig
}

// AppConfig holds process level options.
type AppConfig struct {
	Port       string
	Env        string
	LogLevel   string
	Timezone   string
	SessionTTL time.Duration
}

// Development reports whether the service runs in development mode.
func (c AppConfig) Development() bool {
	return c.Env == "development"
}

// Location resolves Timezone.
func (c AppConfig) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// DatabaseConfig selects and tunes the storage backend.
type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// AlertsConfig holds thresholds and the background scan schedule.
type AlertsConfig struct {
	Thresholds   settings.Thresholds
	Concurrency  int
	ScanSchedule string
	Locations    []string
}

// AuthConfig configures bearer token validation.
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	Required  bool
}

// Load reads environment variables (optionally from envFile) and returns a
// validated Config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		// A missing .env is fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	cfg := &Config{
		App: AppConfig{
			Port:       getenvWithDefault("APP_PORT", "8080"),
			Env:        getenvWithDefault("APP_ENV", "development"),
			LogLevel:   getenvWithDefault("LOG_LEVEL", "info"),
			Timezone:   getenvWithDefault("TIMEZONE", "UTC"),
			SessionTTL: getenvDuration("SESSION_TTL", 8*time.Hour),
		},
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getenvWithDefault("STORAGE_DRIVER", DriverPostgres)),
			URL:             os.Getenv("DATABASE_URL"),
			MaxConns:        int32(getenvInt("DB_MAX_CONNS", 25)),
			MinConns:        int32(getenvInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime: getenvDuration("DB_MAX_CONN_LIFETIME", time.Hour),
		},
		Alerts: AlertsConfig{
			Thresholds: settings.Thresholds{
				LowStockThreshold: getenvInt("LOW_STOCK_THRESHOLD", settings.DefaultLowStockThreshold),
				ExpiryWarningDays: getenvInt("EXPIRY_WARNING_DAYS", settings.DefaultExpiryWarningDays),
				ExpiryEnabled:     getenvBool("ALERT_EXPIRY_ENABLED", true),
				LowStockEnabled:   getenvBool("ALERT_LOW_STOCK_ENABLED", true),
				OutOfStockEnabled: getenvBool("ALERT_OUT_OF_STOCK_ENABLED", true),
			},
			Concurrency:  getenvInt("ALERT_CONCURRENCY", 8),
			ScanSchedule: getenvWithDefault("ALERT_SCAN_SCHEDULE", "*/15 * * * *"),
			Locations:    splitList(os.Getenv("ALERT_LOCATIONS")),
		},
		Auth: AuthConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
			JWTIssuer: getenvWithDefault("JWT_ISSUER", "pharmastock"),
			Required:  getenvBool("AUTH_REQUIRED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.App.Port == "" {
		return errors.New("APP_PORT must be provided")
	}
	if _, err := c.App.Location(); err != nil {
		return fmt.Errorf("TIMEZONE is invalid: %w", err)
	}

	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("DATABASE_URL must be provided for the postgres driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORAGE_DRIVER %q is not supported", c.Database.Driver)
	}

	if err := c.Alerts.Thresholds.Validate(); err != nil {
		return fmt.Errorf("alert thresholds: %w", err)
	}
	if c.Alerts.Concurrency <= 0 {
		return errors.New("ALERT_CONCURRENCY must be positive")
	}

	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must be provided when AUTH_REQUIRED is true")
	}
	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
