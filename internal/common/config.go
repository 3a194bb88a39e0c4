// Package common provides shared utilities for brokeclub
package common

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for brokeclub
type Config struct {
	Environment string         `toml:"environment" env:"BROKECLUB_ENV"`
	Server      ServerConfig   `toml:"server"`
	Storage     StorageConfig  `toml:"storage"`
	Quotes      QuotesConfig   `toml:"quotes"`
	Schedule    ScheduleConfig `toml:"schedule"`
	Clients     ClientsConfig  `toml:"clients"`
	Cache       CacheConfig    `toml:"cache"`
	Events      EventsConfig   `toml:"events"`
	Logging     LoggingConfig  `toml:"logging"`
}

// ServerConfig holds the identity of the running instance
type ServerConfig struct {
	Host string `toml:"host" env:"BROKECLUB_HOST"`
	Port int    `toml:"port" env:"BROKECLUB_PORT"`
}

// StorageConfig selects and configures the store backends.
// Backend is "memory" or "surrealdb". QuotaBackend overrides where the daily
// usage counter lives; "postgres" keeps it in a PostgreSQL table.
type StorageConfig struct {
	Backend      string `toml:"backend" env:"BROKECLUB_STORAGE_BACKEND"`
	Address      string `toml:"address" env:"BROKECLUB_STORAGE_ADDRESS"`
	Namespace    string `toml:"namespace" env:"BROKECLUB_STORAGE_NAMESPACE"`
	Database     string `toml:"database" env:"BROKECLUB_STORAGE_DATABASE"`
	Username     string `toml:"username" env:"BROKECLUB_STORAGE_USERNAME"`
	Password     string `toml:"password" env:"BROKECLUB_STORAGE_PASSWORD"`
	QuotaBackend string `toml:"quota_backend" env:"BROKECLUB_QUOTA_BACKEND"`
	PostgresDSN  string `toml:"postgres_dsn" env:"BROKECLUB_POSTGRES_DSN"`
}

// QuotesConfig controls quote caching and the daily vendor call budget
type QuotesConfig struct {
	DailyLimit      int    `toml:"daily_limit" env:"BROKECLUB_QUOTE_DAILY_LIMIT"` // <= 0 means unlimited
	CacheTTLMinutes int    `toml:"cache_ttl_minutes" env:"BROKECLUB_QUOTE_CACHE_TTL_MIN"`
	StaleTTLDays    int    `toml:"stale_ttl_days" env:"BROKECLUB_QUOTE_STALE_TTL_DAYS"`
	FetchTimeout    string `toml:"fetch_timeout" env:"BROKECLUB_QUOTE_FETCH_TIMEOUT"`
	RefundOnFailure bool   `toml:"refund_on_failure" env:"BROKECLUB_QUOTE_REFUND_ON_FAILURE"`
	Source          string `toml:"source"`
	Currency        string `toml:"currency" env:"BROKECLUB_QUOTE_CURRENCY"`
}

// FreshTTL returns the window in which a cached quote is served as fresh
func (c *QuotesConfig) FreshTTL() time.Duration {
	if c.CacheTTLMinutes <= 0 {
		return FreshnessQuote
	}
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// StaleTTL returns the oldest age a cached quote may have to be used as a fallback
func (c *QuotesConfig) StaleTTL() time.Duration {
	if c.StaleTTLDays <= 0 {
		return FreshnessStaleQuote
	}
	return time.Duration(c.StaleTTLDays) * 24 * time.Hour
}

// GetFetchTimeout parses and returns the remote fetch timeout
func (c *QuotesConfig) GetFetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.FetchTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// ScheduleConfig holds the market session used by the ingestion scheduler
type ScheduleConfig struct {
	Enabled       bool   `toml:"enabled" env:"BROKECLUB_SCHEDULE_ENABLED"`
	Timezone      string `toml:"timezone" env:"BROKECLUB_SCHEDULE_TIMEZONE"`
	Open          string `toml:"open" env:"BROKECLUB_SCHEDULE_OPEN"`   // HH:MM local
	Close         string `toml:"close" env:"BROKECLUB_SCHEDULE_CLOSE"` // HH:MM local
	HourlyMinutes int    `toml:"hourly_minutes" env:"BROKECLUB_SCHEDULE_HOURLY_MINUTES"`
	TickInterval  string `toml:"tick_interval" env:"BROKECLUB_SCHEDULE_TICK_INTERVAL"`
}

// Location loads the configured market timezone
func (c *ScheduleConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// OpenClock returns the session open as an offset from local midnight
func (c *ScheduleConfig) OpenClock() (time.Duration, error) {
	return ParseClock(c.Open)
}

// CloseClock returns the session close as an offset from local midnight
func (c *ScheduleConfig) CloseClock() (time.Duration, error) {
	return ParseClock(c.Close)
}

// HourlyInterval returns the minimum gap between HOURLY refreshes
func (c *ScheduleConfig) HourlyInterval() time.Duration {
	if c.HourlyMinutes <= 0 {
		return 60 * time.Minute
	}
	return time.Duration(c.HourlyMinutes) * time.Minute
}

// GetTickInterval parses and returns the scheduler tick interval
func (c *ScheduleConfig) GetTickInterval() time.Duration {
	d, err := time.ParseDuration(c.TickInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// ParseClock parses an "HH:MM" wall-clock string into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid clock %q (want HH:MM): %w", s, err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	AlphaVantage AlphaVantageConfig `toml:"alphavantage"`
}

// AlphaVantageConfig holds market-data vendor configuration
type AlphaVantageConfig struct {
	BaseURL   string `toml:"base_url" env:"BROKECLUB_ALPHAVANTAGE_BASE_URL"`
	APIKey    string `toml:"api_key" env:"ALPHAVANTAGE_API_KEY"`
	RateLimit int    `toml:"rate_limit" env:"BROKECLUB_ALPHAVANTAGE_RATE_LIMIT"`
	Timeout   string `toml:"timeout" env:"BROKECLUB_ALPHAVANTAGE_TIMEOUT"`
}

// GetTimeout parses and returns the timeout duration
func (c *AlphaVantageConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// CacheConfig holds the symbol search cache configuration.
// An empty RedisAddress selects the in-process cache.
type CacheConfig struct {
	RedisAddress  string `toml:"redis_address" env:"BROKECLUB_REDIS_ADDRESS"`
	RedisPassword string `toml:"redis_password" env:"BROKECLUB_REDIS_PASSWORD"`
	RedisDB       int    `toml:"redis_db" env:"BROKECLUB_REDIS_DB"`
	SymbolTTL     string `toml:"symbol_ttl" env:"BROKECLUB_SYMBOL_TTL"`
}

// GetSymbolTTL parses and returns the symbol search cache TTL
func (c *CacheConfig) GetSymbolTTL() time.Duration {
	d, err := time.ParseDuration(c.SymbolTTL)
	if err != nil || d <= 0 {
		return FreshnessSymbolSearch
	}
	return d
}

// EventsConfig holds the quote refresh event publisher configuration.
// No brokers disables publishing.
type EventsConfig struct {
	KafkaBrokers []string `toml:"kafka_brokers" env:"BROKECLUB_KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `toml:"kafka_topic" env:"BROKECLUB_KAFKA_TOPIC"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string   `toml:"level" env:"BROKECLUB_LOG_LEVEL"`
	Format     string   `toml:"format" env:"BROKECLUB_LOG_FORMAT"`
	Outputs    []string `toml:"outputs"`
	FilePath   string   `toml:"file_path"`
	MaxSizeMB  int      `toml:"max_size_mb"`
	MaxBackups int      `toml:"max_backups"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend:   "memory",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "brokeclub",
			Database:  "brokeclub",
			Username:  "root",
			Password:  "root",
		},
		Quotes: QuotesConfig{
			DailyLimit:      20,
			CacheTTLMinutes: 15,
			StaleTTLDays:    30,
			FetchTimeout:    "10s",
			Source:          "ALPHAVANTAGE",
			Currency:        "BRL",
		},
		Schedule: ScheduleConfig{
			Enabled:       true,
			Timezone:      "America/Sao_Paulo",
			Open:          "10:00",
			Close:         "17:30",
			HourlyMinutes: 60,
			TickInterval:  "1m",
		},
		Clients: ClientsConfig{
			AlphaVantage: AlphaVantageConfig{
				BaseURL:   "https://www.alphavantage.co",
				RateLimit: 1,
				Timeout:   "10s",
			},
		},
		Cache: CacheConfig{
			SymbolTTL: "12h",
		},
		Events: EventsConfig{
			KafkaTopic: "quotes.refreshed",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			Outputs:    []string{"console"},
			FilePath:   "./logs/brokeclub.log",
			MaxSizeMB:  100,
			MaxBackups: 3,
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// A .env file in the working directory is loaded first when present.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier)
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := applyEnvOverrides(config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// Unset variables leave the file/default values in place.
func applyEnvOverrides(config *Config) error {
	if err := env.Parse(config); err != nil {
		return fmt.Errorf("failed to parse environment overrides: %w", err)
	}
	return nil
}

// Validate checks the settings the scheduler and stores cannot run without
func (c *Config) Validate() error {
	if _, err := c.Schedule.Location(); err != nil {
		return err
	}
	open, err := c.Schedule.OpenClock()
	if err != nil {
		return fmt.Errorf("schedule.open: %w", err)
	}
	closing, err := c.Schedule.CloseClock()
	if err != nil {
		return fmt.Errorf("schedule.close: %w", err)
	}
	if closing <= open {
		return fmt.Errorf("schedule.close (%s) must be after schedule.open (%s)", c.Schedule.Close, c.Schedule.Open)
	}

	switch strings.ToLower(c.Storage.Backend) {
	case "", "memory", "surrealdb":
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch strings.ToLower(c.Storage.QuotaBackend) {
	case "":
	case "postgres":
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required when quota_backend = \"postgres\"")
		}
	default:
		return fmt.Errorf("unknown quota backend %q", c.Storage.QuotaBackend)
	}

	return nil
}

// ValidateRequired returns the names of required settings that are missing.
// The service still starts without them but quotes fall back to cache only.
func (c *Config) ValidateRequired() []string {
	var missing []string
	if strings.TrimSpace(c.Clients.AlphaVantage.APIKey) == "" {
		missing = append(missing, "clients.alphavantage.api_key")
	}
	return missing
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
