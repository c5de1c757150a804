package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wbrandsma/partsync/internal/geo"
)

// Config holds all configuration for the partsync server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Zuper    ZuperConfig
	Sync     SyncConfig
	Assist   AssistConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

// ZuperConfig configures the upstream field-service API client.
type ZuperConfig struct {
	BaseURL           string
	APIKey            string
	OrgUID            string
	Timeout           time.Duration
	PageSize          int
	RequestsPerMinute int
	MaxRetries        int
	RetryBaseDelay    time.Duration
	RetryMaxDelay     time.Duration
}

// SyncConfig configures what the pipeline retains and how often it runs.
// Interval 0 disables the background scheduler; syncs can still be
// triggered over the API.
type SyncConfig struct {
	Category string
	Bounds   geo.Bounds
	Interval time.Duration
}

// AssistConfig configures the optional AI summary endpoint. The feature is
// disabled when no API key is set.
type AssistConfig struct {
	AnthropicAPIKey string
	Model           string
	Timeout         time.Duration
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any required value is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("PARTSYNC_PORT", 8080),
			Env:  envString("PARTSYNC_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Zuper: ZuperConfig{
			BaseURL:           os.Getenv("ZUPER_BASE_URL"),
			APIKey:            os.Getenv("ZUPER_API_KEY"),
			OrgUID:            os.Getenv("ZUPER_ORG_UID"),
			Timeout:           envDuration("ZUPER_TIMEOUT", 30*time.Second),
			PageSize:          envInt("ZUPER_PAGE_SIZE", 100),
			RequestsPerMinute: envInt("ZUPER_REQUESTS_PER_MINUTE", 100),
			MaxRetries:        envInt("ZUPER_MAX_RETRIES", 5),
			RetryBaseDelay:    envDuration("ZUPER_RETRY_BASE_DELAY", 500*time.Millisecond),
			RetryMaxDelay:     envDuration("ZUPER_RETRY_MAX_DELAY", 30*time.Second),
		},
		Sync: SyncConfig{
			Category: envString("SYNC_CATEGORY", "Field Requires Parts"),
			Bounds: geo.Bounds{
				MinLat: envFloat("SYNC_MIN_LAT", geo.EU.MinLat),
				MaxLat: envFloat("SYNC_MAX_LAT", geo.EU.MaxLat),
				MinLon: envFloat("SYNC_MIN_LON", geo.EU.MinLon),
				MaxLon: envFloat("SYNC_MAX_LON", geo.EU.MaxLon),
			},
			Interval: envDuration("SYNC_INTERVAL", 0),
		},
		Assist: AssistConfig{
			AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:           envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			Timeout:         envDuration("ASSIST_TIMEOUT", 60*time.Second),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Zuper.BaseURL == "" {
		return fmt.Errorf("ZUPER_BASE_URL is required")
	}
	if !strings.HasPrefix(c.Zuper.BaseURL, "http://") && !strings.HasPrefix(c.Zuper.BaseURL, "https://") {
		return fmt.Errorf("ZUPER_BASE_URL must start with http:// or https://, got %q", c.Zuper.BaseURL)
	}
	if c.Zuper.APIKey == "" {
		return fmt.Errorf("ZUPER_API_KEY is required")
	}
	if c.Zuper.OrgUID == "" {
		return fmt.Errorf("ZUPER_ORG_UID is required")
	}
	if c.Zuper.PageSize < 1 || c.Zuper.PageSize > 100 {
		return fmt.Errorf("ZUPER_PAGE_SIZE must be between 1 and 100, got %d", c.Zuper.PageSize)
	}
	if c.Zuper.RequestsPerMinute < 1 {
		return fmt.Errorf("ZUPER_REQUESTS_PER_MINUTE must be positive, got %d", c.Zuper.RequestsPerMinute)
	}
	if c.Zuper.MaxRetries < 1 {
		return fmt.Errorf("ZUPER_MAX_RETRIES must be positive, got %d", c.Zuper.MaxRetries)
	}

	if c.Sync.Category == "" {
		return fmt.Errorf("SYNC_CATEGORY is required")
	}
	b := c.Sync.Bounds
	if !geo.ValidCoordinates(b.MinLat, b.MinLon) || !geo.ValidCoordinates(b.MaxLat, b.MaxLon) {
		return fmt.Errorf("sync bounds are outside valid GPS ranges")
	}
	if b.MinLat >= b.MaxLat || b.MinLon >= b.MaxLon {
		return fmt.Errorf("sync bounds are inverted: min must be below max")
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
