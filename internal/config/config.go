// Package config provides application configuration management.
// It loads settings from a .env file and IDMAP_* environment variables and
// validates them per entry point.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ValidationMode selects which settings are required.
type ValidationMode int

const (
	// CLIMode validates settings used by the idmap command.
	CLIMode ValidationMode = iota
	// ServerMode additionally requires the HTTP server settings.
	ServerMode
	// PublishMode additionally requires complete R2 credentials.
	PublishMode
)

// Config holds all application configuration
type Config struct {
	LogLevel string
	Strict   bool // reject case collisions when building a mapping

	// Data Configuration
	DataDir      string // Data directory for the SQLite run history
	ArtifactPath string // JSON artifact written by build and served by the server

	// Sources
	CatalogSource  string // file path, URL or "-" for stdin
	RegistrySource string // file path or URL of the program name registry
	FetchTimeout   time.Duration

	// Server Configuration
	Port            string
	ShutdownTimeout time.Duration
	ReloadInterval  time.Duration // how often the server reloads the artifact, 0 disables
	RateLimitBurst  float64       // per-client burst on the /v1 API
	RateLimitRefill float64       // per-client tokens per second, 0 disables

	// R2 Configuration
	R2Enabled         bool
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2ArtifactKey     string

	// Sentry Configuration
	SentryEnabled     bool
	SentryToken       string
	SentryHost        string
	SentryEnvironment string
	SentrySampleRate  float64

	// Better Stack Configuration
	BetterStackEnabled bool
	BetterStackToken   string

	// MetricsTextfile is a node-exporter textfile path; empty disables export.
	MetricsTextfile string
	MetricsUsername string
	MetricsPassword string
}

// Load reads configuration for the CLI.
func Load() (*Config, error) {
	return LoadForMode(CLIMode)
}

// LoadForMode reads configuration from environment variables and validates it for mode.
// It attempts to load .env file first, then reads from env vars.
func LoadForMode(mode ValidationMode) (*Config, error) {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	cfg := &Config{
		LogLevel: getEnv(EnvLogLevel, "info"),
		Strict:   getBoolEnv(EnvStrict, false),

		DataDir:      getEnv(EnvDataDir, getDefaultDataDir()),
		ArtifactPath: getEnv(EnvArtifactPath, ""),

		CatalogSource:  getEnv(EnvCatalogSource, ""),
		RegistrySource: getEnv(EnvRegistrySource, ""),
		FetchTimeout:   getDurationEnv(EnvFetchTimeout, 30*time.Second),

		Port:            getEnv(EnvPort, "10000"),
		ShutdownTimeout: getDurationEnv(EnvShutdownTimeout, 30*time.Second),
		ReloadInterval:  getDurationEnv(EnvReloadInterval, 5*time.Minute),
		RateLimitBurst:  getFloatEnv(EnvRateLimitBurst, 30),
		RateLimitRefill: getFloatEnv(EnvRateLimitRefill, 10),

		R2Enabled:         getBoolEnv(EnvR2Enabled, false),
		R2AccountID:       getEnv(EnvR2AccountID, ""),
		R2AccessKeyID:     getEnv(EnvR2AccessKeyID, ""),
		R2SecretAccessKey: getEnv(EnvR2SecretAccessKey, ""),
		R2BucketName:      getEnv(EnvR2BucketName, ""),
		R2ArtifactKey:     getEnv(EnvR2ArtifactKey, "competition-ids.json.zst"),

		SentryEnabled:     getBoolEnv(EnvSentryEnabled, false),
		SentryToken:       getEnv(EnvSentryToken, ""),
		SentryHost:        getEnv(EnvSentryHost, ""),
		SentryEnvironment: getEnv(EnvSentryEnvironment, "production"),
		SentrySampleRate:  getFloatEnv(EnvSentrySampleRate, 1.0),

		BetterStackEnabled: getBoolEnv(EnvBetterStackEnabled, false),
		BetterStackToken:   getEnv(EnvBetterStackToken, ""),

		MetricsTextfile: getEnv(EnvMetricsTextfile, ""),
		MetricsUsername: getEnv(EnvMetricsUsername, "prometheus"),
		MetricsPassword: getEnv(EnvMetricsPassword, ""),
	}
	if cfg.ArtifactPath == "" {
		cfg.ArtifactPath = filepath.Join(cfg.DataDir, "competition-ids.json")
	}

	if err := cfg.ValidateForMode(mode); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks the settings shared by every entry point.
func (c *Config) Validate() error {
	return c.ValidateForMode(CLIMode)
}

// ValidateForMode checks if required configuration values are set for mode
func (c *Config) ValidateForMode(mode ValidationMode) error {
	var errs []error

	if c.DataDir == "" {
		errs = append(errs, fmt.Errorf("%s is required", EnvDataDir))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvFetchTimeout, c.FetchTimeout))
	}
	if c.SentryEnabled && (c.SentryToken == "" || c.SentryHost == "") {
		errs = append(errs, fmt.Errorf("%s and %s are required when Sentry is enabled", EnvSentryToken, EnvSentryHost))
	}
	if c.SentrySampleRate < 0 || c.SentrySampleRate > 1 {
		errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", EnvSentrySampleRate, c.SentrySampleRate))
	}
	if c.BetterStackEnabled && c.BetterStackToken == "" {
		errs = append(errs, fmt.Errorf("%s is required when Better Stack is enabled", EnvBetterStackToken))
	}
	if c.R2Enabled || mode == PublishMode {
		if err := c.validateR2(); err != nil {
			errs = append(errs, err)
		}
	}

	if mode == ServerMode {
		if c.Port == "" {
			errs = append(errs, fmt.Errorf("%s is required", EnvPort))
		}
		if c.ShutdownTimeout <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %v", EnvShutdownTimeout, c.ShutdownTimeout))
		}
		if c.ReloadInterval < 0 {
			errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvReloadInterval, c.ReloadInterval))
		}
		if c.RateLimitRefill < 0 {
			errs = append(errs, fmt.Errorf("%s cannot be negative, got %v", EnvRateLimitRefill, c.RateLimitRefill))
		}
		if c.RateLimitRefill > 0 && c.RateLimitBurst < 1 {
			errs = append(errs, fmt.Errorf("%s must be at least 1, got %v", EnvRateLimitBurst, c.RateLimitBurst))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func (c *Config) validateR2() error {
	var missing []string
	for key, value := range map[string]string{
		EnvR2AccountID:       c.R2AccountID,
		EnvR2AccessKeyID:     c.R2AccessKeyID,
		EnvR2SecretAccessKey: c.R2SecretAccessKey,
		EnvR2BucketName:      c.R2BucketName,
		EnvR2ArtifactKey:     c.R2ArtifactKey,
	} {
		if value == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	// map iteration order is random
	slices.Sort(missing)
	return fmt.Errorf("R2 publishing requires %s", strings.Join(missing, ", "))
}

// getEnv retrieves environment variable with fallback to default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves boolean environment variable with fallback to default value
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getDurationEnv retrieves duration environment variable with fallback to default value
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getFloatEnv retrieves float64 environment variable with fallback to default value
func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getDefaultDataDir returns platform-specific default data directory
func getDefaultDataDir() string {
	if runtime.GOOS == "windows" {
		return "./data"
	}
	return "/data"
}

// SQLitePath returns the full path to the SQLite database file
func (c *Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "idmap.db")
}
