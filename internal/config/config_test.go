package config

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDataDir, dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "10000" {
		t.Errorf("Expected default port '10000', got '%s'", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected default log level 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("Expected default fetch timeout 30s, got %v", cfg.FetchTimeout)
	}
	if cfg.Strict {
		t.Error("Expected strict mode to be off by default")
	}
	if cfg.RateLimitBurst != 30 || cfg.RateLimitRefill != 10 {
		t.Errorf("rate limit = %v/%v, want 30/10", cfg.RateLimitBurst, cfg.RateLimitRefill)
	}
	if want := filepath.Join(dir, "competition-ids.json"); cfg.ArtifactPath != want {
		t.Errorf("ArtifactPath = %q, want %q", cfg.ArtifactPath, want)
	}
	if want := filepath.Join(dir, "idmap.db"); cfg.SQLitePath() != want {
		t.Errorf("SQLitePath() = %q, want %q", cfg.SQLitePath(), want)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvStrict, "true")
	t.Setenv(EnvFetchTimeout, "5s")
	t.Setenv(EnvArtifactPath, "/tmp/ids.json")
	t.Setenv(EnvSentrySampleRate, "0.25")
	t.Setenv(EnvCatalogSource, "https://example.org/programs.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if !cfg.Strict {
		t.Error("Expected strict mode")
	}
	if cfg.FetchTimeout != 5*time.Second {
		t.Errorf("FetchTimeout = %v, want 5s", cfg.FetchTimeout)
	}
	if cfg.ArtifactPath != "/tmp/ids.json" {
		t.Errorf("ArtifactPath = %q", cfg.ArtifactPath)
	}
	if cfg.SentrySampleRate != 0.25 {
		t.Errorf("SentrySampleRate = %v", cfg.SentrySampleRate)
	}
	if cfg.CatalogSource != "https://example.org/programs.json" {
		t.Errorf("CatalogSource = %q", cfg.CatalogSource)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())
	t.Setenv(EnvFetchTimeout, "soon")
	t.Setenv(EnvStrict, "maybe")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.FetchTimeout != 30*time.Second {
		t.Errorf("FetchTimeout = %v, want default", cfg.FetchTimeout)
	}
	if cfg.Strict {
		t.Error("unparseable bool should fall back to false")
	}
}

func TestLoadForMode_Publish(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())

	_, err := LoadForMode(PublishMode)
	if err == nil {
		t.Fatal("expected error without R2 credentials")
	}
	if !strings.Contains(err.Error(), EnvR2BucketName) {
		t.Errorf("error %q should mention %s", err, EnvR2BucketName)
	}

	t.Setenv(EnvR2AccountID, "acct")
	t.Setenv(EnvR2AccessKeyID, "key")
	t.Setenv(EnvR2SecretAccessKey, "secret")
	t.Setenv(EnvR2BucketName, "bucket")
	if _, err := LoadForMode(PublishMode); err != nil {
		t.Errorf("LoadForMode(PublishMode) with credentials: %v", err)
	}
}

func validConfig() *Config {
	return &Config{
		DataDir:          "/data",
		FetchTimeout:     time.Second,
		Port:             "10000",
		ShutdownTimeout:  time.Second,
		SentrySampleRate: 1,
		R2ArtifactKey:    "competition-ids.json.zst",
	}
}

func TestValidateForMode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		mode        ValidationMode
		mutate      func(*Config)
		errContains []string
	}{
		{name: "valid cli", mode: CLIMode, mutate: func(*Config) {}},
		{name: "valid server", mode: ServerMode, mutate: func(*Config) {}},
		{
			name:        "missing data dir",
			mode:        CLIMode,
			mutate:      func(c *Config) { c.DataDir = "" },
			errContains: []string{EnvDataDir},
		},
		{
			name:        "server without port",
			mode:        ServerMode,
			mutate:      func(c *Config) { c.Port = "" },
			errContains: []string{EnvPort},
		},
		{
			name:        "negative reload interval",
			mode:        ServerMode,
			mutate:      func(c *Config) { c.ReloadInterval = -time.Second },
			errContains: []string{EnvReloadInterval},
		},
		{
			name:        "negative rate limit refill",
			mode:        ServerMode,
			mutate:      func(c *Config) { c.RateLimitRefill = -1 },
			errContains: []string{EnvRateLimitRefill},
		},
		{
			name: "rate limit burst below one",
			mode: ServerMode,
			mutate: func(c *Config) {
				c.RateLimitRefill = 5
				c.RateLimitBurst = 0.5
			},
			errContains: []string{EnvRateLimitBurst},
		},
		{
			name:   "cli ignores port",
			mode:   CLIMode,
			mutate: func(c *Config) { c.Port = "" },
		},
		{
			name: "multiple problems are joined",
			mode: CLIMode,
			mutate: func(c *Config) {
				c.FetchTimeout = 0
				c.SentryEnabled = true
				c.BetterStackEnabled = true
			},
			errContains: []string{EnvFetchTimeout, EnvSentryToken, EnvBetterStackToken},
		},
		{
			name:        "sample rate out of range",
			mode:        CLIMode,
			mutate:      func(c *Config) { c.SentrySampleRate = 1.5 },
			errContains: []string{EnvSentrySampleRate},
		},
		{
			name:        "r2 enabled without credentials",
			mode:        CLIMode,
			mutate:      func(c *Config) { c.R2Enabled = true },
			errContains: []string{EnvR2AccessKeyID, EnvR2AccountID},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.ValidateForMode(tt.mode)
			if len(tt.errContains) == 0 {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			for _, want := range tt.errContains {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %s", err, want)
				}
			}
		})
	}
}
