package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/garyellow/admission-lists/internal/buildinfo"
	"github.com/garyellow/admission-lists/internal/config"
	"github.com/garyellow/admission-lists/internal/logger"
	"github.com/garyellow/admission-lists/internal/r2client"
	"github.com/garyellow/admission-lists/internal/sentry"
)

// NewLogger creates the process logger from cfg and installs it as the slog
// default so package-level slog calls carry run and request IDs.
func NewLogger(cfg *config.Config, w io.Writer, component string) *logger.Logger {
	var opts logger.Options
	if cfg.BetterStackEnabled {
		opts.BetterStackToken = cfg.BetterStackToken
	}
	log := logger.NewWithOptions(cfg.LogLevel, w, opts).WithField("component", component)
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}
	slog.SetDefault(log.Logger)
	return log
}

// InitSentry enables error reporting when configured. A failure is logged and
// the process continues without it.
func InitSentry(cfg *config.Config, serverName string, log *logger.Logger) {
	if !cfg.SentryEnabled {
		return
	}
	err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Release(),
		ServerName:  serverName,
		SampleRate:  cfg.SentrySampleRate,
	})
	if err != nil {
		log.WithError(err).Warn("Sentry initialization failed, error reporting disabled")
		return
	}
	log.WithField("host", cfg.SentryHost).Info("Sentry error reporting enabled")
}

// NewObjectStore connects to the configured R2 bucket.
func NewObjectStore(ctx context.Context, cfg *config.Config) (*r2client.Client, error) {
	client, err := r2client.New(ctx, r2client.Config{
		Endpoint:    r2client.EndpointForAccount(cfg.R2AccountID),
		AccessKeyID: cfg.R2AccessKeyID,
		SecretKey:   cfg.R2SecretAccessKey,
		BucketName:  cfg.R2BucketName,
	})
	if err != nil {
		return nil, fmt.Errorf("r2: %w", err)
	}
	return client, nil
}

// NewRegistry returns a Prometheus registry with the Go, process and build
// info collectors registered.
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	return registry
}
