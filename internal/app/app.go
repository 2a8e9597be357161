// Package app provides process bootstrap shared by the commands and the
// lifecycle of the resolution server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/garyellow/admission-lists/internal/config"
	"github.com/garyellow/admission-lists/internal/logger"
	"github.com/garyellow/admission-lists/internal/metrics"
	"github.com/garyellow/admission-lists/internal/ratelimit"
	"github.com/garyellow/admission-lists/internal/sentry"
	"github.com/garyellow/admission-lists/internal/server"
	"github.com/garyellow/admission-lists/internal/storage"
	"github.com/garyellow/admission-lists/internal/timeouts"
)

// Application manages the server lifecycle and dependencies.
type Application struct {
	cfg      *config.Config
	logger   *logger.Logger
	db       *storage.DB
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	holder   *server.Holder
	loader   *SnapshotLoader
	limiter  *ratelimit.KeyedLimiter // nil when rate limiting is disabled
	server   *http.Server
	wg       sync.WaitGroup // background goroutines, waited for on shutdown
}

// Initialize creates the application and loads the first mapping snapshot.
// A failed initial load is not fatal: /readyz reports 503 until the reloader
// succeeds.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := NewLogger(cfg, os.Stdout, "server")
	log.Info("Initializing application...")
	InitSentry(cfg, "server", log)

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	registry := NewRegistry()
	m := metrics.New(registry)

	loader := &SnapshotLoader{
		ArtifactPath: cfg.ArtifactPath,
		Runs:         db,
		Metrics:      m,
		Logger:       log.WithModule("loader"),
	}
	if cfg.R2Enabled {
		store, err := NewObjectStore(ctx, cfg)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		loader.Store = store
		loader.Key = cfg.R2ArtifactKey
		log.WithField("bucket", cfg.R2BucketName).WithField("key", cfg.R2ArtifactKey).Info("R2 artifact source enabled")
	}

	holder := server.NewHolder()
	startCtx, cancel := context.WithTimeout(ctx, timeouts.R2Startup)
	defer cancel()
	if err := holder.Reload(startCtx, loader.Load); err != nil {
		log.WithError(err).Warn("Initial mapping load failed, serving 503 until a reload succeeds")
		sentry.CaptureWithTags(ctx, err, map[string]string{"stage": "initial_load"})
	} else {
		s := holder.Current()
		log.WithFields(map[string]any{
			"source":   s.Source,
			"run_id":   s.RunID,
			"programs": s.Mapping.Len(),
		}).Info("Mapping loaded")
	}

	var limiter *ratelimit.KeyedLimiter
	if cfg.RateLimitRefill > 0 {
		limiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
			Name:          "client",
			Burst:         cfg.RateLimitBurst,
			RefillRate:    cfg.RateLimitRefill,
			CleanupPeriod: timeouts.RateLimitCleanup,
			Metrics:       m,
		})
		log.WithField("burst", cfg.RateLimitBurst).WithField("refill_per_sec", cfg.RateLimitRefill).Info("Per-client rate limiting enabled")
	}

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := server.NewRouter(server.Options{
		Holder:          holder,
		Metrics:         m,
		Gatherer:        registry,
		History:         db,
		Logger:          log.WithModule("http"),
		Sentry:          sentry.IsEnabled(),
		RateLimiter:     limiter,
		MetricsUsername: cfg.MetricsUsername,
		MetricsPassword: cfg.MetricsPassword,
	})

	app := &Application{
		cfg:      cfg,
		logger:   log,
		db:       db,
		metrics:  m,
		registry: registry,
		holder:   holder,
		loader:   loader,
		limiter:  limiter,
		server: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: timeouts.HTTPReadHeader,
			ReadTimeout:       timeouts.HTTPRead,
			WriteTimeout:      timeouts.HTTPWrite,
			IdleTimeout:       timeouts.HTTPIdle,
		},
	}

	log.Info("Initialization complete")
	return app, nil
}

// Run starts the HTTP server and background jobs and blocks until SIGINT or
// SIGTERM.
//
// Shutdown order: cancel background jobs and wait for them, then stop the
// HTTP server, then close the database.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	errCh := a.startHTTPServer()

	select {
	case sig := <-a.waitForShutdownSignal():
		a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-errCh:
		a.logger.WithError(err).Error("HTTP server error")
		cancel()
		a.wg.Wait()
		_ = a.shutdown()
		return err
	}

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		a.logger.Info("All background jobs completed")
	case <-time.After(timeouts.BackgroundStop):
		a.logger.Warn("Timeout waiting for background jobs to stop")
	}

	return a.shutdown()
}

func (a *Application) startBackgroundJobs(ctx context.Context) {
	if a.cfg.ReloadInterval <= 0 {
		a.logger.Info("Mapping reload disabled")
		return
	}
	a.wg.Go(func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.WithField("panic", r).Error("Panic in mapping reloader")
			}
		}()
		a.holder.RunReloader(ctx, a.cfg.ReloadInterval, a.loader.Load, a.logger.WithModule("reloader"))
	})
}

// startHTTPServer serves in a goroutine. The returned channel receives the
// error if the listener fails.
func (a *Application) startHTTPServer() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

func (a *Application) waitForShutdownSignal() <-chan os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return quit
}

func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	var errs []error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
		errs = append(errs, err)
	}

	if a.limiter != nil {
		a.limiter.Stop()
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
		errs = append(errs, err)
	}

	sentry.Flush(timeouts.SentryFlush)
	a.logger.Info("Shutdown complete")
	return errors.Join(errs...)
}
