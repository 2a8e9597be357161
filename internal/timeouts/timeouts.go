// Package timeouts provides centralized timeout constants for the application.
//
// Values configurable through the environment (fetch timeout, shutdown timeout,
// reload interval) live in internal/config; the constants here cover the rest.
package timeouts

import "time"

// HTTP server timeouts
const (
	// HTTPReadHeader bounds how long a client may take to send request headers.
	HTTPReadHeader = 5 * time.Second

	// HTTPRead is the HTTP server read timeout. Requests carry no body.
	HTTPRead = 10 * time.Second

	// HTTPWrite is the HTTP server write timeout.
	// The largest response is the full program list or the /metrics page.
	HTTPWrite = 15 * time.Second

	// HTTPIdle is the HTTP server idle timeout for keep-alive connections.
	HTTPIdle = 120 * time.Second
)

// Object storage timeouts
const (
	// R2Operation is the timeout for a single R2 upload or download.
	R2Operation = 30 * time.Second

	// R2Startup bounds the initial artifact download when the server starts.
	// The server falls back to the local artifact when it expires.
	R2Startup = 15 * time.Second
)

// Database timeouts
const (
	// DatabaseBusyTimeout is SQLite busy_timeout pragma value.
	// Covers a concurrent CLI build writing while the server reads.
	DatabaseBusyTimeout = 30 * time.Second
)

// Background jobs
const (
	// RateLimitCleanup is how often idle client buckets are dropped.
	RateLimitCleanup = 5 * time.Minute
)

// Shutdown
const (
	// BackgroundStop is how long shutdown waits for background goroutines.
	BackgroundStop = 5 * time.Second

	// SentryFlush is how long buffered error events may take to be delivered
	// before the process exits.
	SentryFlush = 2 * time.Second
)
