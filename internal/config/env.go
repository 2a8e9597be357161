// Package config defines environment variable keys for configuration.
package config

//nolint:gosec,revive // Environment variable keys are not credentials and do not need per-const comments.
const (
	// Core
	EnvLogLevel = "IDMAP_LOG_LEVEL"
	EnvDataDir  = "IDMAP_DATA_DIR"
	EnvStrict   = "IDMAP_STRICT"

	// Sources
	EnvCatalogSource  = "IDMAP_CATALOG_SOURCE"
	EnvRegistrySource = "IDMAP_REGISTRY_SOURCE"
	EnvFetchTimeout   = "IDMAP_FETCH_TIMEOUT"
	EnvArtifactPath   = "IDMAP_ARTIFACT_PATH"

	// Server
	EnvPort            = "IDMAP_PORT"
	EnvShutdownTimeout = "IDMAP_SHUTDOWN_TIMEOUT"
	EnvReloadInterval  = "IDMAP_RELOAD_INTERVAL"
	EnvRateLimitBurst  = "IDMAP_RATE_LIMIT_BURST"
	EnvRateLimitRefill = "IDMAP_RATE_LIMIT_REFILL" // tokens per second, 0 disables rate limiting

	// R2 Publishing Feature
	EnvR2Enabled         = "IDMAP_R2_ENABLED"
	EnvR2AccountID       = "IDMAP_R2_ACCOUNT_ID"
	EnvR2AccessKeyID     = "IDMAP_R2_ACCESS_KEY_ID"
	EnvR2SecretAccessKey = "IDMAP_R2_SECRET_ACCESS_KEY"
	EnvR2BucketName      = "IDMAP_R2_BUCKET_NAME"
	EnvR2ArtifactKey     = "IDMAP_R2_ARTIFACT_KEY"

	// Sentry Feature
	EnvSentryEnabled     = "IDMAP_SENTRY_ENABLED"
	EnvSentryToken       = "IDMAP_SENTRY_TOKEN"
	EnvSentryHost        = "IDMAP_SENTRY_HOST"
	EnvSentryEnvironment = "IDMAP_SENTRY_ENVIRONMENT"
	EnvSentrySampleRate  = "IDMAP_SENTRY_SAMPLE_RATE"

	// Better Stack Feature
	EnvBetterStackEnabled = "IDMAP_BETTERSTACK_ENABLED"
	EnvBetterStackToken   = "IDMAP_BETTERSTACK_TOKEN"

	// Metrics
	EnvMetricsTextfile = "IDMAP_METRICS_TEXTFILE"
	EnvMetricsUsername = "IDMAP_METRICS_USERNAME"
	EnvMetricsPassword = "IDMAP_METRICS_PASSWORD" // empty disables /metrics authentication
)
