package config

import "time"

// Webhook timeouts
const (
	// WebhookProcessing bounds the handling of a single webhook event,
	// including the LLM call. LINE's loading animation lasts up to 60s.
	WebhookProcessing = 60 * time.Second

	// WebhookHTTPRead is the HTTP server read timeout for webhook requests.
	WebhookHTTPRead = 10 * time.Second

	// WebhookHTTPWrite is the HTTP server write timeout.
	WebhookHTTPWrite = 65 * time.Second

	// WebhookHTTPIdle is the HTTP server idle timeout for keep-alive connections.
	WebhookHTTPIdle = 120 * time.Second

	// LINEAPICall bounds a single reply or loading-animation request.
	LINEAPICall = 10 * time.Second
)

// LLM timeouts
const (
	// LLMAnswer is the default budget for one free-text answer across
	// all providers and retries.
	LLMAnswer = 45 * time.Second
)

// Dataset timeouts
const (
	// DatasetWatchDebounce coalesces bursts of file events from editors
	// that write through temp files.
	DatasetWatchDebounce = 500 * time.Millisecond

	// BackupUpload bounds an asynchronous dataset upload to R2.
	BackupUpload = 30 * time.Second

	// BackupRestore bounds the startup restore from R2.
	BackupRestore = 60 * time.Second

	// DatabaseBusyTimeout is the SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 5 * time.Second
)

// Background job intervals
const (
	// RateLimiterCleanupInterval is how often idle per-user limiters are dropped.
	RateLimiterCleanupInterval = 5 * time.Minute

	// HistorySweepInterval is how often idle conversations are checked.
	HistorySweepInterval = 10 * time.Minute

	// MetricsUpdateInterval is how often gauge metrics are refreshed.
	MetricsUpdateInterval = time.Minute
)

// Graceful shutdown
const (
	// GracefulShutdown is the default timeout for graceful server shutdown.
	GracefulShutdown = 30 * time.Second
)
