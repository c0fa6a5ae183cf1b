// Package metrics defines the Prometheus series exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPErrorsTotal *prometheus.CounterVec

	// Lookup metrics
	LookupsTotal *prometheus.CounterVec

	// LLM metrics
	LLMRequestsTotal   *prometheus.CounterVec
	LLMDurationSeconds *prometheus.HistogramVec
	LLMFallbackTotal   *prometheus.CounterVec

	// Conversation history
	HistoryUsers prometheus.Gauge

	// Dataset metrics
	DatasetRecords          *prometheus.GaugeVec
	DatasetReloadsTotal     *prometheus.CounterVec
	DatasetUnavailableTotal *prometheus.CounterVec
	PersistenceFailures     *prometheus.CounterVec

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec
	RateLimiterUsers   *prometheus.GaugeVec

	// Backup metrics
	BackupUploadsTotal *prometheus.CounterVec
	BackupDuration     prometheus.Histogram
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "metromate_webhook_duration_seconds",
				Help:    "Webhook event processing duration in seconds by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 15, 45},
			},
			[]string{"event_type"}, // event_type: message, follow
		),

		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metromate_webhook_requests_total",
				Help: "Total number of webhook events by event type and status",
			},
			[]string{"event_type", "status"}, // status: success, error
		),

		HTTPErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metromate_http_errors_total",
				Help: "Total HTTP errors by type and module",
			},
			[]string{"error_type", "module"}, // error_type: invalid_signature, reply_failed, panic
		),

		LookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metromate_lookups_total",
				Help: "Total number of structured lookups by module and result",
			},
			[]string{"module", "result"}, // result: found, not_found, no_data, all
		),

		LLMRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metromate_llm_requests_total",
				Help: "Total number of LLM requests by provider and status",
			},
			[]string{"provider", "status"}, // status: success, error
		),

		LLMDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "metromate_llm_duration_seconds",
				Help:    "LLM request duration in seconds by provider",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45},
			},
			[]string{"provider"},
		),

		LLMFallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metromate_llm_fallback_total",
				Help: "Total number of LLM provider fallbacks",
			},
			[]string{"from", "to"},
		),

		HistoryUsers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "metromate_history_users",
				Help: "Number of users with a conversation history buffer",
			},
		),

		DatasetRecords: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "metromate_dataset_records",
				Help: "Number of records per dataset document",
			},
			[]string{"document"},
		),

		DatasetReloadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metromate_dataset_reloads_total",
				Help: "Total number of dataset loads by status",
			},
			[]string{"status"}, // status: ok, partial
		),

		DatasetUnavailableTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metromate_dataset_unavailable_total",
				Help: "Total number of documents that could not be loaded",
			},
			[]string{"document"},
		),

		PersistenceFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metromate_persistence_failures_total",
				Help: "Total number of failed dataset write-backs",
			},
			[]string{"document"},
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metromate_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"}, // limiter_type: user, llm
		),

		RateLimiterUsers: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "metromate_rate_limiter_users",
				Help: "Number of keys tracked by each rate limiter",
			},
			[]string{"limiter_type"},
		),

		BackupUploadsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "metromate_backup_uploads_total",
				Help: "Total number of dataset backup attempts by status",
			},
			[]string{"status"}, // status: success, error, unchanged
		),

		BackupDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "metromate_backup_duration_seconds",
				Help:    "Dataset backup upload duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		),
	}
}

// RecordWebhook records a processed webhook event
func (m *Metrics) RecordWebhook(eventType, status string, duration float64) {
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordHTTPError records HTTP error metrics
func (m *Metrics) RecordHTTPError(errorType, module string) {
	m.HTTPErrorsTotal.WithLabelValues(errorType, module).Inc()
}

// RecordLookup records a structured lookup and its outcome
func (m *Metrics) RecordLookup(module, result string) {
	m.LookupsTotal.WithLabelValues(module, result).Inc()
}

// RecordLLM records one provider call
func (m *Metrics) RecordLLM(provider, status string, duration float64) {
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMDurationSeconds.WithLabelValues(provider).Observe(duration)
}

// RecordLLMFallback records a switch from one provider to the next
func (m *Metrics) RecordLLMFallback(from, to string) {
	m.LLMFallbackTotal.WithLabelValues(from, to).Inc()
}

// SetHistoryUsers sets the number of history buffers
func (m *Metrics) SetHistoryUsers(count int) {
	m.HistoryUsers.Set(float64(count))
}

// SetDatasetRecords sets the record count of a document
func (m *Metrics) SetDatasetRecords(document string, count int) {
	m.DatasetRecords.WithLabelValues(document).Set(float64(count))
}

// RecordDatasetReload records a dataset load
func (m *Metrics) RecordDatasetReload(status string) {
	m.DatasetReloadsTotal.WithLabelValues(status).Inc()
}

// RecordDataUnavailable records a document that fell back to empty data
func (m *Metrics) RecordDataUnavailable(document string) {
	m.DatasetUnavailableTotal.WithLabelValues(document).Inc()
}

// RecordPersistenceFailure records a failed write-back
func (m *Metrics) RecordPersistenceFailure(document string) {
	m.PersistenceFailures.WithLabelValues(document).Inc()
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// SetRateLimiterUsers sets the number of keys a limiter tracks
func (m *Metrics) SetRateLimiterUsers(limiterType string, count int) {
	m.RateLimiterUsers.WithLabelValues(limiterType).Set(float64(count))
}

// RecordBackup records a backup attempt
func (m *Metrics) RecordBackup(status string, duration float64) {
	m.BackupUploadsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		m.BackupDuration.Observe(duration)
	}
}
