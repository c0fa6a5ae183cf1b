// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/metromate/metromate-linebot-go/internal/backup"
	"github.com/metromate/metromate-linebot-go/internal/bot"
	"github.com/metromate/metromate-linebot-go/internal/buildinfo"
	"github.com/metromate/metromate-linebot-go/internal/config"
	"github.com/metromate/metromate-linebot-go/internal/dataset"
	"github.com/metromate/metromate-linebot-go/internal/genai"
	"github.com/metromate/metromate-linebot-go/internal/history"
	"github.com/metromate/metromate-linebot-go/internal/lineutil"
	"github.com/metromate/metromate-linebot-go/internal/logger"
	"github.com/metromate/metromate-linebot-go/internal/lookup"
	"github.com/metromate/metromate-linebot-go/internal/metrics"
	"github.com/metromate/metromate-linebot-go/internal/modules/admin"
	"github.com/metromate/metromate-linebot-go/internal/modules/bus"
	"github.com/metromate/metromate-linebot-go/internal/modules/directory"
	"github.com/metromate/metromate-linebot-go/internal/modules/general"
	"github.com/metromate/metromate-linebot-go/internal/modules/routine"
	"github.com/metromate/metromate-linebot-go/internal/r2client"
	"github.com/metromate/metromate-linebot-go/internal/ratelimit"
	"github.com/metromate/metromate-linebot-go/internal/sentry"
	"github.com/metromate/metromate-linebot-go/internal/storage"
	"github.com/metromate/metromate-linebot-go/internal/webhook"
)

const serviceName = "metromate-linebot-go"

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	store          *dataset.Store
	journal        *storage.DB
	backup         *backup.Manager  // nil when R2 is disabled
	watcher        *dataset.Watcher // nil when DATA_WATCH is off
	history        *history.Cache
	answerer       genai.Answerer // nil when no LLM provider is configured
	llmLimiter     *ratelimit.KeyedLimiter
	userLimiter    *ratelimit.KeyedLimiter
	webhookHandler *webhook.Handler
	server         *http.Server
	wg             sync.WaitGroup // Track background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})

	log = log.WithField("service", serviceName)
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog.*Context() calls pick up request, user and chat IDs.
	slog.SetDefault(log.Logger)

	log.WithField("version", buildinfo.String()).Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.WithField("endpoint", cfg.BetterStackEndpoint).Info("Better Stack logging enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)
	loc := lineutil.LoadLocation(cfg.Timezone)

	app := &Application{
		cfg:      cfg,
		logger:   log,
		metrics:  m,
		registry: registry,
	}

	if err := app.initDataset(ctx); err != nil {
		return nil, err
	}

	app.history = history.New(history.Config{
		MaxUsers:      cfg.Bot.HistoryMaxUsers,
		IdleTTL:       cfg.Bot.HistoryIdleTTL,
		SweepInterval: config.HistorySweepInterval,
		OnUsersChange: m.SetHistoryUsers,
	})
	app.userLimiter = ratelimit.NewUserLimiter(cfg.Bot.UserRatePerSecond, cfg.Bot.UserRateBurst, config.RateLimiterCleanupInterval, m)
	app.llmLimiter = ratelimit.NewLLMLimiter(cfg.Bot.LLMRatePerHour, cfg.Bot.LLMRateBurst, config.RateLimiterCleanupInterval, m)

	if cfg.HasLLMProvider() {
		// Assign only a usable chain; a typed nil would defeat the processor's nil check.
		if answerer, err := genai.NewAnswerer(ctx, buildLLMConfig(cfg), m); err != nil {
			log.WithError(err).Warn("LLM answerer unavailable, free-text answers disabled")
		} else {
			app.answerer = answerer
			log.WithField("primary", answerer.Provider().String()).
				WithField("providers", answerer.Len()).
				Info("LLM features enabled")
		}
	}

	lineClient, err := webhook.NewClient(cfg.LineChannelToken)
	if err != nil {
		return nil, fmt.Errorf("line client: %w", err)
	}

	engine := lookup.NewEngine(app.store, loc)

	botRegistry := bot.NewRegistry()
	botRegistry.Use(bot.RecoveryMiddleware(log, m))
	botRegistry.Use(bot.LoggingMiddleware(log))
	botRegistry.Register(general.NewHandler(lineClient, log))
	botRegistry.Register(routine.NewHandler(engine, cfg.DefaultBatch, m, log))
	botRegistry.Register(directory.NewHandler(engine, m, log))
	botRegistry.Register(bus.NewHandler(engine, m, log))
	botRegistry.Register(admin.NewHandler(admin.HandlerConfig{
		Dataset:  app.store,
		Journal:  app.journal,
		Location: loc,
		Metrics:  m,
		Logger:   log,
		OnReload: app.onReload,
	}))

	processor := bot.NewProcessor(bot.ProcessorConfig{
		Registry:    botRegistry,
		Answerer:    app.answerer,
		Dataset:     app.store,
		History:     app.history,
		UserLimiter: app.userLimiter,
		LLMLimiter:  app.llmLimiter,
		IsAdmin:     cfg.IsAdmin,
		Logger:      log,
		BotConfig:   cfg.Bot,
		Location:    loc,
	})

	app.webhookHandler, err = webhook.NewHandler(webhook.HandlerConfig{
		ChannelSecret: cfg.LineChannelSecret,
		Messenger:     lineClient,
		BotConfig:     cfg.Bot,
		Metrics:       m,
		Logger:        log,
		Processor:     processor,
	})
	if err != nil {
		return nil, fmt.Errorf("webhook: %w", err)
	}

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.newRouter(),
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// newRouter builds the HTTP routes. /metrics asks for Basic Auth only when
// a password is configured.
func (a *Application) newRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/", a.serviceInfo)
	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	if a.webhookHandler != nil {
		router.POST("/webhook", a.webhookHandler.Handle)
	}
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	return router
}

// buildLLMConfig creates the provider chain configuration from the application config.
func buildLLMConfig(cfg *config.Config) genai.Config {
	providers := make([]genai.Provider, 0, len(cfg.LLMProviders))
	for _, p := range cfg.LLMProviders {
		switch p {
		case config.ProviderGemini:
			providers = append(providers, genai.ProviderGemini)
		case config.ProviderGroq:
			providers = append(providers, genai.ProviderGroq)
		case config.ProviderOpenAI:
			providers = append(providers, genai.ProviderOpenAI)
		default:
			slog.Warn("ignoring unknown provider", "name", p)
		}
	}

	return genai.Config{
		Providers:     providers,
		GeminiAPIKey:  cfg.GeminiAPIKey,
		GeminiModel:   cfg.GeminiModel,
		GroqAPIKey:    cfg.GroqAPIKey,
		GroqModel:     cfg.GroqModel,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIModel:   cfg.OpenAIModel,
		Retry:         genai.DefaultRetryConfig(),
	}
}

// newBackup connects to R2 and creates the backup manager.
func newBackup(ctx context.Context, cfg *config.Config, m *metrics.Metrics, log *logger.Logger) (*backup.Manager, error) {
	client, err := r2client.New(ctx, r2client.Config{
		Endpoint:    cfg.R2.Endpoint(),
		AccessKeyID: cfg.R2.AccessKeyID,
		SecretKey:   cfg.R2.SecretAccessKey,
		BucketName:  cfg.R2.BucketName,
	})
	if err != nil {
		return nil, fmt.Errorf("r2 client: %w", err)
	}
	return backup.New(client, backup.Config{
		Key:           cfg.R2.BackupKey,
		UploadTimeout: config.BackupUpload,
		Metrics:       m,
	}, log), nil
}

// Run starts the HTTP server and background jobs.
//
// Shutdown sequence:
//  1. Receive shutdown signal (SIGINT/SIGTERM)
//  2. Cancel context so background jobs stop
//  3. Wait for background jobs to complete
//  4. Close resources in order (HTTP server, webhook handler, watcher, backup, journal)
//
// The journal is closed last so observers of in-flight appends can still record.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.startBackgroundJobs(ctx); err != nil {
		return err
	}
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startBackgroundJobs starts the watcher, the backup uploader and the
// metrics refresher.
func (a *Application) startBackgroundJobs(ctx context.Context) error {
	if a.watcher != nil {
		if err := a.watcher.Start(ctx); err != nil {
			return fmt.Errorf("dataset watcher: %w", err)
		}
	}
	if a.backup != nil {
		a.backup.Start()
	}
	a.wg.Go(func() {
		a.updateGaugeMetrics(ctx)
	})
	return nil
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown performs graceful shutdown of the HTTP server and resources.
// It must run after background jobs have stopped.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Waiting for webhook events to complete...")
	if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
	}

	a.logger.Info("Closing resources...")

	if a.watcher != nil {
		a.watcher.Stop()
	}
	// Flushes a pending upload.
	if a.backup != nil {
		a.backup.Stop()
	}
	a.llmLimiter.Stop()
	a.userLimiter.Stop()
	a.history.Stop()

	if err := a.journal.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "journal").Error("Component close error")
	}

	sentry.Flush(2 * time.Second)

	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}

// updateGaugeMetrics periodically refreshes gauges that have no event to hang on.
func (a *Application) updateGaugeMetrics(ctx context.Context) {
	a.logger.Debug("Gauge metrics job started")
	defer a.logger.Debug("Gauge metrics job stopped")

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.recordGaugeMetrics()
		}
	}
}

func (a *Application) recordGaugeMetrics() {
	snap := a.store.Snapshot()
	for _, doc := range dataset.Documents {
		a.metrics.SetDatasetRecords(string(doc), snap.Count(doc))
	}
	a.metrics.SetHistoryUsers(a.history.Users())
	a.metrics.SetRateLimiterUsers(ratelimit.NameUser, a.userLimiter.ActiveCount())
	a.metrics.SetRateLimiterUsers(ratelimit.NameLLM, a.llmLimiter.ActiveCount())
}
