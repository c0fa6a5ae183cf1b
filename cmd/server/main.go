// Package main provides the MetroMate LINE bot server entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/metromate/metromate-linebot-go/internal/app"
	"github.com/metromate/metromate-linebot-go/internal/buildinfo"
	"github.com/metromate/metromate-linebot-go/internal/config"
	"github.com/metromate/metromate-linebot-go/internal/sentry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.String(),
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		// Error reporting is optional; keep serving.
		_, _ = fmt.Fprintf(os.Stderr, "Sentry disabled: %v\n", err)
	}

	application, err := app.Initialize(context.Background(), cfg)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := application.Run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
