package genai

import (
	"context"
	"log/slog"

	"github.com/metromate/metromate-linebot-go/internal/metrics"
)

// NewAnswerer builds a FallbackAnswerer from cfg, in cfg.Providers order.
// Providers without credentials are skipped; ErrNotConfigured is returned
// when none remain.
func NewAnswerer(ctx context.Context, cfg Config, m *metrics.Metrics) (*FallbackAnswerer, error) {
	var chain []Answerer
	seen := make(map[Provider]bool, len(cfg.Providers))

	for _, p := range cfg.Providers {
		if seen[p] {
			continue
		}
		seen[p] = true

		a, err := newProviderAnswerer(ctx, cfg, p)
		if err != nil {
			slog.WarnContext(ctx, "failed to create LLM answerer", "provider", p, "error", err)
			continue
		}
		if a != nil {
			chain = append(chain, a)
		}
	}

	if len(chain) == 0 {
		slog.InfoContext(ctx, "no LLM provider configured, free-text answers disabled")
		return nil, ErrNotConfigured
	}

	slog.InfoContext(ctx, "LLM answerer configured",
		"primary", chain[0].Provider(),
		"chainSize", len(chain))

	retry := cfg.Retry
	if retry.MaxAttempts == 0 {
		retry = DefaultRetryConfig()
	}
	return NewFallbackAnswerer(retry, m, chain...), nil
}

// newProviderAnswerer returns nil, nil for a provider without credentials.
func newProviderAnswerer(ctx context.Context, cfg Config, p Provider) (Answerer, error) {
	switch p {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, nil //nolint:nilnil // provider disabled without API key
		}
		return NewGeminiAnswerer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case ProviderGroq:
		if cfg.GroqAPIKey == "" {
			return nil, nil //nolint:nilnil // provider disabled without API key
		}
		return NewOpenAIAnswerer(ProviderGroq, cfg.GroqAPIKey, cfg.GroqModel, "")
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, nil //nolint:nilnil // provider disabled without API key
		}
		return NewOpenAIAnswerer(ProviderOpenAI, cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL)
	}
	slog.WarnContext(ctx, "unknown LLM provider", "provider", p)
	return nil, nil //nolint:nilnil // unknown providers are skipped
}
