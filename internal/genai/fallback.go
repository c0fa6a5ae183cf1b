package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/metromate/metromate-linebot-go/internal/metrics"
)

// ErrNotConfigured is returned when no provider is available.
var ErrNotConfigured = errors.New("no LLM provider configured")

// FallbackAnswerer tries each answerer in order. Each one gets up to
// MaxAttempts tries for retryable errors before the chain moves on;
// permanent errors on one provider still move on to the next.
type FallbackAnswerer struct {
	chain   []Answerer
	retry   RetryConfig
	metrics *metrics.Metrics
}

// NewFallbackAnswerer builds a chain. Nil entries are skipped; m may be nil.
func NewFallbackAnswerer(cfg RetryConfig, m *metrics.Metrics, answerers ...Answerer) *FallbackAnswerer {
	chain := make([]Answerer, 0, len(answerers))
	for _, a := range answerers {
		if a != nil {
			chain = append(chain, a)
		}
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &FallbackAnswerer{chain: chain, retry: cfg, metrics: m}
}

// Answer returns the first successful answer in the chain.
func (f *FallbackAnswerer) Answer(ctx context.Context, req AnswerRequest) (string, error) {
	if f == nil || len(f.chain) == 0 {
		return "", ErrNotConfigured
	}

	first := f.chain[0].Provider()
	var lastErr error
	for i, a := range f.chain {
		if ctx.Err() != nil {
			break
		}
		provider := a.Provider()
		if i > 0 {
			slog.InfoContext(ctx, "falling back to next LLM provider",
				"from", f.chain[i-1].Provider(),
				"to", provider)
		}

		start := time.Now()
		answer, err := f.answerWithRetry(ctx, a, req)
		f.record(provider, err, time.Since(start))
		if err == nil {
			if i > 0 && f.metrics != nil {
				f.metrics.RecordLLMFallback(string(first), string(provider))
			}
			return answer, nil
		}

		lastErr = err
		slog.WarnContext(ctx, "LLM provider failed",
			"provider", provider,
			"action", ClassifyError(err),
			"error", err)
		if errors.Is(err, context.Canceled) {
			break
		}
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	if len(f.chain) == 1 {
		return "", lastErr
	}
	return "", fmt.Errorf("all providers failed: %w", lastErr)
}

func (f *FallbackAnswerer) answerWithRetry(ctx context.Context, a Answerer, req AnswerRequest) (string, error) {
	var lastErr error

	for attempt := range f.retry.MaxAttempts {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		answer, err := a.Answer(ctx, req)
		if err == nil {
			return answer, nil
		}
		lastErr = err

		if ClassifyError(err) != ActionRetry {
			return "", err
		}
		if attempt == f.retry.MaxAttempts-1 {
			break
		}

		backoff := CalculateBackoff(attempt+1, f.retry.InitialDelay, f.retry.MaxDelay)
		if !HasSufficientBudget(ctx, backoff) {
			return "", fmt.Errorf("timeout during retry: %w", lastErr)
		}

		slog.DebugContext(ctx, "retrying LLM answer",
			"provider", a.Provider(),
			"attempt", attempt+1,
			"backoff", backoff,
			"error", err)

		if err := Sleep(ctx, backoff); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

func (f *FallbackAnswerer) record(provider Provider, err error, d time.Duration) {
	if f.metrics == nil {
		return
	}
	f.metrics.RecordLLM(string(provider), errorStatus(err), d.Seconds())
}

// Provider returns the primary provider, or "" for an empty chain.
func (f *FallbackAnswerer) Provider() Provider {
	if f == nil || len(f.chain) == 0 {
		return ""
	}
	return f.chain[0].Provider()
}

// Len returns the number of providers in the chain.
func (f *FallbackAnswerer) Len() int {
	if f == nil {
		return 0
	}
	return len(f.chain)
}
