// Package genai answers free-form questions with an LLM.
//
// Architecture:
//   - Gemini: google.golang.org/genai (official SDK)
//   - Groq and other OpenAI-compatible servers: github.com/openai/openai-go/v3
//
// Fallback strategy:
//  1. Retry: the same provider is retried with full-jitter backoff
//  2. Provider chain: the next provider in LLM_PROVIDERS order
package genai

import (
	"context"
	"time"

	"github.com/metromate/metromate-linebot-go/internal/dataset"
	"github.com/metromate/metromate-linebot-go/internal/history"
)

// Provider represents an LLM provider.
type Provider string

const (
	// ProviderGemini is Google's Gemini API (non-OpenAI-compatible).
	ProviderGemini Provider = "gemini"
	// ProviderGroq is Groq's OpenAI-compatible API.
	ProviderGroq Provider = "groq"
	// ProviderOpenAI is any OpenAI-compatible server reached through OPENAI_BASE_URL.
	ProviderOpenAI Provider = "openai"
)

// ProviderEndpoint holds the base URL of OpenAI-compatible providers.
var ProviderEndpoint = map[Provider]string{
	ProviderGroq: "https://api.groq.com/openai/v1/",
}

// String returns the string representation of the provider.
func (p Provider) String() string {
	return string(p)
}

// AnswerRequest carries everything the model sees for one question.
type AnswerRequest struct {
	Now      time.Time
	Snapshot *dataset.Snapshot
	History  []history.Turn // oldest first, may include the question itself
	Question string
}

// Answerer turns a question plus dataset context into a single text answer.
type Answerer interface {
	Answer(ctx context.Context, req AnswerRequest) (string, error)
	// Provider returns the provider type for metrics.
	Provider() Provider
}

// RetryConfig defines retry behavior for LLM API calls.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per provider, including the first.
	MaxAttempts int

	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration
}

// Config selects and configures the providers.
type Config struct {
	// Providers is the order to try; unknown or unconfigured entries are skipped.
	Providers []Provider

	GeminiAPIKey string
	GeminiModel  string

	GroqAPIKey string
	GroqModel  string

	// ProviderOpenAI needs all three.
	OpenAIBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string

	Retry RetryConfig
}

// Default models.
const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
)

// Retry configuration defaults
const (
	DefaultMaxRetryAttempts  = 2
	DefaultInitialRetryDelay = 500 * time.Millisecond
	DefaultMaxRetryDelay     = 3 * time.Second
)

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  DefaultMaxRetryAttempts,
		InitialDelay: DefaultInitialRetryDelay,
		MaxDelay:     DefaultMaxRetryDelay,
	}
}
