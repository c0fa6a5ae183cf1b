package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"
)

// ErrEmptyAnswer is returned when a provider responds without any text.
var ErrEmptyAnswer = errors.New("empty answer from model")

// GeminiAnswerer answers through the Gemini API.
type GeminiAnswerer struct {
	client *genai.Client
	model  string
}

// NewGeminiAnswerer creates a Gemini client for model.
func NewGeminiAnswerer(ctx context.Context, apiKey, model string) (*GeminiAnswerer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiAnswerer{client: client, model: model}, nil
}

// Answer sends the assembled prompt as a single user turn.
func (a *GeminiAnswerer) Answer(ctx context.Context, req AnswerRequest) (string, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.4),
		MaxOutputTokens: 2048,
	}

	start := time.Now()
	resp, err := a.client.Models.GenerateContent(ctx, a.model, genai.Text(prompt), config)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "LLM answer API call failed",
			"provider", ProviderGemini,
			"model", a.model,
			"prompt_length", len(prompt),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", WrapError(fmt.Errorf("generate content failed: %w", err), ProviderGemini, 0)
	}

	if resp == nil {
		return "", ErrEmptyAnswer
	}
	answer := strings.TrimSpace(resp.Text())
	if answer == "" {
		return "", ErrEmptyAnswer
	}

	if resp.UsageMetadata != nil {
		slog.DebugContext(ctx, "LLM answer completed",
			"provider", ProviderGemini,
			"model", a.model,
			"input_tokens", resp.UsageMetadata.PromptTokenCount,
			"output_tokens", resp.UsageMetadata.CandidatesTokenCount,
			"duration_ms", duration.Milliseconds())
	}
	return answer, nil
}

// Provider returns ProviderGemini.
func (a *GeminiAnswerer) Provider() Provider {
	return ProviderGemini
}
