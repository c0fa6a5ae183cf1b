package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIAnswerer answers through any OpenAI-compatible chat completion API.
type OpenAIAnswerer struct {
	client   openai.Client
	model    string
	provider Provider
}

// NewOpenAIAnswerer creates a client for provider. endpoint overrides the
// provider's known base URL and is required for ProviderOpenAI.
func NewOpenAIAnswerer(provider Provider, apiKey, model, endpoint string) (*OpenAIAnswerer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%s: API key is required", provider)
	}

	baseURL := endpoint
	if baseURL == "" {
		var ok bool
		baseURL, ok = ProviderEndpoint[provider]
		if !ok {
			return nil, fmt.Errorf("unsupported OpenAI-compatible provider: %s", provider)
		}
	}

	if model == "" {
		if provider != ProviderGroq {
			return nil, fmt.Errorf("%s: model is required", provider)
		}
		model = DefaultGroqModel
	}

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0), // retries belong to FallbackAnswerer
	)

	return &OpenAIAnswerer{client: client, model: model, provider: provider}, nil
}

// Answer sends the assembled prompt as a single user message.
func (a *OpenAIAnswerer) Answer(ctx context.Context, req AnswerRequest) (string, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(0.4),
		MaxTokens:   openai.Int(2048),
	}

	start := time.Now()
	resp, err := a.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "LLM answer API call failed",
			"provider", a.provider,
			"model", a.model,
			"prompt_length", len(prompt),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return "", WrapError(fmt.Errorf("chat completion failed: %w", err), a.provider, 0)
	}

	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyAnswer
	}
	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", errors.Join(ErrEmptyAnswer, fmt.Errorf("finish reason %q", resp.Choices[0].FinishReason))
	}

	if resp.Usage.TotalTokens > 0 {
		slog.DebugContext(ctx, "LLM answer completed",
			"provider", a.provider,
			"model", a.model,
			"input_tokens", resp.Usage.PromptTokens,
			"output_tokens", resp.Usage.CompletionTokens,
			"duration_ms", duration.Milliseconds())
	}
	return answer, nil
}

// Provider returns the configured provider.
func (a *OpenAIAnswerer) Provider() Provider {
	return a.provider
}
