package config

import (
	"errors"
	"fmt"
	"time"
)

// BotConfig centralizes limits applied by the bot layer.
type BotConfig struct {
	// Webhook configuration
	WebhookTimeout      time.Duration
	MaxMessagesPerReply int
	MaxEventsPerWebhook int
	MaxInputLength      int // Longer messages are truncated before processing

	// Rate limiting (token bucket per user)
	UserRatePerSecond float64
	UserRateBurst     int
	LLMRatePerHour    float64
	LLMRateBurst      int

	// Conversation history
	HistoryMaxUsers int           // 0 = unbounded
	HistoryIdleTTL  time.Duration // 0 = keep for the process lifetime

	// LLM
	LLMTimeout time.Duration
}

// DefaultBotConfig returns default configuration values.
// LINE API limits: https://developers.line.biz/en/reference/messaging-api/
func DefaultBotConfig() BotConfig {
	return BotConfig{
		WebhookTimeout:      WebhookProcessing,
		MaxMessagesPerReply: 5,   // LINE API limit
		MaxEventsPerWebhook: 100, // LINE API limit
		MaxInputLength:      1000,

		UserRatePerSecond: 0.5, // 1 message per 2s sustained
		UserRateBurst:     6,
		LLMRatePerHour:    20,
		LLMRateBurst:      5,

		HistoryMaxUsers: 10000,
		HistoryIdleTTL:  0,

		LLMTimeout: LLMAnswer,
	}
}

// LoadBotConfig starts from defaults and applies environment overrides.
func LoadBotConfig() BotConfig {
	cfg := DefaultBotConfig()
	cfg.UserRatePerSecond = getFloatEnv(EnvUserRatePerSecond, cfg.UserRatePerSecond)
	cfg.UserRateBurst = getIntEnv(EnvUserRateBurst, cfg.UserRateBurst)
	cfg.LLMRatePerHour = getFloatEnv(EnvLLMRatePerHour, cfg.LLMRatePerHour)
	cfg.LLMRateBurst = getIntEnv(EnvLLMRateBurst, cfg.LLMRateBurst)
	cfg.HistoryMaxUsers = getIntEnv(EnvHistoryMaxUsers, cfg.HistoryMaxUsers)
	cfg.HistoryIdleTTL = getDurationEnv(EnvHistoryIdleTTL, cfg.HistoryIdleTTL)
	cfg.LLMTimeout = getDurationEnv(EnvLLMTimeout, cfg.LLMTimeout)
	return cfg
}

// Validate checks that every limit is usable.
func (c BotConfig) Validate() error {
	var errs []error
	if c.WebhookTimeout <= 0 {
		errs = append(errs, fmt.Errorf("webhook timeout must be positive, got %v", c.WebhookTimeout))
	}
	if c.MaxMessagesPerReply <= 0 || c.MaxMessagesPerReply > 5 {
		errs = append(errs, fmt.Errorf("max messages per reply must be within 1..5, got %d", c.MaxMessagesPerReply))
	}
	if c.MaxInputLength <= 0 {
		errs = append(errs, errors.New("max input length must be positive"))
	}
	if c.UserRatePerSecond <= 0 || c.UserRateBurst <= 0 {
		errs = append(errs, fmt.Errorf("user rate limit must be positive, got %v/s burst %d", c.UserRatePerSecond, c.UserRateBurst))
	}
	if c.LLMRatePerHour <= 0 || c.LLMRateBurst <= 0 {
		errs = append(errs, fmt.Errorf("LLM rate limit must be positive, got %v/h burst %d", c.LLMRatePerHour, c.LLMRateBurst))
	}
	if c.HistoryMaxUsers < 0 {
		errs = append(errs, fmt.Errorf("HISTORY_MAX_USERS cannot be negative, got %d", c.HistoryMaxUsers))
	}
	if c.HistoryIdleTTL < 0 {
		errs = append(errs, fmt.Errorf("HISTORY_IDLE_TTL cannot be negative, got %v", c.HistoryIdleTTL))
	}
	if c.LLMTimeout <= 0 || c.LLMTimeout >= c.WebhookTimeout {
		errs = append(errs, fmt.Errorf("LLM timeout must be positive and below the webhook timeout, got %v", c.LLMTimeout))
	}
	return errors.Join(errs...)
}
