// Package webhook receives LINE webhook callbacks, hands each event to the
// bot processor and sends the replies back through the Messaging API.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
	"golang.org/x/time/rate"

	"github.com/metromate/metromate-linebot-go/internal/bot"
	"github.com/metromate/metromate-linebot-go/internal/config"
	"github.com/metromate/metromate-linebot-go/internal/ctxutil"
	"github.com/metromate/metromate-linebot-go/internal/format"
	"github.com/metromate/metromate-linebot-go/internal/lineutil"
	"github.com/metromate/metromate-linebot-go/internal/logger"
	"github.com/metromate/metromate-linebot-go/internal/metrics"
	"github.com/metromate/metromate-linebot-go/internal/sentry"
)

// Reply API budget shared by every chat.
const (
	globalReplyRPS   = 100
	globalReplyBurst = 100

	// LINE API: loadingSeconds must be 5-60 and a multiple of 5.
	loadingSeconds int32 = 60

	minReplyTokenLength = 10
)

// EventProcessor turns webhook events into reply messages.
type EventProcessor interface {
	ProcessMessage(ctx context.Context, event webhook.MessageEvent) ([]messaging_api.MessageInterface, error)
	ProcessFollow(ctx context.Context, event webhook.FollowEvent) ([]messaging_api.MessageInterface, error)
	ProcessJoin(ctx context.Context, event webhook.JoinEvent) ([]messaging_api.MessageInterface, error)
	ProcessUnfollow(ctx context.Context, event webhook.UnfollowEvent)
}

// Messenger is the part of the Messaging API the handler calls.
type Messenger interface {
	Reply(ctx context.Context, replyToken string, messages []messaging_api.MessageInterface) error
	ShowLoading(ctx context.Context, chatID string, seconds int32) error
}

// Handler handles LINE webhook events
type Handler struct {
	channelSecret string
	messenger     Messenger
	metrics       *metrics.Metrics
	logger        *logger.Logger
	processor     EventProcessor
	rateLimiter   *rate.Limiter // Global rate limiter for reply calls
	wg            sync.WaitGroup

	maxMessagesPerReply int
	maxEventsPerWebhook int
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	ChannelSecret string
	Messenger     Messenger
	BotConfig     config.BotConfig
	Metrics       *metrics.Metrics
	Logger        *logger.Logger
	Processor     EventProcessor
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Messenger == nil {
		return nil, errors.New("messenger is required")
	}
	if cfg.Processor == nil {
		return nil, errors.New("processor is required")
	}
	maxMessages := cfg.BotConfig.MaxMessagesPerReply
	if maxMessages <= 0 || maxMessages > lineutil.MaxMessagesPerReply {
		maxMessages = lineutil.MaxMessagesPerReply
	}
	maxEvents := cfg.BotConfig.MaxEventsPerWebhook
	if maxEvents <= 0 {
		maxEvents = config.DefaultBotConfig().MaxEventsPerWebhook
	}

	return &Handler{
		channelSecret:       cfg.ChannelSecret,
		messenger:           cfg.Messenger,
		metrics:             cfg.Metrics,
		logger:              cfg.Logger,
		processor:           cfg.Processor,
		rateLimiter:         rate.NewLimiter(globalReplyRPS, globalReplyBurst),
		maxMessagesPerReply: maxMessages,
		maxEventsPerWebhook: maxEvents,
	}, nil
}

// Handle is the Gin handler for the webhook endpoint
func (h *Handler) Handle(c *gin.Context) {
	// 1. Parse request
	cb, err := webhook.ParseRequest(h.channelSecret, c.Request)
	if err != nil {
		if errors.Is(err, webhook.ErrInvalidSignature) {
			h.logger.Warn("Invalid webhook signature")
			h.metrics.RecordHTTPError("invalid_signature", "webhook")
			c.Status(http.StatusBadRequest)
		} else {
			h.logger.WithError(err).Error("Failed to parse webhook request")
			h.metrics.RecordHTTPError("parse_error", "webhook")
			c.Status(http.StatusBadRequest)
		}
		return
	}

	// 2. Return 200 OK immediately (LINE requirement)
	c.Status(http.StatusOK)

	start := time.Now()
	h.metrics.RecordWebhook("batch", "received", 0)

	if len(cb.Events) > h.maxEventsPerWebhook {
		h.logger.WithField("event_count", len(cb.Events)).
			WithField("limit", h.maxEventsPerWebhook).
			Warn("Too many events in webhook batch; truncating")
		cb.Events = cb.Events[:h.maxEventsPerWebhook]
	}

	// Copy events to avoid race condition after HTTP response completes
	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)

	// 3. Process events asynchronously, in delivery order
	h.wg.Go(func() {
		ctx := context.Background()
		defer func() {
			if r := recover(); r != nil {
				h.logger.WithField("panic", r).Error("Panic in async event processing")
				h.metrics.RecordHTTPError("panic", "webhook")
				sentry.CapturePanic(ctx, r, map[string]string{"module": "webhook"})
			}
		}()

		for _, event := range events {
			h.processEvent(ctx, event, start)
		}
	})
}

// processEvent handles a single webhook event
func (h *Handler) processEvent(ctx context.Context, event webhook.EventInterface, webhookStart time.Time) {
	eventStart := time.Now()
	var (
		messages  []messaging_api.MessageInterface
		eventType string
		err       error
	)

	eventID, eventTimestamp, isRedelivery := extractEventMeta(event)
	if eventID != "" {
		ctx = ctxutil.WithRequestID(ctx, eventID)
	}

	log := h.logger
	if eventID != "" {
		log = log.WithRequestID(eventID)
	}
	if isRedelivery != nil {
		log = log.WithField("is_redelivery", *isRedelivery)
	}
	if eventTimestamp > 0 {
		log = log.WithField("event_timestamp_ms", eventTimestamp)
	}

	if shouldShowLoading(event) {
		if chatID := getChatID(event); chatID != "" {
			if loadErr := h.messenger.ShowLoading(ctx, chatID, loadingSeconds); loadErr != nil {
				log.WithError(loadErr).Warn("Failed to show loading animation")
			}
		}
	}

	switch e := event.(type) {
	case webhook.MessageEvent:
		eventType = "message"
		messages, err = h.processor.ProcessMessage(ctx, e)
	case webhook.FollowEvent:
		eventType = "follow"
		messages, err = h.processor.ProcessFollow(ctx, e)
	case webhook.JoinEvent:
		eventType = "join"
		messages, err = h.processor.ProcessJoin(ctx, e)
	case webhook.UnfollowEvent:
		// No reply token; there is nobody to answer.
		eventType = "unfollow"
		h.processor.ProcessUnfollow(ctx, e)
	default:
		log.WithField("event_type", fmt.Sprintf("%T", e)).Debug("Unsupported event type")
		return
	}

	eventDuration := time.Since(eventStart)
	status := "success"
	if err != nil {
		status = "error"
		log.WithError(err).WithField("event_type", eventType).Error("Failed to handle event")
		sentry.CaptureError(ctx, err, map[string]string{"event_type": eventType})
		messages = lineutil.NewTextReply(format.InternalError(), lineutil.GetSender("", ""))
	}
	h.metrics.RecordWebhook(eventType, status, eventDuration.Seconds())

	if len(messages) > 0 {
		h.reply(ctx, log, event, eventType, messages)
	}

	log.WithField("event_type", eventType).
		WithField("event_duration_ms", eventDuration.Milliseconds()).
		WithField("batch_duration_ms", time.Since(webhookStart).Milliseconds()).
		Info("Event processed")
}

func (h *Handler) reply(ctx context.Context, log *logger.Logger, event webhook.EventInterface, eventType string, messages []messaging_api.MessageInterface) {
	// LINE API restriction: max messages per reply
	if len(messages) > h.maxMessagesPerReply {
		log.WithField("message_count", len(messages)).
			WithField("limit", h.maxMessagesPerReply).
			Warn("Message count exceeds limit; truncating")
		messages = messages[:h.maxMessagesPerReply]
	}

	replyToken := getReplyToken(event)
	if len(replyToken) < minReplyTokenLength {
		log.WithField("token_length", len(replyToken)).Debug("Missing or invalid reply token, skipping reply")
		return
	}

	if !h.rateLimiter.Allow() {
		log.Warn("Global rate limit exceeded; waiting")
		h.metrics.RecordRateLimiterDrop("global")
		waitCtx, cancel := context.WithTimeout(ctx, config.LINEAPICall)
		err := h.rateLimiter.Wait(waitCtx)
		cancel()
		if err != nil {
			log.WithError(err).Error("Gave up waiting for the global rate limiter")
			h.metrics.RecordWebhook(eventType, "reply_error", 0)
			return
		}
	}

	if err := h.messenger.Reply(ctx, replyToken, messages); err != nil {
		errMsg := err.Error()
		switch {
		case strings.Contains(errMsg, "Invalid reply token"):
			log.WithError(err).Debug("Reply token already used or invalid")
		case strings.Contains(errMsg, "rate limit"):
			log.WithError(err).Error("Rate limit exceeded")
		default:
			log.WithError(err).WithField("reply_token", replyToken[:8]+"...").Error("Failed to send reply")
		}
		h.metrics.RecordWebhook(eventType, "reply_error", 0)
	}
}

func extractEventMeta(event webhook.EventInterface) (string, int64, *bool) {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.WebhookEventId, e.Timestamp, boolPtr(e.DeliveryContext)
	case webhook.FollowEvent:
		return e.WebhookEventId, e.Timestamp, boolPtr(e.DeliveryContext)
	case webhook.JoinEvent:
		return e.WebhookEventId, e.Timestamp, boolPtr(e.DeliveryContext)
	case webhook.UnfollowEvent:
		return e.WebhookEventId, e.Timestamp, boolPtr(e.DeliveryContext)
	default:
		return "", 0, nil
	}
}

func boolPtr(ctx *webhook.DeliveryContext) *bool {
	if ctx == nil {
		return nil
	}
	val := ctx.IsRedelivery
	return &val
}

// shouldShowLoading reports whether the event is likely to get a reply.
// Group text only gets one for slash commands and mentions.
func shouldShowLoading(event webhook.EventInterface) bool {
	switch e := event.(type) {
	case webhook.MessageEvent:
		textMsg, ok := e.Message.(webhook.TextMessageContent)
		if !ok {
			return false
		}
		if bot.IsPersonalChat(e.Source) {
			return true
		}
		return bot.IsBotMentioned(textMsg) || strings.HasPrefix(strings.TrimSpace(textMsg.Text), bot.CommandPrefix)
	case webhook.FollowEvent, webhook.JoinEvent:
		return true
	default:
		return false
	}
}

func getReplyToken(event webhook.EventInterface) string {
	switch e := event.(type) {
	case webhook.MessageEvent:
		return e.ReplyToken
	case webhook.FollowEvent:
		return e.ReplyToken
	case webhook.JoinEvent:
		return e.ReplyToken
	default:
		return ""
	}
}

func getChatID(event webhook.EventInterface) string {
	var source webhook.SourceInterface

	switch e := event.(type) {
	case webhook.MessageEvent:
		source = e.Source
	case webhook.FollowEvent:
		source = e.Source
	case webhook.JoinEvent:
		source = e.Source
	default:
		return ""
	}

	return bot.GetChatID(source)
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
