package bot

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/metromate/metromate-linebot-go/internal/config"
	"github.com/metromate/metromate-linebot-go/internal/ctxutil"
	"github.com/metromate/metromate-linebot-go/internal/format"
	"github.com/metromate/metromate-linebot-go/internal/genai"
	"github.com/metromate/metromate-linebot-go/internal/history"
	"github.com/metromate/metromate-linebot-go/internal/lineutil"
	"github.com/metromate/metromate-linebot-go/internal/logger"
	"github.com/metromate/metromate-linebot-go/internal/lookup"
	"github.com/metromate/metromate-linebot-go/internal/ratelimit"
)

// Commands dispatched for non-message events.
const (
	CommandStart = "start"
	CommandHelp  = "help"
)

// Processor handles the core logic of processing LINE events.
// It orchestrates rate limiting, command dispatch and free-text answers.
type Processor struct {
	registry    *Registry
	answerer    genai.Answerer
	dataset     lookup.SnapshotSource
	history     *history.Cache
	userLimiter *ratelimit.KeyedLimiter
	llmLimiter  *ratelimit.KeyedLimiter
	isAdmin     func(userID string) bool
	logger      *logger.Logger
	now         func() time.Time
	loc         *time.Location

	webhookTimeout      time.Duration
	llmTimeout          time.Duration
	maxInputLength      int
	maxMessagesPerReply int
}

// ProcessorConfig holds configuration for creating a new Processor.
type ProcessorConfig struct {
	Registry    *Registry
	Answerer    genai.Answerer // nil disables free-text answers
	Dataset     lookup.SnapshotSource
	History     *history.Cache
	UserLimiter *ratelimit.KeyedLimiter // nil disables the per-user limit
	LLMLimiter  *ratelimit.KeyedLimiter // nil disables the LLM budget
	IsAdmin     func(userID string) bool
	Logger      *logger.Logger
	BotConfig   config.BotConfig
	Now         func() time.Time
	Location    *time.Location // zone of the timestamp shown to the LLM; defaults to UTC
}

// NewProcessor creates a new event processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	if cfg.History == nil {
		cfg.History = history.New(history.Config{})
	}
	if cfg.IsAdmin == nil {
		cfg.IsAdmin = func(string) bool { return false }
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.BotConfig.WebhookTimeout <= 0 {
		cfg.BotConfig.WebhookTimeout = config.WebhookProcessing
	}
	if cfg.BotConfig.LLMTimeout <= 0 {
		cfg.BotConfig.LLMTimeout = config.LLMAnswer
	}
	return &Processor{
		registry:            cfg.Registry,
		answerer:            cfg.Answerer,
		dataset:             cfg.Dataset,
		history:             cfg.History,
		userLimiter:         cfg.UserLimiter,
		llmLimiter:          cfg.LLMLimiter,
		isAdmin:             cfg.IsAdmin,
		logger:              cfg.Logger,
		now:                 cfg.Now,
		loc:                 cfg.Location,
		webhookTimeout:      cfg.BotConfig.WebhookTimeout,
		llmTimeout:          cfg.BotConfig.LLMTimeout,
		maxInputLength:      cfg.BotConfig.MaxInputLength,
		maxMessagesPerReply: cfg.BotConfig.MaxMessagesPerReply,
	}
}

// ProcessMessage handles a message event. Only text messages are answered.
//
// In group and room chats the bot answers explicit slash commands, and
// anything else only when it is mentioned.
func (p *Processor) ProcessMessage(ctx context.Context, event webhook.MessageEvent) ([]messaging_api.MessageInterface, error) {
	chatID := GetChatID(event.Source)
	userID := GetUserID(event.Source)
	ctx = ctxutil.WithChatID(ctx, chatID)
	ctx = ctxutil.WithUserID(ctx, userID)

	if event.Message.GetType() != "text" {
		return nil, nil
	}
	textMsg, ok := event.Message.(webhook.TextMessageContent)
	if !ok {
		return nil, errors.New("failed to cast message to text")
	}

	text := textMsg.Text
	personal := IsPersonalChat(event.Source)
	mentioned := false
	if !personal && IsBotMentioned(textMsg) {
		mentioned = true
		text = RemoveBotMentions(text, textMsg.Mention)
	}

	if p.maxInputLength > 0 && utf8.RuneCountInString(text) > p.maxInputLength {
		p.logger.WithField("length", utf8.RuneCountInString(text)).
			WithField("limit", p.maxInputLength).
			WarnContext(ctx, "Text message too long; truncating")
		text = string([]rune(text)[:p.maxInputLength])
	}

	cmd := ParseCommand(text)
	known := cmd.Standalone() && p.registry.Has(cmd.Name)
	addressed := personal || mentioned

	freeText := false
	switch {
	case known && (cmd.Explicit || addressed):
	case cmd.Explicit && personal:
		// Unknown command.
		cmd = Command{Name: CommandHelp, Explicit: true}
	case cmd.Name == "" && mentioned:
		// A bare mention asks for help.
		cmd = Command{Name: CommandHelp}
	case cmd.Name != "" && !cmd.Explicit && addressed:
		freeText = true
	default:
		return nil, nil
	}

	if !p.allowUser(ctx, userID, chatID) {
		if personal {
			return p.textReply(format.RateLimited()), nil
		}
		return nil, nil
	}

	req := Request{
		Command:  cmd.Name,
		Args:     cmd.Args,
		UserID:   userID,
		ChatID:   chatID,
		Admin:    p.isAdmin(userID),
		Personal: personal,
		Now:      p.now(),
	}

	processCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), p.webhookTimeout)
	defer cancel()

	if freeText {
		return p.answerFreeText(processCtx, req, Sanitize(text)), nil
	}
	msgs, _ := p.registry.Dispatch(processCtx, req)
	return msgs, nil
}

// ProcessFollow greets a new follower with the /start reply.
func (p *Processor) ProcessFollow(ctx context.Context, event webhook.FollowEvent) ([]messaging_api.MessageInterface, error) {
	p.logger.InfoContext(ctx, "New user followed the bot")
	return p.dispatchEvent(ctx, event.Source, CommandStart), nil
}

// ProcessJoin introduces the bot to a group or room with the /help reply.
func (p *Processor) ProcessJoin(ctx context.Context, event webhook.JoinEvent) ([]messaging_api.MessageInterface, error) {
	p.logger.InfoContext(ctx, "Bot joined a chat")
	return p.dispatchEvent(ctx, event.Source, CommandHelp), nil
}

// ProcessUnfollow drops the conversation history of a user who blocked the bot.
func (p *Processor) ProcessUnfollow(ctx context.Context, event webhook.UnfollowEvent) {
	userID := GetUserID(event.Source)
	if userID == "" {
		return
	}
	p.history.Forget(userID)
	p.logger.WithField("user_id", truncateID(userID)).InfoContext(ctx, "User unfollowed, history dropped")
}

func (p *Processor) dispatchEvent(ctx context.Context, source webhook.SourceInterface, command string) []messaging_api.MessageInterface {
	chatID := GetChatID(source)
	userID := GetUserID(source)
	ctx = ctxutil.WithChatID(ctx, chatID)
	ctx = ctxutil.WithUserID(ctx, userID)

	processCtx, cancel := context.WithTimeout(ctxutil.PreserveTracing(ctx), p.webhookTimeout)
	defer cancel()

	msgs, _ := p.registry.Dispatch(processCtx, Request{
		Command:  command,
		UserID:   userID,
		ChatID:   chatID,
		Admin:    p.isAdmin(userID),
		Personal: IsPersonalChat(source),
		Now:      p.now(),
	})
	return msgs
}

// answerFreeText sends question to the LLM with the user's recent history.
// The question and the reply, including an error reply, both enter the
// history; a rate-limited question does not.
func (p *Processor) answerFreeText(ctx context.Context, req Request, question string) []messaging_api.MessageInterface {
	if p.answerer == nil {
		return p.textReply(format.LLMUnavailable())
	}

	key := req.UserID
	if key == "" {
		key = req.ChatID
	}

	if p.llmLimiter != nil && key != "" && !p.llmLimiter.Allow(key) {
		p.logger.WithField("chat_id", truncateID(req.ChatID)).WarnContext(ctx, "LLM rate limit exceeded")
		if req.Personal {
			return p.textReply(format.RateLimited())
		}
		return nil
	}

	p.history.Append(key, history.Turn{Role: history.RoleUser, Message: question})

	llmCtx, cancel := context.WithTimeout(ctx, p.llmTimeout)
	defer cancel()

	answer, err := p.answerer.Answer(llmCtx, genai.AnswerRequest{
		Now:      req.Now.In(p.loc),
		Snapshot: p.dataset.Snapshot(),
		History:  p.history.Snapshot(key),
		Question: question,
	})
	if err != nil {
		p.logger.WithError(err).
			WithField("action", genai.ClassifyError(err).String()).
			WarnContext(ctx, "LLM answer failed")
	}

	reply := format.LLMAnswer(answer, err)
	p.history.Append(key, history.Turn{Role: history.RoleBot, Message: reply})
	return p.textReply(reply)
}

func (p *Processor) allowUser(ctx context.Context, userID, chatID string) bool {
	key := userID
	if key == "" {
		key = chatID
	}
	if p.userLimiter == nil || key == "" {
		return true
	}
	if p.userLimiter.Allow(key) {
		return true
	}
	p.logger.WithField("chat_id", truncateID(chatID)).WarnContext(ctx, "User rate limit exceeded")
	return false
}

func (p *Processor) textReply(text string) []messaging_api.MessageInterface {
	msgs := lineutil.NewTextMessages(text, lineutil.GetSender("", ""), p.maxMessagesPerReply)
	lineutil.AddQuickReplyToMessages(msgs, lineutil.DefaultQuickReplies()...)
	return msgs
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}
