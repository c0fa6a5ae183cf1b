// Package general implements the greeting, help and about commands.
package general

import (
	"context"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/metromate/metromate-linebot-go/internal/bot"
	"github.com/metromate/metromate-linebot-go/internal/format"
	"github.com/metromate/metromate-linebot-go/internal/lineutil"
	"github.com/metromate/metromate-linebot-go/internal/logger"
)

// Module constants
const (
	ModuleName = "general"
	senderName = "MetroMate"

	CommandStart = bot.CommandStart
	CommandHelp  = bot.CommandHelp
	CommandAbout = "about_us"
)

// ProfileSource resolves a user's display name for the greeting.
type ProfileSource interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Handler handles /start, /help and /about_us.
type Handler struct {
	profiles ProfileSource
	logger   *logger.Logger
}

// NewHandler creates a general handler. profiles may be nil, in which case
// the greeting omits the name.
func NewHandler(profiles ProfileSource, log *logger.Logger) *Handler {
	return &Handler{profiles: profiles, logger: log}
}

// Name returns the module name
func (h *Handler) Name() string { return ModuleName }

// Commands returns the general commands.
func (h *Handler) Commands() []string {
	return []string{CommandStart, CommandHelp, CommandAbout}
}

// Handle renders the static texts. Admins see the admin command list too.
func (h *Handler) Handle(ctx context.Context, req bot.Request) []messaging_api.MessageInterface {
	var text string
	switch req.Command {
	case CommandStart:
		text = format.Start(h.displayName(ctx, req.UserID), req.Admin)
	case CommandHelp:
		text = format.Help(req.Admin)
	case CommandAbout:
		text = format.About()
	default:
		return nil
	}
	return lineutil.NewTextReply(text, lineutil.GetSender(senderName, ""))
}

// displayName never fails: a profile error only drops the name.
func (h *Handler) displayName(ctx context.Context, userID string) string {
	if h.profiles == nil || userID == "" {
		return ""
	}
	name, err := h.profiles.DisplayName(ctx, userID)
	if err != nil {
		h.logger.WithModule(ModuleName).WithError(err).DebugContext(ctx, "Profile lookup failed")
		return ""
	}
	return name
}
