// Package routine implements the class routine module for the LINE bot.
// It answers which class is running now and the weekly routine of a batch.
package routine

import (
	"context"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/metromate/metromate-linebot-go/internal/bot"
	"github.com/metromate/metromate-linebot-go/internal/format"
	"github.com/metromate/metromate-linebot-go/internal/lineutil"
	"github.com/metromate/metromate-linebot-go/internal/logger"
	"github.com/metromate/metromate-linebot-go/internal/lookup"
	"github.com/metromate/metromate-linebot-go/internal/metrics"
)

// Module constants
const (
	ModuleName = "routine"
	senderName = "রুটিন সহকারী"

	CommandCurrent = "class_current"
	CommandWeekly  = "weekly_routine"
)

// Handler handles routine queries.
type Handler struct {
	engine       *lookup.Engine
	defaultBatch string
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

// NewHandler creates a routine handler. defaultBatch is used when the
// command names no batch.
func NewHandler(engine *lookup.Engine, defaultBatch string, m *metrics.Metrics, log *logger.Logger) *Handler {
	return &Handler{
		engine:       engine,
		defaultBatch: defaultBatch,
		metrics:      m,
		logger:       log,
	}
}

// Name returns the module name
func (h *Handler) Name() string { return ModuleName }

// Commands returns the routine commands.
func (h *Handler) Commands() []string { return []string{CommandCurrent, CommandWeekly} }

// Handle answers /class_current [batch] and /weekly_routine [batch].
func (h *Handler) Handle(ctx context.Context, req bot.Request) []messaging_api.MessageInterface {
	batch := h.batch(req.Args)
	log := h.logger.WithModule(ModuleName).WithField("batch", batch)

	var text string
	switch req.Command {
	case CommandCurrent:
		res := h.engine.CurrentClass(batch, req.Now)
		h.record(CommandCurrent, res.Found)
		log.WithField("found", res.Found).DebugContext(ctx, "Current class lookup")
		text = format.CurrentClass(res)
	case CommandWeekly:
		week := h.engine.WeeklyRoutine(batch)
		h.record(CommandWeekly, len(week) > 0)
		log.WithField("days", len(week)).DebugContext(ctx, "Weekly routine lookup")
		text = format.WeeklyRoutine(batch, week)
	default:
		return nil
	}

	return lineutil.NewTextReply(text, lineutil.GetSender(senderName, ""))
}

// batch returns the first argument, or the default batch when there is none.
func (h *Handler) batch(args string) string {
	if fields := strings.Fields(args); len(fields) > 0 {
		return fields[0]
	}
	return h.defaultBatch
}

func (h *Handler) record(command string, found bool) {
	if h.metrics == nil {
		return
	}
	result := "not_found"
	if found {
		result = "found"
	}
	h.metrics.RecordLookup(command, result)
}
