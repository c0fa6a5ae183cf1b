// Package bus implements the bus schedule module.
package bus

import (
	"context"

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
	ModuleName = "bus"
	senderName = "বাস সহকারী"

	CommandBus = "bus"
)

// Handler handles bus schedule queries.
type Handler struct {
	engine  *lookup.Engine
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewHandler creates a bus handler.
func NewHandler(engine *lookup.Engine, m *metrics.Metrics, log *logger.Logger) *Handler {
	return &Handler{engine: engine, metrics: m, logger: log}
}

// Name returns the module name
func (h *Handler) Name() string { return ModuleName }

// Commands returns the bus command.
func (h *Handler) Commands() []string { return []string{CommandBus} }

// Handle answers /bus [route]. The whole argument string is the query, so
// multi-word routes such as "Mirpur 10" match.
func (h *Handler) Handle(ctx context.Context, req bot.Request) []messaging_api.MessageInterface {
	if req.Command != CommandBus {
		return nil
	}

	res := h.engine.Buses(req.Args)
	if h.metrics != nil {
		h.metrics.RecordLookup(CommandBus, statusLabel(res.Status))
	}
	h.logger.WithModule(ModuleName).
		WithField("query", res.Query).
		WithField("matches", len(res.Entries)).
		DebugContext(ctx, "Bus lookup")

	return lineutil.NewTextReply(format.Buses(res), lineutil.GetSender(senderName, ""))
}

func statusLabel(s lookup.BusStatus) string {
	switch s {
	case lookup.BusAll:
		return "all"
	case lookup.BusMatched:
		return "found"
	case lookup.BusNoMatch:
		return "not_found"
	default:
		return "no_data"
	}
}
