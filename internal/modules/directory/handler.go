// Package directory implements the course and faculty lookup module.
package directory

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
	ModuleName = "directory"
	senderName = "তথ্য সহকারী"

	CommandCourse       = "course_info"
	CommandFaculty      = "faculty_info_cse"
	CommandFacultyAlias = "faculty_info"
)

// Handler handles course and faculty lookups.
type Handler struct {
	engine  *lookup.Engine
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewHandler creates a directory handler.
func NewHandler(engine *lookup.Engine, m *metrics.Metrics, log *logger.Logger) *Handler {
	return &Handler{engine: engine, metrics: m, logger: log}
}

// Name returns the module name
func (h *Handler) Name() string { return ModuleName }

// Commands returns the lookup commands.
func (h *Handler) Commands() []string {
	return []string{CommandCourse, CommandFaculty, CommandFacultyAlias}
}

// Handle answers /course_info <code> and /faculty_info_cse <initial>.
// Only the first argument is used as the key.
func (h *Handler) Handle(ctx context.Context, req bot.Request) []messaging_api.MessageInterface {
	key := firstField(req.Args)
	log := h.logger.WithModule(ModuleName).WithField("key", key)

	var text string
	switch req.Command {
	case CommandCourse:
		if key == "" {
			text = format.CourseUsage()
			break
		}
		res := h.engine.Course(key)
		h.record(CommandCourse, res.Found)
		log.WithField("found", res.Found).DebugContext(ctx, "Course lookup")
		text = format.Course(res)
	case CommandFaculty, CommandFacultyAlias:
		if key == "" {
			text = format.FacultyUsage()
			break
		}
		res := h.engine.Faculty(key)
		h.record(CommandFaculty, res.Found)
		log.WithField("found", res.Found).DebugContext(ctx, "Faculty lookup")
		text = format.Faculty(res)
	default:
		return nil
	}

	return lineutil.NewTextReply(text, lineutil.GetSender(senderName, ""))
}

func firstField(s string) string {
	if fields := strings.Fields(s); len(fields) > 0 {
		return fields[0]
	}
	return ""
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
