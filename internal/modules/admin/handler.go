// Package admin implements the dataset maintenance commands: appends,
// reload and the change journal listing. Only configured admins may run them.
package admin

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/metromate/metromate-linebot-go/internal/bot"
	"github.com/metromate/metromate-linebot-go/internal/dataset"
	apperrors "github.com/metromate/metromate-linebot-go/internal/errors"
	"github.com/metromate/metromate-linebot-go/internal/format"
	"github.com/metromate/metromate-linebot-go/internal/lineutil"
	"github.com/metromate/metromate-linebot-go/internal/logger"
	"github.com/metromate/metromate-linebot-go/internal/metrics"
	"github.com/metromate/metromate-linebot-go/internal/sentry"
	"github.com/metromate/metromate-linebot-go/internal/storage"
)

// Module constants
const (
	ModuleName = "admin"
	senderName = "অ্যাডমিন"

	CommandAddCourse  = "add_course"
	CommandAddFaculty = "add_faculty"
	CommandAddRoutine = "add_routine"
	CommandAddBus     = "add_bus"
	CommandReload     = "reload"
	CommandChanges    = "changes"

	// DefaultChangesLimit is the number of entries /changes lists without an argument.
	DefaultChangesLimit = 10

	directoryUsage = "<KEY> <name>"
	fieldSeparator = "|"
)

// Journal lists recorded dataset changes.
type Journal interface {
	Recent(ctx context.Context, limit int) ([]storage.Change, error)
	Search(ctx context.Context, term string, limit int) ([]storage.Change, error)
}

// Dataset is the subset of the dataset store the admin commands mutate.
type Dataset interface {
	AddRoutine(ctx context.Context, e dataset.RoutineEntry, userID string) error
	AddCourse(ctx context.Context, code, name, userID string) error
	AddFaculty(ctx context.Context, initial, name, userID string) error
	AddBus(ctx context.Context, b dataset.BusEntry, userID string) error
	Reload(ctx context.Context) dataset.LoadReport
}

// HandlerConfig holds the dependencies of the admin handler.
type HandlerConfig struct {
	Dataset  Dataset
	Journal  Journal // nil disables /changes
	Location *time.Location
	Metrics  *metrics.Metrics
	Logger   *logger.Logger
	// OnReload is called with the report of every /reload.
	OnReload func(dataset.LoadReport)
}

// Handler handles admin commands.
type Handler struct {
	dataset  Dataset
	journal  Journal
	loc      *time.Location
	metrics  *metrics.Metrics
	logger   *logger.Logger
	onReload func(dataset.LoadReport)
}

// NewHandler creates an admin handler.
func NewHandler(cfg HandlerConfig) *Handler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		dataset:  cfg.Dataset,
		journal:  cfg.Journal,
		loc:      loc,
		metrics:  cfg.Metrics,
		logger:   cfg.Logger,
		onReload: cfg.OnReload,
	}
}

// Name returns the module name
func (h *Handler) Name() string { return ModuleName }

// Commands returns the admin commands.
func (h *Handler) Commands() []string {
	return []string{
		CommandAddCourse, CommandAddFaculty, CommandAddRoutine, CommandAddBus,
		CommandReload, CommandChanges,
	}
}

// Handle runs an admin command. Non-admins get a refusal and nothing changes.
func (h *Handler) Handle(ctx context.Context, req bot.Request) []messaging_api.MessageInterface {
	log := h.logger.WithModule(ModuleName).WithField("command", req.Command)
	if !req.Admin {
		log.WarnContext(ctx, "Admin command from non-admin user")
		return h.reply(format.Unauthorized())
	}

	var text string
	switch req.Command {
	case CommandAddCourse:
		text = h.addDirectory(ctx, req, dataset.DocCourses, h.dataset.AddCourse)
	case CommandAddFaculty:
		text = h.addDirectory(ctx, req, dataset.DocFaculty, h.dataset.AddFaculty)
	case CommandAddRoutine:
		text = h.addRoutine(ctx, req)
	case CommandAddBus:
		text = h.addBus(ctx, req)
	case CommandReload:
		report := h.dataset.Reload(ctx)
		if h.onReload != nil {
			h.onReload(report)
		}
		log.WithField("ok", report.OK()).InfoContext(ctx, "Dataset reloaded by admin")
		text = format.Reload(report)
	case CommandChanges:
		text = h.changes(ctx, req.Args)
	default:
		return nil
	}
	return h.reply(text)
}

func (h *Handler) reply(text string) []messaging_api.MessageInterface {
	return lineutil.NewTextReply(text, lineutil.GetSender(senderName, ""))
}

// addDirectory handles "<KEY> <name...>". The name keeps its inner spaces.
func (h *Handler) addDirectory(ctx context.Context, req bot.Request, doc dataset.Document,
	add func(ctx context.Context, key, name, userID string) error,
) string {
	key, name, _ := strings.Cut(strings.TrimSpace(req.Args), " ")
	name = strings.TrimSpace(name)
	if key == "" || name == "" {
		return format.AddUsage(req.Command, directoryUsage)
	}
	err := add(ctx, key, name, req.UserID)
	h.observe(ctx, req, doc, err)
	return format.AddResult(doc, dataset.CanonicalKey(key), err)
}

func (h *Handler) addRoutine(ctx context.Context, req bot.Request) string {
	fields, ok := splitFields(req.Args, 7)
	if !ok {
		return format.AddUsage(req.Command, format.RoutineUsage)
	}

	entry, err := parseRoutine(fields)
	if err == nil {
		err = h.dataset.AddRoutine(ctx, entry, req.UserID)
	}
	h.observe(ctx, req, dataset.DocRoutine, err)
	return format.AddResult(dataset.DocRoutine, dataset.Normalize(fields[1]), err)
}

func parseRoutine(f []string) (dataset.RoutineEntry, error) {
	day, err := dataset.ParseDay(f[0])
	if err != nil {
		return dataset.RoutineEntry{}, err
	}
	start, err := dataset.ParseClock(f[2])
	if err != nil {
		return dataset.RoutineEntry{}, err
	}
	end, err := dataset.ParseClock(f[3])
	if err != nil {
		return dataset.RoutineEntry{}, err
	}
	return dataset.RoutineEntry{
		Day:            day,
		Batch:          f[1],
		Start:          start,
		End:            end,
		CourseCode:     f[4],
		Room:           f[5],
		FacultyInitial: f[6],
	}, nil
}

func (h *Handler) addBus(ctx context.Context, req bot.Request) string {
	f, ok := splitFields(req.Args, 8)
	if !ok {
		return format.AddUsage(req.Command, format.BusUsage)
	}
	entry := dataset.BusEntry{
		BusNo:             f[0],
		RouteName:         f[1],
		RouteDetails:      f[2],
		DepartureLocation: f[3],
		ArrivalLocation:   f[4],
		DepartureTime:     f[5],
		ArrivalTime:       f[6],
		BusType:           f[7],
	}
	err := h.dataset.AddBus(ctx, entry, req.UserID)
	h.observe(ctx, req, dataset.DocBuses, err)

	key := dataset.Normalize(entry.BusNo)
	if key == "" {
		key = dataset.Normalize(entry.RouteName)
	}
	return format.AddResult(dataset.DocBuses, key, err)
}

// splitFields splits a pipe-separated argument list into exactly n
// trimmed fields. Empty fields are allowed.
func splitFields(args string, n int) ([]string, bool) {
	if strings.TrimSpace(args) == "" {
		return nil, false
	}
	parts := strings.Split(args, fieldSeparator)
	if len(parts) != n {
		return nil, false
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts, true
}

// observe logs the outcome of an append and reports persistence failures.
func (h *Handler) observe(ctx context.Context, req bot.Request, doc dataset.Document, err error) {
	log := h.logger.WithModule(ModuleName).
		WithField("command", req.Command).
		WithField("document", string(doc))
	switch {
	case err == nil:
		log.InfoContext(ctx, "Dataset append accepted")
	case apperrors.IsPersistence(err):
		log.WithError(err).ErrorContext(ctx, "Dataset append could not be persisted")
		if h.metrics != nil {
			h.metrics.RecordPersistenceFailure(string(doc))
		}
		sentry.CaptureError(ctx, err, map[string]string{
			"module":   ModuleName,
			"document": string(doc),
		})
	default:
		log.WithError(err).DebugContext(ctx, "Dataset append rejected")
	}
}

// changes handles "/changes [n|term]". A number limits the listing, any
// other argument searches the journal.
func (h *Handler) changes(ctx context.Context, args string) string {
	if h.journal == nil {
		return format.Changes(nil, h.loc)
	}

	args = strings.TrimSpace(args)
	var (
		entries []storage.Change
		err     error
	)
	if n, convErr := strconv.Atoi(args); convErr == nil && n > 0 {
		entries, err = h.journal.Recent(ctx, n)
	} else if args != "" {
		entries, err = h.journal.Search(ctx, args, DefaultChangesLimit)
	} else {
		entries, err = h.journal.Recent(ctx, DefaultChangesLimit)
	}
	if err != nil {
		h.logger.WithModule(ModuleName).WithError(err).ErrorContext(ctx, "Failed to list changes")
		return format.InternalError()
	}
	return format.Changes(entries, h.loc)
}
