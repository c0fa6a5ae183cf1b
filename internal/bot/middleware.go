package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/metromate/metromate-linebot-go/internal/format"
	"github.com/metromate/metromate-linebot-go/internal/lineutil"
	"github.com/metromate/metromate-linebot-go/internal/logger"
	"github.com/metromate/metromate-linebot-go/internal/metrics"
	"github.com/metromate/metromate-linebot-go/internal/sentry"
)

// LoggingMiddleware logs handler execution with timing and result info.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(ctx context.Context, h Handler, req Request, next HandlerFunc) []messaging_api.MessageInterface {
		start := time.Now()

		log.WithField("module", h.Name()).
			WithField("command", req.Command).
			WithField("args_length", len(req.Args)).
			DebugContext(ctx, "Handler started")

		msgs := next(ctx, h, req)

		log.WithField("module", h.Name()).
			WithField("command", req.Command).
			WithField("duration_ms", time.Since(start).Milliseconds()).
			WithField("msg_count", len(msgs)).
			DebugContext(ctx, "Handler completed")

		return msgs
	}
}

// RecoveryMiddleware turns a handler panic into a generic error reply and
// reports it to Sentry.
func RecoveryMiddleware(log *logger.Logger, m *metrics.Metrics) Middleware {
	return func(ctx context.Context, h Handler, req Request, next HandlerFunc) (msgs []messaging_api.MessageInterface) {
		defer func() {
			if r := recover(); r != nil {
				log.WithField("module", h.Name()).
					WithField("command", req.Command).
					WithField("panic", fmt.Sprint(r)).
					WithField("stack", string(debug.Stack())).
					ErrorContext(ctx, "Handler panicked")
				if m != nil {
					m.RecordHTTPError("panic", h.Name())
				}
				sentry.CapturePanic(ctx, r, map[string]string{"module": h.Name(), "command": req.Command})

				msgs = []messaging_api.MessageInterface{
					lineutil.NewTextMessageWithSender(format.InternalError(), lineutil.GetSender("", "")),
				}
			}
		}()

		return next(ctx, h, req)
	}
}
