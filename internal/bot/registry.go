package bot

import (
	"context"
	"fmt"
	"slices"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// HandlerFunc runs a handler for a request.
type HandlerFunc func(ctx context.Context, h Handler, req Request) []messaging_api.MessageInterface

// Middleware wraps handler execution. It must call next to continue the chain.
type Middleware func(ctx context.Context, h Handler, req Request, next HandlerFunc) []messaging_api.MessageInterface

// Registry maps command names to handlers and runs them through middleware.
type Registry struct {
	handlers    []Handler
	commands    map[string]Handler
	middlewares []Middleware
}

// NewRegistry creates a new handler registry.
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]Handler),
	}
}

// Register adds a handler to the registry. It panics when a command name is
// already taken, since that is a wiring bug.
func (r *Registry) Register(h Handler) {
	for _, cmd := range h.Commands() {
		if prev, ok := r.commands[cmd]; ok {
			panic(fmt.Sprintf("bot: command %q registered by both %s and %s", cmd, prev.Name(), h.Name()))
		}
		r.commands[cmd] = h
	}
	r.handlers = append(r.handlers, h)
}

// Use appends middleware. The first registered middleware runs outermost.
func (r *Registry) Use(mw Middleware) {
	r.middlewares = append(r.middlewares, mw)
}

// Has reports whether command is registered.
func (r *Registry) Has(command string) bool {
	_, ok := r.commands[command]
	return ok
}

// Dispatch runs the handler registered for req.Command. ok is false when no
// handler serves the command.
func (r *Registry) Dispatch(ctx context.Context, req Request) (msgs []messaging_api.MessageInterface, ok bool) {
	h, ok := r.commands[req.Command]
	if !ok {
		return nil, false
	}
	return r.chain()(ctx, h, req), true
}

func (r *Registry) chain() HandlerFunc {
	run := func(ctx context.Context, h Handler, req Request) []messaging_api.MessageInterface {
		return h.Handle(ctx, req)
	}
	for _, mw := range slices.Backward(r.middlewares) {
		next := run
		run = func(ctx context.Context, h Handler, req Request) []messaging_api.MessageInterface {
			return mw(ctx, h, req, next)
		}
	}
	return run
}
