// Package bot provides the handler interface and command dispatch for the
// LINE bot. Each module (routine, directory, bus, general, admin) implements
// Handler for one or more slash commands; free text that is not a command
// goes to the LLM through the Processor.
package bot

import (
	"context"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// Handler defines the interface that all bot modules must implement.
type Handler interface {
	// Name identifies the module in logs and metrics.
	Name() string

	// Commands lists the command names served, lower case and without the
	// leading slash. A name may belong to only one handler.
	Commands() []string

	// Handle answers a parsed command. It returns at most
	// MaxMessagesPerReply messages; an empty slice sends no reply.
	Handle(ctx context.Context, req Request) []messaging_api.MessageInterface
}

// Request is a parsed command together with who sent it.
type Request struct {
	Command string // lower case, without the leading slash
	Args    string // text after the command, whitespace-normalized

	UserID string
	ChatID string
	Admin  bool

	// Personal is false for group and room chats.
	Personal bool

	Now time.Time
}
