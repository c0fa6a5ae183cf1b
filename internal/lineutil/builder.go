// Package lineutil provides helpers for building LINE messages and actions.
package lineutil

import (
	"strings"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

// QuickReplyItem represents an item in a quick reply.
type QuickReplyItem struct {
	ImageURL string
	Action   messaging_api.ActionInterface
}

// Action is an alias for the LINE SDK action interface for convenience.
type Action = messaging_api.ActionInterface

// NewTextMessage creates a text message, truncating to the LINE limit.
func NewTextMessage(text string) *messaging_api.TextMessage {
	return &messaging_api.TextMessage{
		Text: TruncateRunes(text, MaxTextMessageLength),
	}
}

// NewTextMessageWithSender creates a text message shown under sender.
func NewTextMessageWithSender(text string, sender *messaging_api.Sender) *messaging_api.TextMessage {
	msg := NewTextMessage(text)
	msg.Sender = sender
	return msg
}

// NewTextMessages splits long text on line boundaries into at most
// maxMessages text messages. Overflow is truncated into the last message.
func NewTextMessages(text string, sender *messaging_api.Sender, maxMessages int) []messaging_api.MessageInterface {
	chunks := SplitText(text, TextListSafeBuffer)
	if maxMessages > 0 && len(chunks) > maxMessages {
		tail := strings.Join(chunks[maxMessages-1:], "\n")
		chunks = append(chunks[:maxMessages-1], tail)
	}
	out := make([]messaging_api.MessageInterface, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, NewTextMessageWithSender(chunk, sender))
	}
	return out
}

// NewTextReply builds a complete reply from text: split into at most
// MaxMessagesPerReply messages, with DefaultQuickReplies on the last one.
func NewTextReply(text string, sender *messaging_api.Sender) []messaging_api.MessageInterface {
	msgs := NewTextMessages(text, sender, MaxMessagesPerReply)
	AddQuickReplyToMessages(msgs, DefaultQuickReplies()...)
	return msgs
}

// SplitText breaks text into chunks of at most maxRunes runes, preferring
// to cut at newlines. A single line longer than maxRunes is hard-split.
func SplitText(text string, maxRunes int) []string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return []string{text}
	}

	var (
		chunks []string
		cur    strings.Builder
		size   int
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(cur.String(), "\n"))
			cur.Reset()
			size = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if size+n > maxRunes {
			flush()
		}
		for n > maxRunes {
			runes := []rune(line)
			chunks = append(chunks, string(runes[:maxRunes]))
			line = string(runes[maxRunes:])
			n -= maxRunes
		}
		cur.WriteString(line)
		size += n
	}
	flush()
	return chunks
}

// NewQuickReply creates a quick reply component.
// LINE API limits: max 13 items
func NewQuickReply(items []QuickReplyItem) *messaging_api.QuickReply {
	if len(items) > MaxQuickReplyItemCount {
		items = items[:MaxQuickReplyItemCount]
	}

	quickReplyItems := make([]messaging_api.QuickReplyItem, len(items))
	for i, item := range items {
		quickReplyItems[i] = messaging_api.QuickReplyItem{
			Action:   item.Action,
			ImageUrl: item.ImageURL,
		}
	}

	return &messaging_api.QuickReply{Items: quickReplyItems}
}

// NewMessageAction creates a message action that sends text when tapped.
func NewMessageAction(label, text string) Action {
	return &messaging_api.MessageAction{
		Label: TruncateRunes(label, MaxQuickReplyLabel),
		Text:  text,
	}
}

// QuickReplyCurrentClassAction returns a "current class" quick reply item
func QuickReplyCurrentClassAction() QuickReplyItem {
	return QuickReplyItem{Action: NewMessageAction("⏰ এখন ক্লাস", "/class_current")}
}

// QuickReplyWeeklyRoutineAction returns a "weekly routine" quick reply item
func QuickReplyWeeklyRoutineAction() QuickReplyItem {
	return QuickReplyItem{Action: NewMessageAction("📅 রুটিন", "/weekly_routine")}
}

// QuickReplyBusAction returns a "bus schedule" quick reply item
func QuickReplyBusAction() QuickReplyItem {
	return QuickReplyItem{Action: NewMessageAction("🚌 বাস", "/bus")}
}

// QuickReplyHelpAction returns a "help" quick reply item
func QuickReplyHelpAction() QuickReplyItem {
	return QuickReplyItem{Action: NewMessageAction("📖 সাহায্য", "/help")}
}

// DefaultQuickReplies is attached to the last message of most replies.
func DefaultQuickReplies() []QuickReplyItem {
	return []QuickReplyItem{
		QuickReplyCurrentClassAction(),
		QuickReplyWeeklyRoutineAction(),
		QuickReplyBusAction(),
		QuickReplyHelpAction(),
	}
}

// AddQuickReplyToMessages attaches quick reply items to the last message.
// No-op when the slice is empty or the last message is not a text message.
func AddQuickReplyToMessages(messages []messaging_api.MessageInterface, items ...QuickReplyItem) {
	if len(messages) == 0 || len(items) == 0 {
		return
	}
	if m, ok := messages[len(messages)-1].(*messaging_api.TextMessage); ok {
		m.QuickReply = NewQuickReply(items)
	}
}

// TruncateRunes truncates text by rune count (not byte count) to properly handle UTF-8.
// Returns truncated string with "..." if exceeds maxRunes.
func TruncateRunes(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	runes := []rune(text)
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}
