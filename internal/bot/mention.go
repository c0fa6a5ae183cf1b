package bot

import (
	"slices"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// span is a mention position in runes, as LINE reports it.
type span struct{ start, end int }

// selfMentions returns the spans that mention the bot itself.
func selfMentions(mention *webhook.Mention) []span {
	if mention == nil {
		return nil
	}
	var spans []span
	for _, m := range mention.Mentionees {
		if u, ok := m.(webhook.UserMentionee); ok && u.IsSelf {
			spans = append(spans, span{start: int(u.Index), end: int(u.Index + u.Length)})
		}
	}
	return spans
}

// IsBotMentioned reports whether the message mentions the bot.
func IsBotMentioned(textMsg webhook.TextMessageContent) bool {
	return len(selfMentions(textMsg.Mention)) > 0
}

// RemoveBotMentions cuts every bot mention out of text and collapses the
// remaining whitespace. Spans outside the text are ignored.
func RemoveBotMentions(text string, mention *webhook.Mention) string {
	spans := selfMentions(mention)
	if len(spans) == 0 {
		return text
	}

	// Back to front so earlier offsets stay valid.
	slices.SortFunc(spans, func(a, b span) int { return b.start - a.start })

	runes := []rune(text)
	for _, s := range spans {
		start, end := max(s.start, 0), min(s.end, len(runes))
		if start >= end {
			continue
		}
		runes = append(runes[:start], runes[end:]...)
	}
	return strings.Join(strings.Fields(string(runes)), " ")
}
