package lineutil

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
)

func TestTruncateRunes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"short text untouched", "রুটিন", 10, "রুটিন"},
		{"bengali cut by rune", "সোমবারের ক্লাস", 6, "সোম..."},
		{"tiny limit has no ellipsis", "abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateRunes(tt.in, tt.max); got != tt.want {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
		})
	}
}

func TestSplitText(t *testing.T) {
	t.Parallel()

	t.Run("fits in one chunk", func(t *testing.T) {
		t.Parallel()
		got := SplitText("a\nb", 10)
		if len(got) != 1 || got[0] != "a\nb" {
			t.Errorf("SplitText() = %q", got)
		}
	})

	t.Run("cuts at newlines", func(t *testing.T) {
		t.Parallel()
		got := SplitText("aaaa\nbbbb\ncccc", 10)
		want := []string{"aaaa\nbbbb", "cccc"}
		if strings.Join(got, "|") != strings.Join(want, "|") {
			t.Errorf("SplitText() = %q, want %q", got, want)
		}
	})

	t.Run("hard splits long lines", func(t *testing.T) {
		t.Parallel()
		got := SplitText(strings.Repeat("x", 25), 10)
		if len(got) != 3 {
			t.Fatalf("expected 3 chunks, got %d: %q", len(got), got)
		}
		for _, c := range got {
			if utf8.RuneCountInString(c) > 10 {
				t.Errorf("chunk too long: %q", c)
			}
		}
	})
}

func TestNewTextMessages_CapsMessageCount(t *testing.T) {
	t.Parallel()
	line := strings.Repeat("ক", 100) + "\n"
	text := strings.Repeat(line, 300)

	msgs := NewTextMessages(text, GetSender("", ""), 2)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	for _, m := range msgs {
		tm := m.(*messaging_api.TextMessage)
		if utf8.RuneCountInString(tm.Text) > MaxTextMessageLength {
			t.Errorf("message exceeds LINE limit: %d runes", utf8.RuneCountInString(tm.Text))
		}
		if tm.Sender == nil || tm.Sender.Name != BotName {
			t.Errorf("sender not applied: %+v", tm.Sender)
		}
	}
}

func TestAddQuickReplyToMessages(t *testing.T) {
	t.Parallel()
	msgs := []messaging_api.MessageInterface{NewTextMessage("a"), NewTextMessage("b")}
	AddQuickReplyToMessages(msgs, DefaultQuickReplies()...)

	if msgs[0].(*messaging_api.TextMessage).QuickReply != nil {
		t.Error("only the last message should carry quick replies")
	}
	qr := msgs[1].(*messaging_api.TextMessage).QuickReply
	if qr == nil || len(qr.Items) != 4 {
		t.Fatalf("unexpected quick reply: %+v", qr)
	}
	action := qr.Items[0].Action.(*messaging_api.MessageAction)
	if action.Text != "/class_current" {
		t.Errorf("first quick reply sends %q", action.Text)
	}

	AddQuickReplyToMessages(nil, QuickReplyHelpAction())
}

func TestLoadLocation(t *testing.T) {
	t.Parallel()
	loc := LoadLocation("Asia/Dhaka")
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
	if offset != 6*60*60 {
		t.Errorf("Asia/Dhaka offset = %d, want %d", offset, 6*60*60)
	}
	if LoadLocation("Not/AZone") != time.UTC {
		t.Error("unknown zone should fall back to UTC")
	}
}

func TestNewTextReply(t *testing.T) {
	t.Parallel()
	msgs := NewTextReply("হ্যালো", GetSender("", ""))
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	tm := msgs[0].(*messaging_api.TextMessage)
	if tm.Text != "হ্যালো" || tm.QuickReply == nil {
		t.Errorf("unexpected reply: %+v", tm)
	}
}
