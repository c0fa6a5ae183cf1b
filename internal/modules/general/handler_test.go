package general

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/metromate/metromate-linebot-go/internal/bot"
	"github.com/metromate/metromate-linebot-go/internal/logger"
)

type stubProfiles struct {
	name string
	err  error
}

func (s stubProfiles) DisplayName(context.Context, string) (string, error) {
	return s.name, s.err
}

func text(t *testing.T, msgs []messaging_api.MessageInterface) string {
	t.Helper()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	return msgs[0].(*messaging_api.TextMessage).Text
}

func TestHandleStart(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		profiles ProfileSource
		userID   string
		want     string
		notWant  string
	}{
		{"with name", stubProfiles{name: "Rahim"}, "U1", "আসসালামু আলাইকুম, Rahim!", ""},
		{"profile error", stubProfiles{err: errors.New("boom")}, "U1", "আসসালামু আলাইকুম!", "boom"},
		{"no profile source", nil, "U1", "আসসালামু আলাইকুম!", ""},
		{"no user id", stubProfiles{name: "Rahim"}, "", "আসসালামু আলাইকুম!", "Rahim"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := NewHandler(tt.profiles, logger.NewTestLogger())
			got := text(t, h.Handle(context.Background(), bot.Request{Command: CommandStart, UserID: tt.userID}))
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("greeting = %q, want prefix %q", got, tt.want)
			}
			if tt.notWant != "" && strings.Contains(got, tt.notWant) {
				t.Errorf("greeting should not contain %q", tt.notWant)
			}
			if !strings.Contains(got, "/class_current") {
				t.Error("greeting should list the commands")
			}
		})
	}
}

func TestHandleHelpAdmin(t *testing.T) {
	t.Parallel()
	h := NewHandler(nil, logger.NewTestLogger())

	regular := text(t, h.Handle(context.Background(), bot.Request{Command: CommandHelp}))
	if strings.Contains(regular, "/add_course") {
		t.Error("regular help should hide admin commands")
	}
	admin := text(t, h.Handle(context.Background(), bot.Request{Command: CommandHelp, Admin: true}))
	if !strings.Contains(admin, "/add_course") || !strings.Contains(admin, "/reload") {
		t.Errorf("admin help missing admin commands:\n%s", admin)
	}
}

func TestHandleAbout(t *testing.T) {
	t.Parallel()
	h := NewHandler(nil, logger.NewTestLogger())
	got := text(t, h.Handle(context.Background(), bot.Request{Command: CommandAbout}))
	if !strings.Contains(got, "MetroMate") {
		t.Errorf("about = %q", got)
	}
	if msgs := h.Handle(context.Background(), bot.Request{Command: "bus"}); msgs != nil {
		t.Error("unknown command should return nil")
	}
}
