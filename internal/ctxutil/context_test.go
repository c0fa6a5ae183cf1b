package ctxutil

import (
	"context"
	"testing"
	"time"
)

func TestUserIDContext(t *testing.T) {
	t.Parallel()

	t.Run("empty context", func(t *testing.T) {
		t.Parallel()
		if userID := GetUserID(context.Background()); userID != "" {
			t.Errorf("Expected empty string, got %s", userID)
		}
	})

	t.Run("with user ID", func(t *testing.T) {
		t.Parallel()
		ctx := WithUserID(context.Background(), "U1234567890")
		if userID := GetUserID(ctx); userID != "U1234567890" {
			t.Errorf("Expected userID U1234567890, got %s", userID)
		}
	})
}

func TestChatAndRequestIDContext(t *testing.T) {
	t.Parallel()

	ctx := WithChatID(context.Background(), "C42")
	ctx = WithRequestID(ctx, "req-1")

	if chatID := GetChatID(ctx); chatID != "C42" {
		t.Errorf("Expected chatID C42, got %s", chatID)
	}
	requestID, ok := GetRequestID(ctx)
	if !ok || requestID != "req-1" {
		t.Errorf("Expected requestID req-1, got %q (ok=%v)", requestID, ok)
	}
	if _, ok := GetRequestID(context.Background()); ok {
		t.Error("Expected no request ID on empty context")
	}
}

func TestPreserveTracing(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	parent = WithUserID(parent, "U1")
	parent = WithChatID(parent, "C1")
	parent = WithRequestID(parent, "R1")
	cancel()

	detached := PreserveTracing(parent)

	if detached.Err() != nil {
		t.Errorf("detached context should not be canceled, got %v", detached.Err())
	}
	if _, ok := detached.Deadline(); ok {
		t.Error("detached context should have no deadline")
	}
	if GetUserID(detached) != "U1" || GetChatID(detached) != "C1" {
		t.Errorf("tracing values lost: user=%q chat=%q", GetUserID(detached), GetChatID(detached))
	}
	if id, _ := GetRequestID(detached); id != "R1" {
		t.Errorf("request ID lost: %q", id)
	}
}
