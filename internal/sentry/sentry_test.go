package sentry

import (
	"context"
	"errors"
	"testing"
	"time"
)

// Sentry keeps a global hub, so these tests do not run in parallel.

func TestInitialize_EmptyDSN(t *testing.T) {
	if err := Initialize(Config{DSN: ""}); err != nil {
		t.Errorf("Expected nil error for empty DSN, got %v", err)
	}
}

func TestInitialize_InvalidDSN(t *testing.T) {
	if err := Initialize(Config{DSN: "not a dsn"}); err == nil {
		t.Error("Expected error for malformed DSN")
	}
}

func TestInitialize_ValidConfig(t *testing.T) {
	err := Initialize(Config{
		DSN:         "https://public@example.invalid/1",
		Environment: "test",
	})
	if err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if !IsEnabled() {
		t.Error("Expected IsEnabled() to return true after initialization")
	}

	// Capture must not panic with or without request values.
	CaptureError(context.Background(), errors.New("boom"), map[string]string{"module": "test"})
	CapturePanic(context.Background(), "panic value", nil)
	CaptureError(context.Background(), nil, nil)

	Flush(100 * time.Millisecond)
}
