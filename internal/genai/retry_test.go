package genai

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		attempt int
		initial time.Duration
		max     time.Duration
		// Full jitter is random, so only the upper bound is fixed.
		maxExpected time.Duration
	}{
		{"first attempt has no delay", 0, time.Second, 10 * time.Second, 0},
		{"negative attempt", -1, time.Second, 10 * time.Second, 0},
		{"first retry", 1, time.Second, 10 * time.Second, time.Second},
		{"second retry doubles", 2, time.Second, 10 * time.Second, 2 * time.Second},
		{"capped at max", 10, time.Second, 5 * time.Second, 5 * time.Second},
		{"huge attempt does not overflow", 200, time.Second, 3 * time.Second, 3 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			for range 50 {
				got := CalculateBackoff(tt.attempt, tt.initial, tt.max)
				if got < 0 || got > tt.maxExpected {
					t.Fatalf("CalculateBackoff(%d) = %v, want within [0, %v]", tt.attempt, got, tt.maxExpected)
				}
			}
		})
	}
}

func TestSleep(t *testing.T) {
	t.Parallel()

	t.Run("zero duration", func(t *testing.T) {
		t.Parallel()
		if err := Sleep(context.Background(), 0); err != nil {
			t.Errorf("Sleep(0) returned error: %v", err)
		}
	})

	t.Run("normal sleep", func(t *testing.T) {
		t.Parallel()
		start := time.Now()
		if err := Sleep(context.Background(), 20*time.Millisecond); err != nil {
			t.Errorf("Sleep returned error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
			t.Errorf("Sleep returned too early: %v", elapsed)
		}
	})

	t.Run("context cancellation", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := Sleep(ctx, time.Hour); !errors.Is(err, context.Canceled) {
			t.Errorf("Sleep with canceled context = %v, want context.Canceled", err)
		}
	})
}

func TestBudget(t *testing.T) {
	t.Parallel()

	if !HasSufficientBudget(context.Background(), time.Hour) {
		t.Error("no deadline should have unlimited budget")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if !HasSufficientBudget(ctx, time.Second) {
		t.Error("1s should fit in a 1m budget")
	}
	if HasSufficientBudget(ctx, time.Hour) {
		t.Error("1h should not fit in a 1m budget")
	}
}
