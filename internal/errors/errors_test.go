package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"
)

func TestSentinelErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		checkFn  func(error) bool
		expected bool
	}{
		{
			name:     "ErrDuplicateKey is recognized",
			err:      ErrDuplicateKey,
			checkFn:  IsDuplicateKey,
			expected: true,
		},
		{
			name:     "Joined ErrDataUnavailable is recognized",
			err:      errors.Join(ErrDataUnavailable, errors.New("additional context")),
			checkFn:  IsDataUnavailable,
			expected: true,
		},
		{
			name:     "Different error is not ErrPersistence",
			err:      ErrDuplicateKey,
			checkFn:  IsPersistence,
			expected: false,
		},
		{
			name:     "Wrapped ErrDuplicateKey is recognized",
			err:      fmt.Errorf("add course OOP: %w", ErrDuplicateKey),
			checkFn:  IsDuplicateKey,
			expected: true,
		},
		{
			name:     "ValidationError matches ErrInvalidInput",
			err:      NewValidationError("start_time", "must be before end_time"),
			checkFn:  IsInvalidInput,
			expected: true,
		},
		{
			name:     "PersistenceError matches ErrPersistence",
			err:      NewPersistenceError("course_info.json", fs.ErrPermission),
			checkFn:  IsPersistence,
			expected: true,
		},
		{
			name:     "DataUnavailableError matches ErrDataUnavailable",
			err:      NewDataUnavailableError("bus_info.json", fs.ErrNotExist),
			checkFn:  IsDataUnavailable,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.checkFn(tt.err); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestPersistenceError_KeepsCause(t *testing.T) {
	t.Parallel()
	err := NewPersistenceError("routine_data.json", fs.ErrPermission)

	if !errors.Is(err, fs.ErrPermission) {
		t.Error("expected cause to be reachable through errors.Is")
	}
	want := "persist routine_data.json: permission denied"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestValidationError(t *testing.T) {
	t.Parallel()
	err := NewValidationError("day", "unknown day name")

	if err.Field != "day" {
		t.Errorf("expected field 'day', got %s", err.Field)
	}
	want := "validation failed on day: unknown day name"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
