// Package errors provides domain-specific error types and sentinel errors
// for the dataset, lookup and conversation layers.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors. Use the Is helpers below or errors.Is.
var (
	// ErrDuplicateKey indicates an append collided with an existing
	// course code or faculty initial.
	ErrDuplicateKey = errors.New("key already exists")

	// ErrDataUnavailable indicates a dataset document is missing or corrupt.
	ErrDataUnavailable = errors.New("dataset unavailable")

	// ErrPersistence indicates a dataset document could not be written back.
	ErrPersistence = errors.New("persistence failed")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")
)

// IsDuplicateKey reports whether err is or wraps ErrDuplicateKey.
func IsDuplicateKey(err error) bool { return errors.Is(err, ErrDuplicateKey) }

// IsDataUnavailable reports whether err is or wraps ErrDataUnavailable.
func IsDataUnavailable(err error) bool { return errors.Is(err, ErrDataUnavailable) }

// IsPersistence reports whether err is or wraps ErrPersistence.
func IsPersistence(err error) bool { return errors.Is(err, ErrPersistence) }

// IsInvalidInput reports whether err is or wraps ErrInvalidInput.
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// DataUnavailableError records which document could not be loaded.
type DataUnavailableError struct {
	Document string
	Err      error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("dataset %s unavailable: %v", e.Document, e.Err)
}

// Is matches ErrDataUnavailable in addition to the wrapped cause.
func (e *DataUnavailableError) Is(target error) bool {
	return target == ErrDataUnavailable
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

// NewDataUnavailableError creates a new data unavailable error.
func NewDataUnavailableError(document string, err error) *DataUnavailableError {
	return &DataUnavailableError{Document: document, Err: err}
}

// PersistenceError represents a failed write-back of a dataset document.
// The in-memory dataset is left untouched when this error is returned.
type PersistenceError struct {
	Document string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Document, e.Err)
}

// Is matches ErrPersistence in addition to the wrapped cause.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NewPersistenceError creates a new persistence error.
func NewPersistenceError(document string, err error) *PersistenceError {
	return &PersistenceError{Document: document, Err: err}
}
