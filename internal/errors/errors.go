// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates an input record or argument is malformed.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCaseCollision indicates two program names differ only in letter case.
	ErrCaseCollision = errors.New("program names collide case-insensitively")

	// ErrUnsupportedFormat indicates a source file format is not recognized.
	ErrUnsupportedFormat = errors.New("unsupported format")
)

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsInvalidInput reports whether err is or wraps ErrInvalidInput.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// ValidationError represents input validation failures.
// It unwraps to ErrInvalidInput.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

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

// SourceError represents a failure to load an upstream source
// (catalogue, registry, artifact) from a path or URL.
type SourceError struct {
	Location   string
	StatusCode int
	Err        error
}

func (e *SourceError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("source error (location=%s, status=%d): %v", e.Location, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("source error (location=%s): %v", e.Location, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// NewSourceError creates a new source error.
func NewSourceError(location string, statusCode int, err error) *SourceError {
	return &SourceError{
		Location:   location,
		StatusCode: statusCode,
		Err:        err,
	}
}
