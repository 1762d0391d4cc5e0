package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoResults indicates an operation needs a result set but none is loaded.
	ErrNoResults = errors.New("no search results")

	// ErrIndexOutOfRange indicates a position outside the current result set.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrJobRunning indicates another search, download or profile switch is in progress.
	ErrJobRunning = errors.New("another job is running")

	// ErrUnknownProfile indicates a profile name that is not configured.
	ErrUnknownProfile = errors.New("unknown profile")

	// ErrRateLimited indicates the remote API asked the client to slow down.
	ErrRateLimited = errors.New("rate limited")

	// ErrRendererUnavailable indicates PDF output was requested without a renderer.
	ErrRendererUnavailable = errors.New("document renderer unavailable")

	// Authentication Errors.

	// ErrAuthRequired indicates no active identity is selected.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired indicates the remote API rejected the access token.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrTokenRefreshFailed indicates token refresh operation failed.
	ErrTokenRefreshFailed = errors.New("token refresh failed")
)

// RateLimitError carries the delay the remote API recommended before retrying.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: retry after %s", e.RetryAfter)
}

// Unwrap lets errors.Is(err, ErrRateLimited) match.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrInvalidInput) match.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
