// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Parsing errors.
	ErrNoTransactions    = errors.New("no transactions found")
	ErrUnsupportedFormat = errors.New("unsupported statement format")
	ErrDocumentTooLarge  = errors.New("document exceeds size limit")

	// Review errors.
	ErrInvalidTransition = errors.New("invalid job state transition")
	ErrJobNotReviewable  = errors.New("job is not awaiting review")
	ErrAlreadyCommitted  = errors.New("job already committed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to an external caller.
// The wrapped cause stays in internal logs only.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-facing error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// UserMessage extracts the outward-safe message for an error. Errors that
// carry no explicit user message collapse to a generic one so internal
// details never leak past the boundary.
func UserMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) {
		return userErr.UserMessage
	}
	return "an internal error occurred"
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
