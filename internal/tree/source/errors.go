package source

import (
	"errors"
	"fmt"
)

// ErrorCategory is the normalized failure taxonomy for source fetches.
type ErrorCategory string

const (
	// ErrorTimeout indicates the source did not answer within the deadline
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the payload was not a list of children
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorProviderOutage indicates a transport failure or 5xx
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorRateLimited indicates the source answered 429
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorNotFound indicates the source answered 404
	ErrorNotFound ErrorCategory = "not_found"

	// ErrorInternal indicates a failure on our side, e.g. a bad base URL
	ErrorInternal ErrorCategory = "internal"
)

// SourceError wraps a failed fetch with its category.
type SourceError struct {
	Category   ErrorCategory
	Ref        int64
	Message    string
	Underlying error
	Retryable  bool
}

func (e *SourceError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("source fetch %d [%s]: %s: %v", e.Ref, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("source fetch %d [%s]: %s", e.Ref, e.Category, e.Message)
}

func (e *SourceError) Unwrap() error {
	return e.Underlying
}

func newError(category ErrorCategory, ref int64, message string, underlying error) *SourceError {
	retryable := category == ErrorTimeout ||
		category == ErrorProviderOutage ||
		category == ErrorRateLimited

	return &SourceError{
		Category:   category,
		Ref:        ref,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable reports whether a later fetch may succeed.
func IsRetryable(err error) bool {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// CategoryOf extracts the category, defaulting to ErrorInternal.
func CategoryOf(err error) ErrorCategory {
	var se *SourceError
	if errors.As(err, &se) {
		return se.Category
	}
	return ErrorInternal
}
