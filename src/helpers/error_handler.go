package helpers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sentiment-pulse/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type PulseError struct {
	Message string
	Cause   error
}

func (e *PulseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PulseError) Unwrap() error {
	return e.Cause
}

type ConfigurationError struct{ PulseError }
type TransportError struct{ PulseError }
type DatabaseError struct{ PulseError }
type ValidationError struct{ PulseError }
type MalformedMessageError struct{ PulseError }

// UpstreamError is a non-success HTTP answer from a remote API.
type UpstreamError struct {
	PulseError
	StatusCode int
}

// -----------------------------------------------------------------------------

func NewTransportError(message string, cause error) error {
	return &TransportError{PulseError{Message: message, Cause: cause}}
}

func NewDatabaseError(message string, cause error) error {
	return &DatabaseError{PulseError{Message: message, Cause: cause}}
}

func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{PulseError{Message: fmt.Sprintf(format, args...)}}
}

func NewMalformedMessageError(message string, cause error) error {
	return &MalformedMessageError{PulseError{Message: message, Cause: cause}}
}

func NewUpstreamError(statusCode int, url string) error {
	return &UpstreamError{
		PulseError: PulseError{Message: fmt.Sprintf("upstream %s answered %d", url, statusCode)},
		StatusCode: statusCode,
	}
}

// -----------------------------------------------------------------------------

// IsRateLimited reports whether err carries a 403 or 429 upstream status.
func IsRateLimited(err error) bool {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode == 403 || upstream.StatusCode == 429
	}
	return false
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsRetryable reports whether an operation failing with err may succeed when repeated.
// Client-side upstream answers (4xx) and validation problems are final.
func IsRetryable(err error) bool {
	if err == nil || IsValidation(err) || errors.Is(err, context.Canceled) {
		return false
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.StatusCode >= 500
	}
	return true
}

// -----------------------------------------------------------------------------
// Retry Logic
// -----------------------------------------------------------------------------

// RetryWithBackoff runs fn up to maxAttempts times, doubling baseDelay between
// attempts. It stops early on ctx cancellation or a non-retryable error.
func RetryWithBackoff[T any](ctx context.Context, log *logger.Logger, operation string, maxAttempts int, baseDelay time.Duration, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}

		lastErr = err
		if attempt == maxAttempts-1 || !IsRetryable(err) {
			break
		}

		delay := baseDelay * (1 << attempt)
		if log != nil {
			log.Warning("Attempt %d/%d failed for %s: %v. Retrying in %v", attempt+1, maxAttempts, operation, err, delay)
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, lastErr
}
