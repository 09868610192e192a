package types

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// ErrorClass categorizes a provider or job failure for retry and
// fallback decisions. Classes map one-to-one onto the statuses
// surfaced to clients in failed task updates.
type ErrorClass string

const (
	ErrClassRateLimit          ErrorClass = "rate_limit"
	ErrClassTimeout            ErrorClass = "timeout"
	ErrClassAuthentication     ErrorClass = "authentication"
	ErrClassNetworkError       ErrorClass = "network_error"
	ErrClassServiceUnavailable ErrorClass = "service_unavailable"
	ErrClassInvalidResponse    ErrorClass = "invalid_response"
	ErrClassValidation         ErrorClass = "validation_error"
	ErrClassUnknown            ErrorClass = "unknown"
)

// String returns the string representation of ErrorClass.
func (c ErrorClass) String() string {
	return string(c)
}

// IsValid checks if the ErrorClass is a valid value.
func (c ErrorClass) IsValid() bool {
	switch c {
	case ErrClassRateLimit, ErrClassTimeout, ErrClassAuthentication,
		ErrClassNetworkError, ErrClassServiceUnavailable,
		ErrClassInvalidResponse, ErrClassValidation, ErrClassUnknown:
		return true
	default:
		return false
	}
}

// MarshalJSON implements json.Marshaler.
func (c ErrorClass) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(c))
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *ErrorClass) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	class := ErrorClass(str)
	if !class.IsValid() {
		return fmt.Errorf("invalid error class: %s", str)
	}

	*c = class
	return nil
}

// Retryable reports whether a failure of this class may succeed if the
// operation is attempted again. Authentication, validation, and malformed
// response failures will not change on retry.
func (c ErrorClass) Retryable() bool {
	switch c {
	case ErrClassRateLimit, ErrClassTimeout, ErrClassNetworkError, ErrClassServiceUnavailable:
		return true
	default:
		return false
	}
}

// RetryDelay returns the recommended wait before retrying a failure of
// this class. Returns zero for non-retryable classes.
func (c ErrorClass) RetryDelay() time.Duration {
	switch c {
	case ErrClassRateLimit:
		return 60 * time.Second
	case ErrClassTimeout:
		return 30 * time.Second
	case ErrClassNetworkError:
		return 15 * time.Second
	case ErrClassServiceUnavailable:
		return 45 * time.Second
	default:
		return 0
	}
}

// UserMessage returns the user-facing message for a terminal failure of
// this class.
func (c ErrorClass) UserMessage() string {
	switch c {
	case ErrClassRateLimit:
		return "Too many requests. Please wait a moment and try again."
	case ErrClassTimeout:
		return "Request took too long. Try again with a simpler request."
	case ErrClassNetworkError:
		return "Network connection issue. Please check your connection."
	case ErrClassServiceUnavailable:
		return "External service temporarily unavailable. Please try again."
	case ErrClassAuthentication:
		return "Authentication error. Please contact support."
	case ErrClassValidation:
		return "Invalid request. Please check your input."
	default:
		return "An unexpected error occurred. Please try again."
	}
}

// Classify derives an ErrorClass from an arbitrary error. Typed errors
// (context deadlines, net errors) are checked before falling back to
// message heuristics, mirroring the status-code mapping in ClassifyStatus.
func Classify(err error) ErrorClass {
	if err == nil {
		return ErrClassUnknown
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrClassTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ErrClassTimeout
		}
		return ErrClassNetworkError
	}

	var jsonSyntaxErr *json.SyntaxError
	var jsonTypeErr *json.UnmarshalTypeError
	if errors.As(err, &jsonSyntaxErr) || errors.As(err, &jsonTypeErr) {
		return ErrClassInvalidResponse
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429") || (strings.Contains(msg, "rate") && strings.Contains(msg, "limit")):
		return ErrClassRateLimit
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") || strings.Contains(msg, "deadline"):
		return ErrClassTimeout
	case strings.Contains(msg, "401") || strings.Contains(msg, "403") || strings.Contains(msg, "auth"):
		return ErrClassAuthentication
	case strings.Contains(msg, "502") || strings.Contains(msg, "503") || strings.Contains(msg, "unavailable"):
		return ErrClassServiceUnavailable
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network"):
		return ErrClassNetworkError
	case strings.Contains(msg, "json") || strings.Contains(msg, "parse") || strings.Contains(msg, "decode"):
		return ErrClassInvalidResponse
	case strings.Contains(msg, "invalid") || strings.Contains(msg, "validation"):
		return ErrClassValidation
	default:
		return ErrClassUnknown
	}
}

// ClassifyStatus maps an HTTP status code to an ErrorClass.
func ClassifyStatus(code int) ErrorClass {
	switch {
	case code == 429:
		return ErrClassRateLimit
	case code == 401 || code == 403:
		return ErrClassAuthentication
	case code == 408 || code == 504:
		return ErrClassTimeout
	case code == 502 || code == 503:
		return ErrClassServiceUnavailable
	case code >= 500:
		return ErrClassServiceUnavailable
	case code >= 400:
		return ErrClassValidation
	default:
		return ErrClassUnknown
	}
}

// ClassifiedError pairs an error with its classification so callers can
// carry both through Result types without re-deriving the class.
type ClassifiedError struct {
	Class   ErrorClass
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ClassifiedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Class, e.Message)
	}
	return string(e.Class)
}

// Unwrap returns the underlying cause error.
func (e *ClassifiedError) Unwrap() error {
	return e.Cause
}

// NewClassifiedError classifies err and wraps it. Returns nil when err is nil.
func NewClassifiedError(err error) *ClassifiedError {
	if err == nil {
		return nil
	}
	return &ClassifiedError{
		Class:   Classify(err),
		Message: err.Error(),
		Cause:   err,
	}
}
