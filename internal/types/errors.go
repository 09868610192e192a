package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a namespaced error code for engine errors.
type ErrorCode string

// Configuration error codes
const (
	CONFIG_LOAD_FAILED       ErrorCode = "CONFIG_LOAD_FAILED"
	CONFIG_PARSE_FAILED      ErrorCode = "CONFIG_PARSE_FAILED"
	CONFIG_VALIDATION_FAILED ErrorCode = "CONFIG_VALIDATION_FAILED"
)

// Store error codes
const (
	STORE_OPEN_FAILED      ErrorCode = "STORE_OPEN_FAILED"
	STORE_MIGRATION_FAILED ErrorCode = "STORE_MIGRATION_FAILED"
	STORE_QUERY_FAILED     ErrorCode = "STORE_QUERY_FAILED"
	STORE_NOT_FOUND        ErrorCode = "STORE_NOT_FOUND"
	STORE_VERSION_CONFLICT ErrorCode = "STORE_VERSION_CONFLICT"
)

// Pipeline error codes
const (
	PIPELINE_STAGE_FAILED      ErrorCode = "PIPELINE_STAGE_FAILED"
	PIPELINE_NO_INTENT         ErrorCode = "PIPELINE_NO_INTENT"
	PIPELINE_NO_SNAPSHOT       ErrorCode = "PIPELINE_NO_SNAPSHOT"
	PIPELINE_RETRIES_EXHAUSTED ErrorCode = "PIPELINE_RETRIES_EXHAUSTED"
)

// Queue error codes
const (
	QUEUE_CLOSED        ErrorCode = "QUEUE_CLOSED"
	QUEUE_JOB_NOT_FOUND ErrorCode = "QUEUE_JOB_NOT_FOUND"
	QUEUE_JOB_TIMEOUT   ErrorCode = "QUEUE_JOB_TIMEOUT"
	QUEUE_JOB_REVOKED   ErrorCode = "QUEUE_JOB_REVOKED"
)

// Tool error codes
const (
	TOOL_NOT_FOUND   ErrorCode = "TOOL_NOT_FOUND"
	TOOL_CALL_FAILED ErrorCode = "TOOL_CALL_FAILED"
	TOOL_BYPASSED    ErrorCode = "TOOL_BYPASSED"
)

// Plan errors.
const (
	PLAN_VALIDATION_FAILED ErrorCode = "PLAN_VALIDATION_FAILED"
	PLAN_NOT_FOUND         ErrorCode = "PLAN_NOT_FOUND"
)

// INTERNAL_ERROR is the catch-all for faults with no more specific code.
const INTERNAL_ERROR ErrorCode = "INTERNAL_ERROR"

// EngineError represents a structured error with error code, message, and
// optional cause. It supports error wrapping and retryability hints for
// error handling logic.
type EngineError struct {
	Code      ErrorCode
	Message   string
	Retryable bool
	Cause     error
}

// Error implements the error interface, returning a formatted error message.
// Format: "[CODE] message" or "[CODE] message: cause" if cause exists.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause error for error unwrapping chains.
// This enables using errors.Is() and errors.As() with wrapped errors.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error by error code.
// Returns true if target is an EngineError with the same Code.
func (e *EngineError) Is(target error) bool {
	var engineErr *EngineError
	if errors.As(target, &engineErr) {
		return e.Code == engineErr.Code
	}
	return false
}

// NewError creates a new non-retryable EngineError with the given code and message.
func NewError(code ErrorCode, message string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     nil,
	}
}

// NewRetryableError creates a new retryable EngineError with the given code
// and message. Use this for transient errors that may succeed on retry
// (e.g., network timeouts).
func NewRetryableError(code ErrorCode, message string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Retryable: true,
		Cause:     nil,
	}
}

// WrapError creates a new non-retryable EngineError that wraps an existing error.
// The wrapped error is accessible via Unwrap() for error chain inspection.
func WrapError(code ErrorCode, message string, cause error) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}
