// Package errors provides standardized error handling for the structured
// response pipeline and the task layer built on top of it.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeBackendTimeout     ErrorCode = "BACKEND_TIMEOUT"
	ErrCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	ErrCodeBackendBadStatus   ErrorCode = "BACKEND_BAD_STATUS"
	ErrCodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"

	ErrCodeResponseNotJSON     ErrorCode = "RESPONSE_NOT_JSON"
	ErrCodeResponseUnparseable ErrorCode = "RESPONSE_UNPARSEABLE"

	ErrCodeExhaustedRetries ErrorCode = "EXHAUSTED_RETRIES"
	ErrCodeDeadlineExceeded ErrorCode = "DEADLINE_EXCEEDED"
	ErrCodeRequestCancelled ErrorCode = "REQUEST_CANCELLED"

	ErrCodeScenarioValidationFailed ErrorCode = "SCENARIO_VALIDATION_FAILED"
	ErrCodeProtocolValidationFailed ErrorCode = "PROTOCOL_VALIDATION_FAILED"
	ErrCodeInvalidProtocolType      ErrorCode = "INVALID_PROTOCOL_TYPE"

	ErrCodeCacheUnavailable ErrorCode = "CACHE_UNAVAILABLE"
	ErrCodeSpecInvalid      ErrorCode = "FIELD_SPEC_INVALID"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. Error Constructors
// ==========================

// NewBackendTimeoutError creates a retryable backend timeout error.
func NewBackendTimeoutError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendTimeout,
		Message:   "Generation backend timed out",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendUnavailableError creates a retryable backend availability error.
func NewBackendUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendUnavailable,
		Message:   "Generation backend is not reachable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewBackendBadStatusError creates an error for a non-2xx backend reply.
// 5xx statuses are retryable, 4xx statuses are not.
func NewBackendBadStatusError(statusCode int, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeBackendBadStatus,
		Message:   fmt.Sprintf("Generation backend returned status %d", statusCode),
		Details:   details,
		Retryable: statusCode >= 500,
		Metadata:  map[string]interface{}{"statusCode": statusCode},
		Timestamp: time.Now().UTC(),
	}
}

// NewConnectionFailedError creates a retryable connection error.
func NewConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeConnectionFailed,
		Message:   "Connection to generation backend failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewResponseNotJSONError creates a non-retryable extraction error for a
// reply that contains no JSON object at all.
func NewResponseNotJSONError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResponseNotJSON,
		Message:   "Backend reply contained no JSON object",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewResponseUnparseableError creates a retryable extraction error; the
// backend is non-deterministic, so resampling may yield parseable output.
func NewResponseUnparseableError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResponseUnparseable,
		Message:   "Backend reply could not be parsed as JSON",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewExhaustedRetriesError creates a terminal retry-budget error.
func NewExhaustedRetriesError(attempts int, lastErr error) *StandardError {
	details := fmt.Sprintf("attempts: %d", attempts)
	if lastErr != nil {
		details = fmt.Sprintf("attempts: %d, last error: %s", attempts, lastErr.Error())
	}
	return &StandardError{
		Code:      ErrCodeExhaustedRetries,
		Message:   "Retry budget exhausted",
		Details:   details,
		Retryable: false,
		Metadata:  map[string]interface{}{"attempts": attempts},
		Timestamp: time.Now().UTC(),
	}
}

// NewDeadlineExceededError creates a terminal whole-request deadline error.
func NewDeadlineExceededError(elapsed time.Duration) *StandardError {
	return &StandardError{
		Code:      ErrCodeDeadlineExceeded,
		Message:   "Request deadline exceeded",
		Details:   fmt.Sprintf("elapsed: %s", elapsed),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRequestCancelledError creates a terminal cancellation error.
func NewRequestCancelledError() *StandardError {
	return &StandardError{
		Code:      ErrCodeRequestCancelled,
		Message:   "Request was cancelled by the caller",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewScenarioValidationFailedError creates a non-retryable input error.
func NewScenarioValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeScenarioValidationFailed,
		Message:   "Simulation scenario failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewProtocolValidationFailedError creates a non-retryable input error.
func NewProtocolValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeProtocolValidationFailed,
		Message:   "Protocol validation request failed validation",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidProtocolTypeError creates a non-retryable protocol type error.
func NewInvalidProtocolTypeError(protocolType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidProtocolType,
		Message:   "Unsupported protocol type",
		Details:   fmt.Sprintf("protocolType: %s", protocolType),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCacheUnavailableError creates a retryable cache error. Cache failures
// never fail a request, they only disable the cache path.
func NewCacheUnavailableError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCacheUnavailable,
		Message:   "Result cache is not reachable",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSpecInvalidError creates a non-retryable configuration error for a
// field specification that cannot be compiled.
func NewSpecInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSpecInvalid,
		Message:   "Field specification is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 3. Caller-Facing Mapping
// ==========================

// HTTPStatusMapping maps internal error codes to the HTTP status the thin
// serving glue should answer with.
var HTTPStatusMapping = map[ErrorCode]int{
	ErrCodeBackendTimeout:     504,
	ErrCodeBackendUnavailable: 503,
	ErrCodeBackendBadStatus:   502,
	ErrCodeConnectionFailed:   502,

	ErrCodeResponseNotJSON:     502,
	ErrCodeResponseUnparseable: 502,

	ErrCodeExhaustedRetries: 503,
	ErrCodeDeadlineExceeded: 504,
	ErrCodeRequestCancelled: 499,

	ErrCodeScenarioValidationFailed: 422,
	ErrCodeProtocolValidationFailed: 422,
	ErrCodeInvalidProtocolType:      400,

	ErrCodeCacheUnavailable: 503,
	ErrCodeSpecInvalid:      500,
}

// HTTPStatus returns the HTTP status for an error code, defaulting to 500.
func HTTPStatus(code ErrorCode) int {
	if status, exists := HTTPStatusMapping[code]; exists {
		return status
	}
	return 500
}

// ==========================
// 4. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable by default.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeBackendTimeout,
		ErrCodeBackendUnavailable,
		ErrCodeConnectionFailed,
		ErrCodeResponseUnparseable,
		ErrCodeCacheUnavailable:
		return true
	default:
		return false
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "BACKEND") || strings.Contains(codeStr, "CONNECTION"):
		return "TRANSPORT"
	case strings.Contains(codeStr, "RESPONSE"):
		return "EXTRACTION"
	case strings.Contains(codeStr, "RETRIES") || strings.Contains(codeStr, "DEADLINE") || strings.Contains(codeStr, "CANCELLED"):
		return "PIPELINE"
	case strings.Contains(codeStr, "VALIDATION") || strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "SPEC"):
		return "VALIDATION"
	case strings.Contains(codeStr, "CACHE"):
		return "CACHE"
	default:
		return "OTHER"
	}
}
