// internal/pipeline/errors.go
package pipeline

import (
	"fmt"
	"net/http"
)

// ==========================
// 1. Transport Errors
// ==========================

// TransportErrorKind classifies failures of a single backend exchange.
type TransportErrorKind string

const (
	TransportTimeout            TransportErrorKind = "TIMEOUT"
	TransportConnectionFailed   TransportErrorKind = "CONNECTION_FAILED"
	TransportBackendUnavailable TransportErrorKind = "BACKEND_UNAVAILABLE"
	TransportBadStatus          TransportErrorKind = "BAD_STATUS"
)

// TransportError is returned by the transport client for any failed exchange.
// StatusCode is only set for TransportBadStatus.
type TransportError struct {
	Kind       TransportErrorKind
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.Kind == TransportBadStatus:
		return fmt.Sprintf("transport: backend returned status %d", e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("transport: %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("transport: %s", e.Kind)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// Retryable reports whether a subsequent attempt has a reasonable chance of
// succeeding. 4xx statuses are request errors, retrying will not help.
func (e *TransportError) Retryable() bool {
	if e.Kind != TransportBadStatus {
		return true
	}
	return e.StatusCode >= http.StatusInternalServerError
}

// ==========================
// 2. Extraction Errors
// ==========================

// ExtractionErrorKind classifies failures to derive a structured document
// from the raw backend reply.
type ExtractionErrorKind string

const (
	ExtractionNotJSON     ExtractionErrorKind = "NOT_JSON"
	ExtractionUnparseable ExtractionErrorKind = "UNPARSEABLE"
)

// ExtractionError carries the raw reply text forward so that callers with a
// plain-text fallback policy can still use it.
type ExtractionError struct {
	Kind    ExtractionErrorKind
	RawText string
	Err     error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("extraction: %s", e.Kind)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// ==========================
// 3. Spec Errors
// ==========================

// SchemaViolationError reports a field specification that cannot guarantee
// full reconciliation. It is a configuration error raised at spec
// construction time, never during a pipeline run.
type SchemaViolationError struct {
	Field  string
	Reason string
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("field spec: %s: %s", e.Field, e.Reason)
}

// ==========================
// 4. Terminal Failure Kinds
// ==========================

// FailureKind names the terminal failure of a whole pipeline run.
type FailureKind string

const (
	FailureNone             FailureKind = ""
	FailureExhaustedRetries FailureKind = "EXHAUSTED_RETRIES"
	FailureDeadlineExceeded FailureKind = "DEADLINE_EXCEEDED"
	FailureCancelled        FailureKind = "CANCELLED"
	FailureBadStatus        FailureKind = "BAD_STATUS"
	FailureNotJSON          FailureKind = "NOT_JSON"
)

// errorKind renders a compact classification label for attempt records and
// diagnostics, e.g. "BAD_STATUS_503" or "UNPARSEABLE".
func errorKind(err error) string {
	switch e := err.(type) {
	case nil:
		return ""
	case *TransportError:
		if e.Kind == TransportBadStatus {
			return fmt.Sprintf("%s_%d", e.Kind, e.StatusCode)
		}
		return string(e.Kind)
	case *ExtractionError:
		return string(e.Kind)
	default:
		return "UNKNOWN"
	}
}
