// internal/pipeline/models.go
package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// Options are the sampling options forwarded to the backend untouched.
type Options struct {
	Temperature float64  `json:"temperature"`
	TopP        float64  `json:"top_p"`
	TopK        int      `json:"top_k"`
	MaxTokens   int      `json:"max_tokens"`
	Stop        []string `json:"stop,omitempty"`
}

// QueryRequest describes one logical call to the backend. It is immutable
// once constructed; build a new one per call.
type QueryRequest struct {
	ID      string
	Model   string
	Prompt  string
	System  string
	Options Options
	Spec    *FieldSpec
}

// NewQueryRequest assigns a correlation ID and returns an immutable request.
func NewQueryRequest(model, prompt, system string, opts Options, spec *FieldSpec) *QueryRequest {
	return &QueryRequest{
		ID:      uuid.New().String(),
		Model:   model,
		Prompt:  prompt,
		System:  system,
		Options: opts,
		Spec:    spec,
	}
}

// RawReply is the unmodified payload of one successful transport exchange.
// It lives only within the pipeline invocation that produced it.
type RawReply struct {
	Text         string
	Latency      time.Duration
	PromptTokens int
	OutputTokens int
	// Metadata carries backend-specific fields (durations, model info)
	// through untouched.
	Metadata map[string]interface{}
}

// AttemptRecord captures one transport attempt for diagnostics. The full
// sequence is attached to the final Outcome; the pipeline itself never logs.
type AttemptRecord struct {
	Attempt     int           `json:"attempt"`
	StartedAt   time.Time     `json:"started_at"`
	Latency     time.Duration `json:"latency"`
	ErrorKind   string        `json:"error_kind,omitempty"`
	NextBackoff time.Duration `json:"next_backoff,omitempty"`
}

// OutcomeStatus is the terminal status of a pipeline run.
type OutcomeStatus string

const (
	StatusSuccess         OutcomeStatus = "SUCCESS"
	StatusDegradedSuccess OutcomeStatus = "DEGRADED_SUCCESS"
	StatusFailure         OutcomeStatus = "FAILURE"
)

// Outcome is the only value a pipeline run ever returns; no error escapes
// the orchestrator's boundary.
type Outcome struct {
	RequestID string
	Status    OutcomeStatus

	// Result is set for Success and DegradedSuccess.
	Result *ReconciledResult

	// Failure diagnostics, set for StatusFailure only.
	Failure    FailureKind
	StatusCode int // set when Failure is FailureBadStatus
	LastErr    error

	Attempts []AttemptRecord
	Elapsed  time.Duration
}

// Succeeded reports whether the run produced a usable result, degraded or not.
func (o *Outcome) Succeeded() bool {
	return o.Status == StatusSuccess || o.Status == StatusDegradedSuccess
}

// DegradedFields returns the defaulted field paths, or nil on failure.
func (o *Outcome) DegradedFields() []string {
	if o.Result == nil {
		return nil
	}
	return o.Result.DegradedFields
}
