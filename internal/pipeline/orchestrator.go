// internal/pipeline/orchestrator.go
package pipeline

import (
	"context"
	"errors"
	"sort"
	"time"
)

// ==========================
// ORCHESTRATOR
// ==========================

// OrchestratorConfig carries the knobs for a pipeline instance. The zero
// value is usable: default retry policy, no overall deadline, no preflight
// probe.
type OrchestratorConfig struct {
	Policy RetryPolicy

	// RequestDeadline bounds the whole run including backoff sleeps. Zero
	// means the caller's context is the only bound.
	RequestDeadline time.Duration

	// ProbeEnabled makes the first attempt preflight the backend before
	// sending. A failed probe counts as a failed attempt.
	ProbeEnabled bool
}

// Orchestrator drives the send / extract / reconcile loop for one backend.
// It is stateless across runs and safe for concurrent use; per-run state
// lives in the RetryController created inside Run.
type Orchestrator struct {
	transport Transport
	cfg       OrchestratorConfig
}

func NewOrchestrator(transport Transport, cfg OrchestratorConfig) *Orchestrator {
	return &Orchestrator{transport: transport, cfg: cfg}
}

// Run executes one request to completion. It always returns an Outcome and
// never an error: every failure mode is folded into the Outcome's status,
// failure kind, and attempt records.
func (o *Orchestrator) Run(ctx context.Context, req *QueryRequest) *Outcome {
	start := time.Now()
	outcome := &Outcome{RequestID: req.ID}

	runCtx := ctx
	if o.cfg.RequestDeadline > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, o.cfg.RequestDeadline)
		defer cancel()
	}

	controller := NewRetryController(o.cfg.Policy)
	probed := false

	for {
		attempt := controller.RecordAttempt()
		record := AttemptRecord{Attempt: attempt, StartedAt: time.Now()}

		result, err := o.attempt(runCtx, req, &probed)
		record.Latency = time.Since(record.StartedAt)

		if err == nil {
			outcome.Attempts = append(outcome.Attempts, record)
			outcome.Result = result
			if result.Degraded() {
				outcome.Status = StatusDegradedSuccess
			} else {
				outcome.Status = StatusSuccess
			}
			outcome.Elapsed = time.Since(start)
			return outcome
		}

		record.ErrorKind = errorKind(err)

		// Cancellation and the overall deadline are checked before retry
		// classification: neither is a backend fault.
		if errors.Is(err, context.Canceled) {
			record.ErrorKind = string(FailureCancelled)
			outcome.Attempts = append(outcome.Attempts, record)
			return o.fail(outcome, start, FailureCancelled, err)
		}
		if runCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			record.ErrorKind = string(FailureDeadlineExceeded)
			outcome.Attempts = append(outcome.Attempts, record)
			return o.fail(outcome, start, FailureDeadlineExceeded, err)
		}

		decision := controller.Decide(err)
		if !decision.Retry {
			outcome.Attempts = append(outcome.Attempts, record)
			outcome.StatusCode = statusCodeOf(err)
			return o.fail(outcome, start, decision.Failure, err)
		}

		record.NextBackoff = decision.Delay
		outcome.Attempts = append(outcome.Attempts, record)

		if deadline, ok := runCtx.Deadline(); ok && time.Until(deadline) < decision.Delay {
			// Sleeping would outlive the deadline; fail now rather than
			// burning the remaining budget on a wait.
			return o.fail(outcome, start, FailureDeadlineExceeded, err)
		}

		select {
		case <-time.After(decision.Delay):
		case <-runCtx.Done():
			if ctx.Err() == context.Canceled {
				return o.fail(outcome, start, FailureCancelled, runCtx.Err())
			}
			return o.fail(outcome, start, FailureDeadlineExceeded, runCtx.Err())
		}
	}
}

// attempt performs one full send / extract / reconcile cycle.
func (o *Orchestrator) attempt(ctx context.Context, req *QueryRequest, probed *bool) (*ReconciledResult, error) {
	if o.cfg.ProbeEnabled && !*probed {
		if err := o.transport.Probe(ctx); err != nil {
			return nil, err
		}
		*probed = true
	}

	reply, err := o.transport.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	doc, err := Extract(reply.Text)
	if err != nil {
		var eErr *ExtractionError
		if errors.As(err, &eErr) && eErr.Kind == ExtractionNotJSON && req.Spec.TextFallbackField() != "" {
			return fallbackResult(eErr.RawText, req.Spec), nil
		}
		return nil, err
	}

	return Reconcile(doc.Fields, req.Spec), nil
}

// fallbackResult wraps a plain-text reply into the spec's designated
// fallback field. The fallback field is always reported degraded: the
// caller asked for structure and got prose.
func fallbackResult(rawText string, spec *FieldSpec) *ReconciledResult {
	field := spec.TextFallbackField()
	result := Reconcile(map[string]interface{}{field: rawText}, spec)
	for _, d := range result.DegradedFields {
		if d == field {
			return result
		}
	}
	result.DegradedFields = append(result.DegradedFields, field)
	sort.Strings(result.DegradedFields)
	return result
}

func (o *Orchestrator) fail(outcome *Outcome, start time.Time, kind FailureKind, err error) *Outcome {
	outcome.Status = StatusFailure
	outcome.Failure = kind
	outcome.LastErr = err
	outcome.Elapsed = time.Since(start)
	return outcome
}

func statusCodeOf(err error) int {
	var tErr *TransportError
	if errors.As(err, &tErr) {
		return tErr.StatusCode
	}
	return 0
}
