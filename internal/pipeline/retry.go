// internal/pipeline/retry.go
package pipeline

import (
	"errors"
	"time"
)

// ==========================
// RETRY POLICY
// ==========================

const (
	DefaultMaxAttempts          = 3
	DefaultMaxExtractionRetries = 2
	DefaultBackoffBase          = 500 * time.Millisecond
	DefaultBackoffMax           = 8 * time.Second
)

// RetryPolicy bounds how often and how fast a request is retried.
// Transport attempts and extraction retries are budgeted separately:
// a malformed reply from a healthy backend should not burn the budget
// reserved for outages.
type RetryPolicy struct {
	MaxAttempts          int
	MaxExtractionRetries int
	BackoffBase          time.Duration
	BackoffMax           time.Duration
}

// DefaultRetryPolicy returns the policy used when the caller does not
// configure one.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:          DefaultMaxAttempts,
		MaxExtractionRetries: DefaultMaxExtractionRetries,
		BackoffBase:          DefaultBackoffBase,
		BackoffMax:           DefaultBackoffMax,
	}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.MaxExtractionRetries == 0 {
		p.MaxExtractionRetries = DefaultMaxExtractionRetries
	}
	if p.MaxExtractionRetries < 0 {
		// Negative disables extraction retries entirely.
		p.MaxExtractionRetries = 0
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = DefaultBackoffBase
	}
	if p.BackoffMax <= 0 {
		p.BackoffMax = DefaultBackoffMax
	}
	return p
}

// ==========================
// RETRY CONTROLLER
// ==========================

// RetryDecision tells the orchestrator what to do after a failed attempt.
type RetryDecision struct {
	Retry   bool
	Delay   time.Duration
	Failure FailureKind
}

// RetryController tracks attempt counts for a single request and classifies
// each error as retryable or fatal. It is not safe for concurrent use; the
// orchestrator creates one per Run.
type RetryController struct {
	policy            RetryPolicy
	attempts          int
	extractionRetries int
}

func NewRetryController(policy RetryPolicy) *RetryController {
	return &RetryController{policy: policy.withDefaults()}
}

// Attempts returns the number of attempts recorded so far.
func (c *RetryController) Attempts() int { return c.attempts }

// RecordAttempt marks the start of a transport attempt and returns its
// ordinal (1-based).
func (c *RetryController) RecordAttempt() int {
	c.attempts++
	return c.attempts
}

// Decide classifies the error from the attempt just finished. When Retry is
// true, Delay holds the backoff to sleep before the next attempt. When Retry
// is false, Failure names the terminal failure kind.
func (c *RetryController) Decide(err error) RetryDecision {
	var tErr *TransportError
	if errors.As(err, &tErr) {
		if !tErr.Retryable() {
			return RetryDecision{Failure: FailureBadStatus}
		}
		return c.transportDecision()
	}

	var eErr *ExtractionError
	if errors.As(err, &eErr) {
		switch eErr.Kind {
		case ExtractionNotJSON:
			// No JSON in the reply at all; re-asking rarely helps and the
			// fallback policy (when enabled) is applied before Decide.
			return RetryDecision{Failure: FailureNotJSON}
		case ExtractionUnparseable:
			if c.extractionRetries >= c.policy.MaxExtractionRetries {
				return RetryDecision{Failure: FailureExhaustedRetries}
			}
			c.extractionRetries++
			return c.transportDecision()
		}
	}

	// Unknown error shape: treat as retryable within the attempt budget.
	return c.transportDecision()
}

func (c *RetryController) transportDecision() RetryDecision {
	if c.attempts >= c.policy.MaxAttempts {
		return RetryDecision{Failure: FailureExhaustedRetries}
	}
	return RetryDecision{Retry: true, Delay: c.Backoff(c.attempts)}
}

// Backoff returns the delay before attempt n+1: base * 2^(n-1), capped.
func (c *RetryController) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := c.policy.BackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.policy.BackoffMax {
			return c.policy.BackoffMax
		}
	}
	if delay > c.policy.BackoffMax {
		delay = c.policy.BackoffMax
	}
	return delay
}
