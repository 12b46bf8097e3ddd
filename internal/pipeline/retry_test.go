// internal/pipeline/retry_test.go
package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryController_TransportClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantRetry bool
		wantKind  FailureKind
	}{
		{name: "timeout", err: &TransportError{Kind: TransportTimeout}, wantRetry: true},
		{name: "connection failed", err: &TransportError{Kind: TransportConnectionFailed}, wantRetry: true},
		{name: "backend unavailable", err: &TransportError{Kind: TransportBackendUnavailable}, wantRetry: true},
		{name: "status 500", err: &TransportError{Kind: TransportBadStatus, StatusCode: 500}, wantRetry: true},
		{name: "status 503", err: &TransportError{Kind: TransportBadStatus, StatusCode: 503}, wantRetry: true},
		{name: "status 404", err: &TransportError{Kind: TransportBadStatus, StatusCode: 404}, wantRetry: false, wantKind: FailureBadStatus},
		{name: "status 400", err: &TransportError{Kind: TransportBadStatus, StatusCode: 400}, wantRetry: false, wantKind: FailureBadStatus},
		{name: "not json", err: &ExtractionError{Kind: ExtractionNotJSON}, wantRetry: false, wantKind: FailureNotJSON},
		{name: "unparseable", err: &ExtractionError{Kind: ExtractionUnparseable}, wantRetry: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewRetryController(DefaultRetryPolicy())
			c.RecordAttempt()

			decision := c.Decide(tt.err)
			assert.Equal(t, tt.wantRetry, decision.Retry)
			if !tt.wantRetry {
				assert.Equal(t, tt.wantKind, decision.Failure)
			}
		})
	}
}

func TestRetryController_AttemptBudgetExhausted(t *testing.T) {
	c := NewRetryController(RetryPolicy{MaxAttempts: 2})
	err := &TransportError{Kind: TransportTimeout}

	c.RecordAttempt()
	assert.True(t, c.Decide(err).Retry)

	c.RecordAttempt()
	decision := c.Decide(err)
	assert.False(t, decision.Retry)
	assert.Equal(t, FailureExhaustedRetries, decision.Failure)
}

func TestRetryController_ExtractionBudgetIsSeparate(t *testing.T) {
	// Five transport attempts available but only one extraction retry:
	// the second unparseable reply must stop the run early.
	c := NewRetryController(RetryPolicy{MaxAttempts: 5, MaxExtractionRetries: 1})
	err := &ExtractionError{Kind: ExtractionUnparseable}

	c.RecordAttempt()
	assert.True(t, c.Decide(err).Retry)

	c.RecordAttempt()
	decision := c.Decide(err)
	assert.False(t, decision.Retry)
	assert.Equal(t, FailureExhaustedRetries, decision.Failure)
}

func TestRetryController_BackoffDoublesAndCaps(t *testing.T) {
	c := NewRetryController(RetryPolicy{
		MaxAttempts: 10,
		BackoffBase: 500 * time.Millisecond,
		BackoffMax:  3 * time.Second,
	})

	assert.Equal(t, 500*time.Millisecond, c.Backoff(1))
	assert.Equal(t, 1*time.Second, c.Backoff(2))
	assert.Equal(t, 2*time.Second, c.Backoff(3))
	assert.Equal(t, 3*time.Second, c.Backoff(4))
	assert.Equal(t, 3*time.Second, c.Backoff(9))
}

func TestRetryPolicy_Defaults(t *testing.T) {
	p := RetryPolicy{}.withDefaults()
	assert.Equal(t, DefaultMaxAttempts, p.MaxAttempts)
	assert.Equal(t, DefaultBackoffBase, p.BackoffBase)
	assert.Equal(t, DefaultBackoffMax, p.BackoffMax)
}
