// internal/pipeline/extractor_test.go
package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract_CleanObject(t *testing.T) {
	doc, err := Extract(`{"patient_response": "I feel dizzy", "score": 0.9}`)
	assert.NoError(t, err)
	assert.False(t, doc.Repaired)
	assert.Equal(t, "I feel dizzy", doc.Fields["patient_response"])
	assert.Equal(t, 0.9, doc.Fields["score"])
}

func TestExtract_SurroundingProse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{
			name: "leading chatter",
			raw:  "Sure, here is the response you asked for:\n{\"status\": \"ok\"}",
		},
		{
			name: "trailing chatter",
			raw:  "{\"status\": \"ok\"}\nLet me know if you need anything else!",
		},
		{
			name: "fenced with language tag",
			raw:  "```json\n{\"status\": \"ok\"}\n```",
		},
		{
			name: "fenced without language tag",
			raw:  "```\n{\"status\": \"ok\"}\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Extract(tt.raw)
			assert.NoError(t, err)
			assert.Equal(t, "ok", doc.Fields["status"])
		})
	}
}

func TestExtract_TruncatedObjectIsRepaired(t *testing.T) {
	doc, err := Extract(`{"outer": {"inner": "value"`)
	assert.NoError(t, err)
	assert.True(t, doc.Repaired)

	inner, ok := doc.Fields["outer"].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "value", inner["inner"])
}

func TestExtract_NoJSONAtAll(t *testing.T) {
	raw := "I cannot produce structured output for this scenario."
	_, err := Extract(raw)

	var eErr *ExtractionError
	assert.True(t, errors.As(err, &eErr))
	assert.Equal(t, ExtractionNotJSON, eErr.Kind)
	assert.Equal(t, raw, eErr.RawText)
}

func TestExtract_UnparseableCandidate(t *testing.T) {
	_, err := Extract(`{"status": oops, "more": }`)

	var eErr *ExtractionError
	assert.True(t, errors.As(err, &eErr))
	assert.Equal(t, ExtractionUnparseable, eErr.Kind)
	assert.Error(t, eErr.Err)
}

func TestExtract_OutermostBracesWin(t *testing.T) {
	// Two fragments: the slice spans first "{" to last "}", so the
	// combined text must still parse as the outer object.
	doc, err := Extract(`{"a": {"b": 1}, "c": {"d": 2}}`)
	assert.NoError(t, err)
	assert.Contains(t, doc.Fields, "a")
	assert.Contains(t, doc.Fields, "c")
}

func TestExtract_InputNotMutated(t *testing.T) {
	raw := "noise {\"k\": \"v\"} noise"
	before := raw
	_, err := Extract(raw)
	assert.NoError(t, err)
	assert.Equal(t, before, raw)
}
