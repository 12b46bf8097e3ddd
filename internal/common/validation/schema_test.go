// internal/common/validation/schema_test.go
package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func requestSchema() Schema {
	min := 1.0
	max := 1.0
	minLen := 1
	return Schema{
		Type:     "object",
		Required: []string{"protocol", "actions"},
		Properties: map[string]Property{
			"protocol": {
				Type: "string",
				Enum: []string{"ACLS", "BLS", "PALS", "TRAUMA"},
			},
			"actions": {
				Type:  "array",
				Items: &Property{Type: "string", MinLength: &minLen},
			},
			"score_hint": {
				Type:    "number",
				Minimum: &min,
				Maximum: &max,
			},
			"patient_context": {
				Type: "object",
				Properties: map[string]Property{
					"age": {Type: "integer"},
				},
			},
		},
	}
}

func TestValidate_ValidPayload(t *testing.T) {
	result := Validate(map[string]interface{}{
		"protocol": "ACLS",
		"actions":  []interface{}{"Start compressions", "Attach defibrillator"},
	}, requestSchema())

	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)
}

func TestValidate_Failures(t *testing.T) {
	tests := []struct {
		name     string
		payload  map[string]interface{}
		wantCode string
	}{
		{
			name:     "missing required field",
			payload:  map[string]interface{}{"protocol": "ACLS"},
			wantCode: "REQUIRED_FIELD_MISSING",
		},
		{
			name: "wrong type",
			payload: map[string]interface{}{
				"protocol": float64(3),
				"actions":  []interface{}{},
			},
			wantCode: "INVALID_TYPE",
		},
		{
			name: "unknown enum value",
			payload: map[string]interface{}{
				"protocol": "NEWBORN",
				"actions":  []interface{}{},
			},
			wantCode: "INVALID_ENUM_VALUE",
		},
		{
			name: "extra field rejected",
			payload: map[string]interface{}{
				"protocol": "BLS",
				"actions":  []interface{}{},
				"debug":    true,
			},
			wantCode: "EXTRA_FIELD",
		},
		{
			name: "number below minimum",
			payload: map[string]interface{}{
				"protocol":   "BLS",
				"actions":    []interface{}{},
				"score_hint": float64(0.2),
			},
			wantCode: "MINIMUM_VIOLATION",
		},
		{
			name: "empty array element",
			payload: map[string]interface{}{
				"protocol": "BLS",
				"actions":  []interface{}{""},
			},
			wantCode: "MIN_LENGTH_VIOLATION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.payload, requestSchema())
			assert.False(t, result.Valid)

			codes := make([]string, 0, len(result.Errors))
			for _, e := range result.Errors {
				codes = append(codes, e.Code)
			}
			assert.Contains(t, codes, tt.wantCode)
		})
	}
}

func TestValidate_NestedObjectErrorsAreDotted(t *testing.T) {
	result := Validate(map[string]interface{}{
		"protocol": "PALS",
		"actions":  []interface{}{},
		"patient_context": map[string]interface{}{
			"age": "seven",
		},
	}, requestSchema())

	assert.False(t, result.Valid)
	assert.True(t, result.HasErrors("patient_context"))
	assert.Equal(t, "patient_context.age", result.Errors[0].Field)
}

func TestResult_GetErrorMessages(t *testing.T) {
	result := Validate(map[string]interface{}{}, requestSchema())
	messages := result.GetErrorMessages()
	assert.Len(t, messages, 2)
	assert.Contains(t, messages[0], "required field missing")
}
