// internal/pipeline/reconciler_test.go
package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func vitalsSpec(t *testing.T) *FieldSpec {
	t.Helper()
	return MustFieldSpec(
		StringField("patient_response", "Patient is unresponsive."),
		ObjectField("vital_signs", MustFieldSpec(
			NumberField("heart_rate", 72),
			NumberField("respiratory_rate", 16),
			StringField("temperature", "36.6"),
			StringField("blood_pressure", "120/80"),
		)),
		StringArrayField("recommended_actions", "Reassess the patient"),
	)
}

func TestReconcile_CompleteDocumentIsNotDegraded(t *testing.T) {
	doc := map[string]interface{}{
		"patient_response": "Chest pain, radiating to left arm.",
		"vital_signs": map[string]interface{}{
			"heart_rate":       float64(110),
			"respiratory_rate": float64(22),
			"temperature":      "37.1",
			"blood_pressure":   "90/60",
		},
		"recommended_actions": []interface{}{"Attach monitor", "Obtain IV access"},
	}

	result := Reconcile(doc, vitalsSpec(t))

	assert.Empty(t, result.DegradedFields)
	assert.False(t, result.Degraded())
	assert.Equal(t, "Chest pain, radiating to left arm.", result.Fields["patient_response"])
	assert.Equal(t, []string{"Attach monitor", "Obtain IV access"}, result.Fields["recommended_actions"])
}

func TestReconcile_MissingFieldsAreDefaulted(t *testing.T) {
	doc := map[string]interface{}{
		"patient_response": "Feeling faint.",
	}

	result := Reconcile(doc, vitalsSpec(t))

	assert.Equal(t, []string{
		"recommended_actions",
		"vital_signs.blood_pressure",
		"vital_signs.heart_rate",
		"vital_signs.respiratory_rate",
		"vital_signs.temperature",
	}, result.DegradedFields)

	vitals := result.Fields["vital_signs"].(map[string]interface{})
	assert.Equal(t, float64(72), vitals["heart_rate"])
	assert.Equal(t, "120/80", vitals["blood_pressure"])
}

func TestReconcile_PartialNestedObject(t *testing.T) {
	doc := map[string]interface{}{
		"patient_response": "ok",
		"vital_signs": map[string]interface{}{
			"heart_rate": float64(58),
		},
		"recommended_actions": []interface{}{"Monitor"},
	}

	result := Reconcile(doc, vitalsSpec(t))

	vitals := result.Fields["vital_signs"].(map[string]interface{})
	assert.Equal(t, float64(58), vitals["heart_rate"])
	assert.Equal(t, float64(16), vitals["respiratory_rate"])
	assert.Equal(t, []string{
		"vital_signs.blood_pressure",
		"vital_signs.respiratory_rate",
		"vital_signs.temperature",
	}, result.DegradedFields)
}

func TestReconcile_WrongKindIsReplaced(t *testing.T) {
	tests := []struct {
		name string
		doc  map[string]interface{}
	}{
		{
			name: "number where string expected",
			doc:  map[string]interface{}{"patient_response": float64(42)},
		},
		{
			name: "null value",
			doc:  map[string]interface{}{"patient_response": nil},
		},
		{
			name: "array with non-string element",
			doc: map[string]interface{}{
				"patient_response":    "ok",
				"recommended_actions": []interface{}{"Monitor", float64(7)},
			},
		},
	}

	spec := vitalsSpec(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Reconcile(tt.doc, spec)
			assert.True(t, result.Degraded())
			assert.IsType(t, "", result.Fields["patient_response"])
			assert.IsType(t, []string{}, result.Fields["recommended_actions"])
		})
	}
}

func TestReconcile_UndeclaredKeysPassThrough(t *testing.T) {
	doc := map[string]interface{}{
		"patient_response": "ok",
		"model_notes":      "generated in 1.2s",
	}

	result := Reconcile(doc, vitalsSpec(t))
	assert.Equal(t, "generated in 1.2s", result.Fields["model_notes"])
}

func TestReconcile_InputDocumentNotMutated(t *testing.T) {
	doc := map[string]interface{}{
		"patient_response": "ok",
		"vital_signs":      map[string]interface{}{"heart_rate": float64(80)},
	}

	Reconcile(doc, vitalsSpec(t))

	assert.Len(t, doc, 2)
	assert.Len(t, doc["vital_signs"], 1)
}

func TestReconcile_GeneratorInvokedPerCall(t *testing.T) {
	calls := 0
	spec := MustFieldSpec(FieldWithGenerator("stamp", FieldString, func() interface{} {
		calls++
		return "generated"
	}))

	Reconcile(map[string]interface{}{}, spec)
	Reconcile(map[string]interface{}{}, spec)
	assert.Equal(t, 2, calls)

	Reconcile(map[string]interface{}{"stamp": "present"}, spec)
	assert.Equal(t, 2, calls)
}

func TestNewFieldSpec_Validation(t *testing.T) {
	tests := []struct {
		name   string
		fields []Field
	}{
		{name: "empty spec", fields: nil},
		{name: "duplicate names", fields: []Field{StringField("a", ""), StringField("a", "")}},
		{name: "missing default", fields: []Field{{Name: "a", Kind: FieldString}}},
		{name: "object without nested spec", fields: []Field{{Name: "a", Kind: FieldObject}}},
		{name: "unknown kind", fields: []Field{{Name: "a", Kind: FieldKind("uuid"), Default: func() interface{} { return nil }}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFieldSpec(tt.fields...)
			var sErr *SchemaViolationError
			assert.ErrorAs(t, err, &sErr)
		})
	}
}

func TestWithTextFallback(t *testing.T) {
	spec := MustFieldSpec(
		StringField("analysis", ""),
		NumberField("score", 0),
	)

	withFallback, err := spec.WithTextFallback("analysis")
	assert.NoError(t, err)
	assert.Equal(t, "analysis", withFallback.TextFallbackField())
	assert.Empty(t, spec.TextFallbackField(), "original spec must stay untouched")

	_, err = spec.WithTextFallback("score")
	assert.Error(t, err, "fallback field must be a string field")

	_, err = spec.WithTextFallback("missing")
	assert.Error(t, err)
}
