// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"
)

// Schema describes the expected shape of a task's request payload. It is a
// deliberately small subset of JSON Schema: enough to reject malformed task
// input with actionable per-field errors before any backend call is made.
type Schema struct {
	Type                 string              `json:"type"`
	Properties           map[string]Property `json:"properties"`
	Required             []string            `json:"required,omitempty"`
	AdditionalProperties bool                `json:"additionalProperties,omitempty"`
}

type Property struct {
	Type        string              `json:"type"`
	Description string              `json:"description,omitempty"`
	Enum        []string            `json:"enum,omitempty"`
	Minimum     *float64            `json:"minimum,omitempty"`
	Maximum     *float64            `json:"maximum,omitempty"`
	MinLength   *int                `json:"minLength,omitempty"`
	MaxLength   *int                `json:"maxLength,omitempty"`
	Items       *Property           `json:"items,omitempty"`
	Properties  map[string]Property `json:"properties,omitempty"`
	Required    []string            `json:"required,omitempty"`
}

type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Validate checks a decoded payload against the schema.
func Validate(payload map[string]interface{}, schema Schema) *Result {
	errs := []FieldError{}

	for _, required := range schema.Required {
		if _, exists := payload[required]; !exists {
			errs = append(errs, FieldError{
				Field:   required,
				Message: "required field missing",
				Code:    "REQUIRED_FIELD_MISSING",
			})
		}
	}

	for name, value := range payload {
		prop, exists := schema.Properties[name]
		if !exists {
			if !schema.AdditionalProperties {
				errs = append(errs, FieldError{
					Field:   name,
					Message: "field not allowed in schema",
					Code:    "EXTRA_FIELD",
				})
			}
			continue
		}
		errs = append(errs, validateField(name, value, prop)...)
	}

	return &Result{Valid: len(errs) == 0, Errors: errs}
}

func validateField(name string, value interface{}, prop Property) []FieldError {
	if err := checkType(value, prop.Type); err != nil {
		return []FieldError{{Field: name, Message: err.Error(), Code: "INVALID_TYPE"}}
	}

	var errs []FieldError

	if strVal, ok := value.(string); ok {
		if prop.MinLength != nil && len(strVal) < *prop.MinLength {
			errs = append(errs, FieldError{
				Field:   name,
				Message: fmt.Sprintf("value must be at least %d characters", *prop.MinLength),
				Code:    "MIN_LENGTH_VIOLATION",
			})
		}
		if prop.MaxLength != nil && len(strVal) > *prop.MaxLength {
			errs = append(errs, FieldError{
				Field:   name,
				Message: fmt.Sprintf("value must be at most %d characters", *prop.MaxLength),
				Code:    "MAX_LENGTH_VIOLATION",
			})
		}
		if len(prop.Enum) > 0 && !contains(prop.Enum, strVal) {
			errs = append(errs, FieldError{
				Field:   name,
				Message: fmt.Sprintf("value must be one of %v", prop.Enum),
				Code:    "INVALID_ENUM_VALUE",
			})
		}
	}

	if numVal, ok := toNumber(value); ok {
		if prop.Minimum != nil && numVal < *prop.Minimum {
			errs = append(errs, FieldError{
				Field:   name,
				Message: fmt.Sprintf("value must be >= %g", *prop.Minimum),
				Code:    "MINIMUM_VIOLATION",
			})
		}
		if prop.Maximum != nil && numVal > *prop.Maximum {
			errs = append(errs, FieldError{
				Field:   name,
				Message: fmt.Sprintf("value must be <= %g", *prop.Maximum),
				Code:    "MAXIMUM_VIOLATION",
			})
		}
	}

	if arrVal, ok := value.([]interface{}); ok && prop.Items != nil {
		for i, item := range arrVal {
			errs = append(errs, validateField(fmt.Sprintf("%s[%d]", name, i), item, *prop.Items)...)
		}
	}

	if objVal, ok := value.(map[string]interface{}); ok && prop.Properties != nil {
		nested := Validate(objVal, Schema{
			Type:                 "object",
			Properties:           prop.Properties,
			Required:             prop.Required,
			AdditionalProperties: true,
		})
		for _, nErr := range nested.Errors {
			errs = append(errs, FieldError{
				Field:   name + "." + nErr.Field,
				Message: nErr.Message,
				Code:    nErr.Code,
			})
		}
	}

	return errs
}

func checkType(value interface{}, expected string) error {
	switch expected {
	case "string":
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
	case "number":
		if _, ok := toNumber(value); !ok {
			return fmt.Errorf("expected number, got %T", value)
		}
	case "integer":
		n, ok := toNumber(value)
		if !ok || n != float64(int64(n)) {
			return fmt.Errorf("expected integer, got %T", value)
		}
	case "boolean":
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected boolean, got %T", value)
		}
	case "object":
		if _, ok := value.(map[string]interface{}); !ok {
			return fmt.Errorf("expected object, got %T", value)
		}
	case "array":
		if _, ok := value.([]interface{}); !ok {
			return fmt.Errorf("expected array, got %T", value)
		}
	}
	return nil
}

func toNumber(value interface{}) (float64, bool) {
	switch n := value.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

func contains(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

// GetErrorMessages flattens the result into "field: message" strings for
// logging and error metadata.
func (r *Result) GetErrorMessages() []string {
	messages := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors reports whether the field or any of its children failed.
func (r *Result) HasErrors(field string) bool {
	for _, err := range r.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") || strings.HasPrefix(err.Field, field+"[") {
			return true
		}
	}
	return false
}
