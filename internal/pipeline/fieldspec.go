// internal/pipeline/fieldspec.go
package pipeline

import "fmt"

// FieldKind is the semantic type of a required result field.
type FieldKind string

const (
	FieldString      FieldKind = "string"
	FieldStringArray FieldKind = "string_array"
	FieldNumber      FieldKind = "number"
	FieldBool        FieldKind = "bool"
	FieldObject      FieldKind = "object"
)

// DefaultFunc produces the fallback value for a field the backend failed to
// supply. It is invoked once per reconciliation of a missing field.
type DefaultFunc func() interface{}

// Field declares one required top-level field of a structured result.
// Object fields carry a nested spec instead of a default generator; their
// default is built by reconciling an empty document against the nested spec.
type Field struct {
	Name    string
	Kind    FieldKind
	Default DefaultFunc
	Nested  *FieldSpec
}

// FieldSpec is an ordered set of required fields. A spec that compiles is
// guaranteed to reconcile any document without error, so misdeclared fields
// are rejected here rather than at reconcile time.
type FieldSpec struct {
	fields           []Field
	textFallbackField string
}

// NewFieldSpec validates the declared fields and returns an immutable spec.
func NewFieldSpec(fields ...Field) (*FieldSpec, error) {
	if len(fields) == 0 {
		return nil, &SchemaViolationError{Field: "(spec)", Reason: "at least one field is required"}
	}

	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		if f.Name == "" {
			return nil, &SchemaViolationError{Field: "(unnamed)", Reason: "field name must not be empty"}
		}
		if seen[f.Name] {
			return nil, &SchemaViolationError{Field: f.Name, Reason: "duplicate field name"}
		}
		seen[f.Name] = true

		switch f.Kind {
		case FieldString, FieldStringArray, FieldNumber, FieldBool:
			if f.Default == nil {
				return nil, &SchemaViolationError{Field: f.Name, Reason: "default generator is required"}
			}
		case FieldObject:
			if f.Nested == nil {
				return nil, &SchemaViolationError{Field: f.Name, Reason: "nested spec is required for object fields"}
			}
		default:
			return nil, &SchemaViolationError{Field: f.Name, Reason: fmt.Sprintf("unknown field kind %q", f.Kind)}
		}
	}

	out := make([]Field, len(fields))
	copy(out, fields)
	return &FieldSpec{fields: out}, nil
}

// MustFieldSpec panics on a spec error; intended for compile-time-constant
// specs declared in task packages.
func MustFieldSpec(fields ...Field) *FieldSpec {
	spec, err := NewFieldSpec(fields...)
	if err != nil {
		panic(err)
	}
	return spec
}

// WithTextFallback returns a copy of the spec with the plain-text fallback
// policy enabled: a reply with no JSON at all is wrapped into the named
// string field instead of failing the run.
func (s *FieldSpec) WithTextFallback(name string) (*FieldSpec, error) {
	for _, f := range s.fields {
		if f.Name == name {
			if f.Kind != FieldString {
				return nil, &SchemaViolationError{Field: name, Reason: "text fallback field must be a string field"}
			}
			clone := *s
			clone.textFallbackField = name
			return &clone, nil
		}
	}
	return nil, &SchemaViolationError{Field: name, Reason: "text fallback field not declared in spec"}
}

// Fields returns the declared fields in declaration order.
func (s *FieldSpec) Fields() []Field { return s.fields }

// TextFallbackField returns the fallback field name, or "" when the policy
// is disabled.
func (s *FieldSpec) TextFallbackField() string { return s.textFallbackField }

// ==========================
// Field Constructors
// ==========================

// StringField declares a string field with a constant default.
func StringField(name, def string) Field {
	return Field{Name: name, Kind: FieldString, Default: func() interface{} { return def }}
}

// StringArrayField declares a string-array field with a constant default.
func StringArrayField(name string, def ...string) Field {
	return Field{Name: name, Kind: FieldStringArray, Default: func() interface{} {
		out := make([]string, len(def))
		copy(out, def)
		return out
	}}
}

// NumberField declares a numeric field with a constant default.
func NumberField(name string, def float64) Field {
	return Field{Name: name, Kind: FieldNumber, Default: func() interface{} { return def }}
}

// BoolField declares a boolean field with a constant default.
func BoolField(name string, def bool) Field {
	return Field{Name: name, Kind: FieldBool, Default: func() interface{} { return def }}
}

// ObjectField declares a nested-object field reconciled recursively.
func ObjectField(name string, nested *FieldSpec) Field {
	return Field{Name: name, Kind: FieldObject, Nested: nested}
}

// FieldWithGenerator declares a field whose default is computed per call.
func FieldWithGenerator(name string, kind FieldKind, gen DefaultFunc) Field {
	return Field{Name: name, Kind: kind, Default: gen}
}
