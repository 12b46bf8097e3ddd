// internal/pipeline/reconciler.go
package pipeline

import "sort"

// ReconciledResult is guaranteed to hold a conforming value for every field
// the spec declares. DegradedFields lists the dotted paths of fields whose
// value came from a default generator rather than the backend.
type ReconciledResult struct {
	Fields         map[string]interface{}
	DegradedFields []string
}

// Degraded reports whether any field was defaulted.
func (r *ReconciledResult) Degraded() bool { return len(r.DegradedFields) > 0 }

// Reconcile completes a candidate document against a field spec. Missing,
// null, or non-conforming fields are replaced by their default generator's
// value; nested object fields are completed field-by-field rather than
// wholesale. Keys the spec does not declare pass through untouched.
//
// Reconcile never fails: spec construction already guaranteed a default for
// every declared field. The input document is not mutated (copy-on-reconcile)
// so it stays intact for diagnostics.
func Reconcile(doc map[string]interface{}, spec *FieldSpec) *ReconciledResult {
	fields, degraded := reconcileObject("", doc, spec)
	sort.Strings(degraded)
	return &ReconciledResult{Fields: fields, DegradedFields: degraded}
}

func reconcileObject(prefix string, doc map[string]interface{}, spec *FieldSpec) (map[string]interface{}, []string) {
	out := make(map[string]interface{}, len(spec.fields))
	var degraded []string

	declared := make(map[string]bool, len(spec.fields))
	for _, f := range spec.fields {
		declared[f.Name] = true
		path := f.Name
		if prefix != "" {
			path = prefix + "." + f.Name
		}

		val, present := doc[f.Name]
		if val == nil {
			present = false
		}

		if f.Kind == FieldObject {
			sub, _ := val.(map[string]interface{})
			if sub == nil {
				sub = map[string]interface{}{}
			}
			nested, nestedDegraded := reconcileObject(path, sub, f.Nested)
			out[f.Name] = nested
			degraded = append(degraded, nestedDegraded...)
			continue
		}

		if present {
			if coerced, ok := conform(val, f.Kind); ok {
				out[f.Name] = coerced
				continue
			}
		}

		out[f.Name] = f.Default()
		degraded = append(degraded, path)
	}

	// Undeclared keys pass through so backend extras stay visible.
	for k, v := range doc {
		if !declared[k] {
			out[k] = v
		}
	}

	return out, degraded
}

// conform checks that a document value matches the declared semantic kind,
// normalizing JSON decoding artifacts (float64 numbers, []interface{}
// arrays) along the way.
func conform(val interface{}, kind FieldKind) (interface{}, bool) {
	switch kind {
	case FieldString:
		s, ok := val.(string)
		return s, ok

	case FieldStringArray:
		switch arr := val.(type) {
		case []string:
			out := make([]string, len(arr))
			copy(out, arr)
			return out, true
		case []interface{}:
			out := make([]string, 0, len(arr))
			for _, elem := range arr {
				s, ok := elem.(string)
				if !ok {
					return nil, false
				}
				out = append(out, s)
			}
			return out, true
		}
		return nil, false

	case FieldNumber:
		switch n := val.(type) {
		case float64:
			return n, true
		case int:
			return float64(n), true
		case int64:
			return float64(n), true
		}
		return nil, false

	case FieldBool:
		b, ok := val.(bool)
		return b, ok
	}

	return nil, false
}
