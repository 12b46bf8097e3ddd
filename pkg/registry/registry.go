// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"

	"healthsim-pipeline/internal/pipeline"
)

func LoadRegistry(path string) (*TaskRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg TaskRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("failed to parse task registry: %w", err)
	}
	return &reg, nil
}

// Task looks up an entry by task type.
func (r *TaskRegistry) Task(taskType string) (*TaskEntry, bool) {
	for i := range r.Tasks {
		if r.Tasks[i].TaskType == taskType {
			return &r.Tasks[i], true
		}
	}
	return nil, false
}

// Compile turns a registry entry into a pipeline field spec, applying the
// entry's text fallback policy when declared. Spec errors surface here, at
// startup, not on the request path.
func (e *TaskEntry) Compile() (*pipeline.FieldSpec, error) {
	fields, err := compileFields(e.Fields)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", e.TaskType, err)
	}
	spec, err := pipeline.NewFieldSpec(fields...)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", e.TaskType, err)
	}
	if e.TextFallbackField != "" {
		spec, err = spec.WithTextFallback(e.TextFallbackField)
		if err != nil {
			return nil, fmt.Errorf("task %s: %w", e.TaskType, err)
		}
	}
	return spec, nil
}

func compileFields(entries []FieldEntry) ([]pipeline.Field, error) {
	fields := make([]pipeline.Field, 0, len(entries))
	for _, entry := range entries {
		field, err := compileField(entry)
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
	}
	return fields, nil
}

func compileField(entry FieldEntry) (pipeline.Field, error) {
	switch pipeline.FieldKind(entry.Kind) {
	case pipeline.FieldString:
		def, _ := entry.Default.(string)
		return pipeline.StringField(entry.Name, def), nil

	case pipeline.FieldStringArray:
		var def []string
		if raw, ok := entry.Default.([]interface{}); ok {
			for _, elem := range raw {
				s, ok := elem.(string)
				if !ok {
					return pipeline.Field{}, fmt.Errorf("field %s: array default must contain only strings", entry.Name)
				}
				def = append(def, s)
			}
		}
		return pipeline.StringArrayField(entry.Name, def...), nil

	case pipeline.FieldNumber:
		def, _ := entry.Default.(float64)
		return pipeline.NumberField(entry.Name, def), nil

	case pipeline.FieldBool:
		def, _ := entry.Default.(bool)
		return pipeline.BoolField(entry.Name, def), nil

	case pipeline.FieldObject:
		nestedFields, err := compileFields(entry.Fields)
		if err != nil {
			return pipeline.Field{}, err
		}
		nested, err := pipeline.NewFieldSpec(nestedFields...)
		if err != nil {
			return pipeline.Field{}, fmt.Errorf("field %s: %w", entry.Name, err)
		}
		return pipeline.ObjectField(entry.Name, nested), nil
	}

	return pipeline.Field{}, fmt.Errorf("field %s: unknown kind %q", entry.Name, entry.Kind)
}
