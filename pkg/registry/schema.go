// pkg/registry/schema.go
package registry

// TaskRegistry is the on-disk catalog of task types and the result shape
// each one demands from the backend. Editing the JSON file changes a task's
// required fields and defaults without a rebuild.
type TaskRegistry struct {
	Version     string      `json:"version"`
	LastUpdated string      `json:"lastUpdated"`
	Tasks       []TaskEntry `json:"tasks"`
}

type TaskEntry struct {
	TaskType          string       `json:"taskType"`
	DisplayName       string       `json:"displayName"`
	Description       string       `json:"description"`
	Fields            []FieldEntry `json:"fields"`
	TextFallbackField string       `json:"textFallbackField,omitempty"`
	Timeout           string       `json:"timeout,omitempty"`
	Retries           int          `json:"retries,omitempty"`
	Tags              []string     `json:"tags,omitempty"`
}

// FieldEntry declares one required result field. Kind matches the pipeline
// field kinds: string, string_array, number, bool, object. Object entries
// carry nested fields instead of a default.
type FieldEntry struct {
	Name    string       `json:"name"`
	Kind    string       `json:"kind"`
	Default interface{}  `json:"default,omitempty"`
	Fields  []FieldEntry `json:"fields,omitempty"`
}
