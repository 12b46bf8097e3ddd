// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"

	"healthsim-pipeline/internal/pipeline"

	"github.com/stretchr/testify/assert"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.json")
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRegistry_Bundled(t *testing.T) {
	reg, err := LoadRegistry("../../configs/fieldspec-registry.json")
	assert.NoError(t, err)
	assert.NotEmpty(t, reg.Version)

	entry, ok := reg.Task("simulate-scenario")
	assert.True(t, ok)

	spec, err := entry.Compile()
	assert.NoError(t, err)

	// Reconciling an empty document must yield the documented vital-sign
	// baselines.
	result := pipeline.Reconcile(map[string]interface{}{}, spec)
	state := result.Fields["current_state"].(map[string]interface{})
	vitals := state["vital_signs"].(map[string]interface{})
	assert.Equal(t, float64(72), vitals["heart_rate"])
	assert.Equal(t, float64(16), vitals["respiratory_rate"])
	assert.Equal(t, "36.6", vitals["temperature"])
	assert.Equal(t, "120/80", vitals["blood_pressure"])
}

func TestLoadRegistry_FallbackPolicyCompiled(t *testing.T) {
	reg, err := LoadRegistry("../../configs/fieldspec-registry.json")
	assert.NoError(t, err)

	entry, ok := reg.Task("validate-protocol")
	assert.True(t, ok)

	spec, err := entry.Compile()
	assert.NoError(t, err)
	assert.Equal(t, "analysis", spec.TextFallbackField())
}

func TestTask_UnknownType(t *testing.T) {
	reg := &TaskRegistry{}
	_, ok := reg.Task("nope")
	assert.False(t, ok)
}

func TestCompile_RejectsUnknownKind(t *testing.T) {
	path := writeRegistry(t, `{
		"version": "1",
		"tasks": [{
			"taskType": "broken",
			"fields": [{"name": "x", "kind": "uuid"}]
		}]
	}`)

	reg, err := LoadRegistry(path)
	assert.NoError(t, err)

	entry, _ := reg.Task("broken")
	_, err = entry.Compile()
	assert.ErrorContains(t, err, "unknown kind")
}

func TestCompile_RejectsBadFallbackField(t *testing.T) {
	path := writeRegistry(t, `{
		"version": "1",
		"tasks": [{
			"taskType": "broken",
			"textFallbackField": "score",
			"fields": [{"name": "score", "kind": "number", "default": 0}]
		}]
	}`)

	reg, err := LoadRegistry(path)
	assert.NoError(t, err)

	entry, _ := reg.Task("broken")
	_, err = entry.Compile()
	assert.Error(t, err)
}

func TestLoadRegistry_MissingFile(t *testing.T) {
	_, err := LoadRegistry("/does/not/exist.json")
	assert.Error(t, err)
}
