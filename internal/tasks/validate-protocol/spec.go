// internal/tasks/validate-protocol/spec.go
package validateprotocol

import "healthsim-pipeline/internal/pipeline"

// ResultSpec is the compiled-in result shape. The analysis field doubles as
// the plain-text fallback: a reply with no JSON at all is still returned as
// a degraded result carrying the model's prose assessment.
func ResultSpec() *pipeline.FieldSpec {
	base := pipeline.MustFieldSpec(
		pipeline.BoolField("is_valid", false),
		pipeline.NumberField("score", 0),
		pipeline.StringArrayField("feedback"),
		pipeline.StringArrayField("references"),
		pipeline.StringField("analysis", ""),
	)
	spec, err := base.WithTextFallback("analysis")
	if err != nil {
		panic(err)
	}
	return spec
}
