// internal/tasks/simulate-scenario/spec.go
package simulatescenario

import "healthsim-pipeline/internal/pipeline"

// ResultSpec is the compiled-in result shape, used when no registry entry
// overrides it. Vital-sign baselines are normal resting adult values so a
// degraded response still renders a plausible patient.
func ResultSpec() *pipeline.FieldSpec {
	return pipeline.MustFieldSpec(
		pipeline.ObjectField("current_state", pipeline.MustFieldSpec(
			pipeline.StringField("patient_status", "Patient status unavailable"),
			pipeline.ObjectField("vital_signs", pipeline.MustFieldSpec(
				pipeline.NumberField("heart_rate", 72),
				pipeline.NumberField("respiratory_rate", 16),
				pipeline.StringField("temperature", "36.6"),
				pipeline.StringField("blood_pressure", "120/80"),
			)),
			pipeline.StringArrayField("current_interventions"),
		)),
		pipeline.StringArrayField("next_steps", "Reassess the patient"),
		pipeline.ObjectField("feedback", pipeline.MustFieldSpec(
			pipeline.StringArrayField("correct_actions"),
			pipeline.StringArrayField("suggestions", "Continue per protocol"),
			pipeline.NumberField("protocol_adherence", 0),
		)),
	)
}
