// internal/tasks/simulate-scenario/models.go
package simulatescenario

import "healthsim-pipeline/internal/models"

// structuredResult is the reconciled pipeline output decoded into domain
// types. Field names mirror the result spec.
type structuredResult struct {
	CurrentState models.CurrentState `json:"current_state"`
	NextSteps    []string            `json:"next_steps"`
	Feedback     models.Feedback     `json:"feedback"`
}
