// internal/models/simulation.go
package models

import "time"

// ProtocolType identifies the clinical protocol a scenario is run or
// validated against.
type ProtocolType string

const (
	ProtocolACLS   ProtocolType = "ACLS"
	ProtocolBLS    ProtocolType = "BLS"
	ProtocolPALS   ProtocolType = "PALS"
	ProtocolTrauma ProtocolType = "TRAUMA"
)

// IsValid reports whether the protocol type is one of the supported set.
func (p ProtocolType) IsValid() bool {
	switch p {
	case ProtocolACLS, ProtocolBLS, ProtocolPALS, ProtocolTrauma:
		return true
	}
	return false
}

// SupportedProtocols lists the protocol types accepted by the validation task.
func SupportedProtocols() []ProtocolType {
	return []ProtocolType{ProtocolACLS, ProtocolBLS, ProtocolPALS, ProtocolTrauma}
}

// SimulationAction is one action taken (or available) at a scenario step.
type SimulationAction struct {
	Action    string `json:"action"`
	Detail    string `json:"detail,omitempty"`
	IsCorrect bool   `json:"is_correct,omitempty"`
}

// SimulationStep is one node of a scenario script.
type SimulationStep struct {
	StepNumber  int                `json:"step_number"`
	Description string             `json:"description"`
	Actions     []SimulationAction `json:"actions,omitempty"`
}

// SimulationRequest describes a scenario advance call.
type SimulationRequest struct {
	SessionID      string                 `json:"session_id,omitempty"`
	Title          string                 `json:"title"`
	Protocol       ProtocolType           `json:"protocol,omitempty"`
	Actors         []string               `json:"actors,omitempty"`
	Steps          []SimulationStep       `json:"steps,omitempty"`
	UserAction     string                 `json:"user_action"`
	PatientContext map[string]interface{} `json:"patient_context,omitempty"`
}

// VitalSigns carries the simulated patient's vitals. String fields keep the
// clinical display format ("120/80", "36.6") rather than parsed numbers.
type VitalSigns struct {
	HeartRate       float64 `json:"heart_rate"`
	RespiratoryRate float64 `json:"respiratory_rate"`
	Temperature     string  `json:"temperature"`
	BloodPressure   string  `json:"blood_pressure"`
}

// CurrentState is the patient snapshot after the latest step.
type CurrentState struct {
	PatientStatus        string     `json:"patient_status"`
	VitalSigns           VitalSigns `json:"vital_signs"`
	CurrentInterventions []string   `json:"current_interventions"`
}

// Feedback grades the user's latest action.
type Feedback struct {
	CorrectActions    []string `json:"correct_actions"`
	Suggestions       []string `json:"suggestions"`
	ProtocolAdherence float64  `json:"protocol_adherence"`
}

// SimulationResponse is the structured result of one scenario advance.
type SimulationResponse struct {
	SessionID      string                 `json:"session_id,omitempty"`
	CurrentState   CurrentState           `json:"current_state"`
	NextSteps      []string               `json:"next_steps"`
	Feedback       Feedback               `json:"feedback"`
	Degraded       bool                   `json:"degraded,omitempty"`
	DegradedFields []string               `json:"degraded_fields,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
	GeneratedAt    time.Time              `json:"generated_at"`
}

// ValidationRequest asks whether a sequence of actions follows a protocol.
type ValidationRequest struct {
	Protocol       ProtocolType           `json:"protocol"`
	Actions        []string               `json:"actions"`
	PatientContext map[string]interface{} `json:"patient_context,omitempty"`
}

// ValidationResponse is the structured result of a protocol check. Analysis
// holds the model's free-text assessment when no structured reply could be
// obtained.
type ValidationResponse struct {
	Protocol       ProtocolType `json:"protocol"`
	IsValid        bool         `json:"is_valid"`
	Score          float64      `json:"score"`
	Feedback       []string     `json:"feedback"`
	References     []string     `json:"references"`
	Analysis       string       `json:"analysis,omitempty"`
	Degraded       bool         `json:"degraded,omitempty"`
	DegradedFields []string     `json:"degraded_fields,omitempty"`
	GeneratedAt    time.Time    `json:"generated_at"`
}

// ModelListing reports the models the backend currently serves.
type ModelListing struct {
	Models    []string  `json:"models"`
	CheckedAt time.Time `json:"checked_at"`
}
