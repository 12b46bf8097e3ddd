// internal/tasks/simulate-scenario/validation.go
package simulatescenario

import "healthsim-pipeline/internal/common/validation"

func GetInputSchema() validation.Schema {
	return validation.Schema{
		Type:     "object",
		Required: []string{"title", "user_action"},
		Properties: map[string]validation.Property{
			"session_id": {
				Type:        "string",
				Description: "Client-side session correlation identifier",
				MaxLength:   intPtr(100),
			},
			"title": {
				Type:        "string",
				Description: "Scenario title",
				MinLength:   intPtr(3),
				MaxLength:   intPtr(200),
			},
			"protocol": {
				Type:        "string",
				Description: "Clinical protocol the scenario runs under",
				Enum:        []string{"ACLS", "BLS", "PALS", "TRAUMA"},
			},
			"actors": {
				Type:        "array",
				Description: "Roles present in the scenario",
				Items:       &validation.Property{Type: "string", MinLength: intPtr(1)},
			},
			"steps": {
				Type:        "array",
				Description: "Scenario script steps",
				Items: &validation.Property{
					Type:     "object",
					Required: []string{"step_number", "description"},
					Properties: map[string]validation.Property{
						"step_number": {Type: "integer"},
						"description": {Type: "string", MinLength: intPtr(1)},
						"actions":     {Type: "array"},
					},
				},
			},
			"user_action": {
				Type:        "string",
				Description: "The trainee's latest action",
				MinLength:   intPtr(1),
				MaxLength:   intPtr(2000),
			},
			"patient_context": {
				Type:        "object",
				Description: "Free-form patient background",
			},
		},
		AdditionalProperties: false,
	}
}

func intPtr(i int) *int {
	return &i
}
