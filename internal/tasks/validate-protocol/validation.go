// internal/tasks/validate-protocol/validation.go
package validateprotocol

import "healthsim-pipeline/internal/common/validation"

func GetInputSchema() validation.Schema {
	return validation.Schema{
		Type:     "object",
		Required: []string{"protocol", "actions"},
		Properties: map[string]validation.Property{
			"protocol": {
				Type:        "string",
				Description: "Clinical protocol to validate against",
				Enum:        []string{"ACLS", "BLS", "PALS", "TRAUMA"},
			},
			"actions": {
				Type:        "array",
				Description: "Ordered actions taken by the trainee",
				Items:       &validation.Property{Type: "string", MinLength: intPtr(1)},
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
