package generaterecommendation

import (
	"fmt"

	"vm-pathways/internal/common/validation"
	"vm-pathways/internal/intake"
)

var inputSchema = validation.MustCompile(fmt.Sprintf(`{
	"type": "object",
	"required": ["intake"],
	"properties": {
		"intakeId": {"type": "string", "maxLength": 128},
		"intake": %s
	}
}`, intake.RecordSchemaJSON))

// ValidateInput checks the job variables against the input schema.
func ValidateInput(variables map[string]interface{}) (*validation.ValidationResult, error) {
	return inputSchema.Validate(variables)
}
