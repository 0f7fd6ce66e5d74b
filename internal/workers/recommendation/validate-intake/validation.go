package validateintake

import (
	"fmt"

	"vm-pathways/internal/common/validation"
	"vm-pathways/internal/intake"
	"vm-pathways/internal/models"
)

var inputSchema = validation.MustCompile(fmt.Sprintf(`{
	"type": "object",
	"required": ["intake"],
	"properties": {
		"step": {"type": ["integer", "null"], "minimum": 0, "maximum": %d},
		"intake": %s
	}
}`, models.TotalSteps, intake.RecordSchemaJSON))

// ValidateInput checks the job variables against the input schema.
func ValidateInput(variables map[string]interface{}) (*validation.ValidationResult, error) {
	return inputSchema.Validate(variables)
}
