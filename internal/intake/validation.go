package intake

import (
	"fmt"
	"strings"

	"vm-pathways/internal/models"
)

// StepError reports the first wizard step whose answers are incomplete.
type StepError struct {
	Step    models.Step
	Message string
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d (%s): %s", e.Step, e.Step.Title(), e.Message)
}

var stepMessages = map[models.Step]string{
	models.StepGeneralHealth:    "Please tell us what you're seeking relief for or your previous cannabis use experience.",
	models.StepSymptoms:         "Please select at least one symptom and indicate severity.",
	models.StepUsagePreferences: "Please select at least one consumption method or usage frequency.",
	models.StepProductTypes:     "Please select at least one product type or potency preference.",
	models.StepDesiredEffects:   "Please select at least one desired effect.",
}

// DefaultStepMessage is used for steps without a dedicated message.
const DefaultStepMessage = "Please complete all required fields."

// StepMessage returns the user-facing message shown when step fails validation.
func StepMessage(step models.Step) string {
	if msg, ok := stepMessages[step]; ok {
		return msg
	}
	return DefaultStepMessage
}

// ValidateStep applies the completeness rule for one wizard step.
// Unknown steps and the final step always pass.
func ValidateStep(r models.IntakeRecord, step models.Step) error {
	var ok bool
	switch step {
	case models.StepGeneralHealth:
		ok = strings.TrimSpace(r.SeekingReliefFor) != "" || r.PreviousCannabisUse != ""
	case models.StepSymptoms:
		ok = len(r.SelectedSymptoms) > 0 && r.SymptomSeverity != ""
	case models.StepUsagePreferences:
		ok = len(r.ConsumptionMethods) > 0 || r.UsageFrequency != ""
	case models.StepProductTypes:
		ok = len(r.ProductTypes) > 0 || r.PotencyPreference != ""
	case models.StepDesiredEffects:
		ok = len(r.DesiredEffects) > 0
	default:
		ok = true
	}
	if ok {
		return nil
	}
	return &StepError{Step: step, Message: StepMessage(step)}
}

// ValidateAll checks every step in wizard order and returns the first failure.
func ValidateAll(r models.IntakeRecord) error {
	for step := models.StepGeneralHealth; step <= models.StepAdditionalInfo; step++ {
		if err := ValidateStep(r, step); err != nil {
			return err
		}
	}
	return nil
}
