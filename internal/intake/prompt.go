// Package intake turns wizard answers into assistant prompts and applies the per-step
// completeness rules the wizard enforces before moving on.
package intake

import (
	"fmt"
	"strings"

	"vm-pathways/internal/models"
)

const (
	notSpecified = "Not specified"
	noneSelected = "None selected"

	promptHeader      = "Please recommend a product based on the following customer preferences:"
	promptInstruction = "Please provide a specific product recommendation with name, description, and URL."
)

// FormatPrompt renders the intake record as the user message sent to the assistant.
// Output depends only on the record.
func FormatPrompt(r models.IntakeRecord) string {
	var b strings.Builder

	b.WriteString(promptHeader)
	b.WriteString("\n\n")

	section(&b, "General Health")
	line(&b, "Seeking relief for", scalar(r.SeekingReliefFor))
	line(&b, "Previous cannabis use", scalar(r.PreviousCannabisUse))
	line(&b, "Taking medications", yesNo(r.TakingMedications))
	if r.TakingMedications {
		line(&b, "Medications", scalar(r.MedicationsList))
	}
	b.WriteString("\n")

	section(&b, "Symptoms")
	line(&b, "Selected symptoms", list(r.SelectedSymptoms))
	if r.HasSymptom(models.OtherSymptomValue) {
		line(&b, "Other symptom", scalar(r.OtherSymptom))
	}
	line(&b, "Symptom severity", scalar(r.SymptomSeverity))
	b.WriteString("\n")

	section(&b, "Usage Preferences")
	line(&b, "Consumption methods", list(r.ConsumptionMethods))
	line(&b, "Usage frequency", scalar(r.UsageFrequency))
	b.WriteString("\n")

	section(&b, "Product Preferences")
	line(&b, "Product types", list(r.ProductTypes))
	line(&b, "Potency preference", scalar(r.PotencyPreference))
	b.WriteString("\n")

	section(&b, "Effects")
	line(&b, "Desired effects", list(r.DesiredEffects))
	line(&b, "Effects to avoid", list(r.EffectsToAvoid))
	b.WriteString("\n")

	section(&b, "Other")
	line(&b, "Budget", scalar(r.Budget))
	line(&b, "Additional info", scalar(r.AdditionalInfo))
	b.WriteString("\n")

	b.WriteString(promptInstruction)
	return b.String()
}

func section(b *strings.Builder, title string) {
	fmt.Fprintf(b, "%s:\n", title)
}

func line(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "- %s: %s\n", label, value)
}

func scalar(v string) string {
	if v == "" {
		return notSpecified
	}
	return v
}

func list(values []string) string {
	if len(values) == 0 {
		return noneSelected
	}
	return strings.Join(values, ", ")
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
