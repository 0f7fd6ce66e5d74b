package models

// IntakeRecord is the snapshot of the wizard answers handed to the recommendation flow.
// Every field defaults to its zero value; nil and empty slices are equivalent.
type IntakeRecord struct {
	// Step 1
	SeekingReliefFor    string `json:"seekingReliefFor"`
	PreviousCannabisUse string `json:"previousCannabisUse"`
	TakingMedications   bool   `json:"takingMedications"`
	MedicationsList     string `json:"medicationsList"`

	// Step 2
	SelectedSymptoms []string `json:"selectedSymptoms"`
	OtherSymptom     string   `json:"otherSymptom"`
	SymptomSeverity  string   `json:"symptomSeverity"`

	// Step 3
	ConsumptionMethods []string `json:"consumptionMethods"`
	UsageFrequency     string   `json:"usageFrequency"`

	// Step 4
	ProductTypes      []string `json:"productTypes"`
	PotencyPreference string   `json:"potencyPreference"`

	// Step 5
	DesiredEffects []string `json:"desiredEffects"`
	EffectsToAvoid []string `json:"effectsToAvoid"`

	// Step 6
	Budget         string `json:"budget"`
	AdditionalInfo string `json:"additionalInfo"`
}

// OtherSymptomValue is the symptom option that enables the free-text symptom field.
const OtherSymptomValue = "Other"

// HasSymptom reports whether the given symptom was selected.
func (r *IntakeRecord) HasSymptom(symptom string) bool {
	for _, s := range r.SelectedSymptoms {
		if s == symptom {
			return true
		}
	}
	return false
}

// Step identifies one page of the intake wizard.
type Step int

const (
	StepGeneralHealth Step = iota + 1
	StepSymptoms
	StepUsagePreferences
	StepProductTypes
	StepDesiredEffects
	StepAdditionalInfo
)

// TotalSteps is the number of wizard pages.
const TotalSteps = 6

var stepTitles = map[Step]string{
	StepGeneralHealth:    "General Health Context",
	StepSymptoms:         "Specific Symptoms",
	StepUsagePreferences: "Usage Preferences",
	StepProductTypes:     "Product Types",
	StepDesiredEffects:   "Desired Effects",
	StepAdditionalInfo:   "Additional Information",
}

// Title returns the page heading shown by the wizard.
func (s Step) Title() string {
	if t, ok := stepTitles[s]; ok {
		return t
	}
	return ""
}

// Valid reports whether s is a known wizard step.
func (s Step) Valid() bool {
	return s >= StepGeneralHealth && s <= StepAdditionalInfo
}
