package intake

// RecordSchemaJSON is the JSON schema for an IntakeRecord as it arrives in job
// variables. It checks types only; completeness is the job of ValidateStep.
// Unknown properties are allowed so older wizard clients keep working.
const RecordSchemaJSON = `{
	"type": "object",
	"properties": {
		"seekingReliefFor":    {"type": ["string", "null"], "maxLength": 2000},
		"previousCannabisUse": {"type": ["string", "null"], "maxLength": 200},
		"takingMedications":   {"type": ["boolean", "null"]},
		"medicationsList":     {"type": ["string", "null"], "maxLength": 2000},
		"selectedSymptoms":    {"type": ["array", "null"], "items": {"type": "string"}},
		"otherSymptom":        {"type": ["string", "null"], "maxLength": 500},
		"symptomSeverity":     {"type": ["string", "null"], "maxLength": 200},
		"consumptionMethods":  {"type": ["array", "null"], "items": {"type": "string"}},
		"usageFrequency":      {"type": ["string", "null"], "maxLength": 200},
		"productTypes":        {"type": ["array", "null"], "items": {"type": "string"}},
		"potencyPreference":   {"type": ["string", "null"], "maxLength": 200},
		"desiredEffects":      {"type": ["array", "null"], "items": {"type": "string"}},
		"effectsToAvoid":      {"type": ["array", "null"], "items": {"type": "string"}},
		"budget":              {"type": ["string", "null"], "maxLength": 200},
		"additionalInfo":      {"type": ["string", "null"], "maxLength": 4000}
	}
}`
