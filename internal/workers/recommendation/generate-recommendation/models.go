package generaterecommendation

import "vm-pathways/internal/models"

type Input struct {
	IntakeID string              `json:"intakeId"`
	Intake   models.IntakeRecord `json:"intake"`
}

type Output struct {
	IntakeID       string                `json:"intakeId"`
	Recommendation models.Recommendation `json:"recommendation"`
	Fallback       bool                  `json:"fallback"`
	ErrorCode      string                `json:"errorCode"`
}

// Variables returns the process variables the job completes with. The url key is
// left out when no link was extracted.
func (o *Output) Variables() map[string]interface{} {
	rec := map[string]interface{}{
		"name":        o.Recommendation.Name,
		"description": o.Recommendation.Description,
	}
	if o.Recommendation.HasURL() {
		rec["url"] = o.Recommendation.URL
	}
	return map[string]interface{}{
		"intakeId":       o.IntakeID,
		"recommendation": rec,
		"fallback":       o.Fallback,
		"errorCode":      o.ErrorCode,
	}
}
