package validateintake

import "vm-pathways/internal/models"

type Input struct {
	Intake models.IntakeRecord `json:"intake"`
	// Step is the wizard page to check; 0 checks every page.
	Step int `json:"step"`
}

type Output struct {
	Valid   bool   `json:"valid"`
	Step    int    `json:"step"`
	Message string `json:"message"`
}

func (o *Output) Variables() map[string]interface{} {
	return map[string]interface{}{
		"valid":   o.Valid,
		"step":    o.Step,
		"message": o.Message,
	}
}
