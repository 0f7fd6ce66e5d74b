package recommendation

import (
	"vm-pathways/internal/common/assistant"
	"vm-pathways/internal/common/config"
	"vm-pathways/internal/common/logger"
	"vm-pathways/internal/common/observability"
	"vm-pathways/internal/models"
)

// NewGeneratorFromConfig wires the assistant client, orchestrator and generator from
// the application config.
func NewGeneratorFromConfig(cfg *config.Config, log logger.Logger, obs *observability.Observability) *Generator {
	client := assistant.NewClient(assistant.Config{
		BaseURL:    cfg.Assistant.BaseURL,
		APIKey:     cfg.Assistant.APIKey,
		BetaHeader: cfg.Assistant.BetaHeader,
		Timeout:    config.GetDuration(cfg.Assistant.RequestTimeout),
	})

	orchestrator := NewOrchestrator(OrchestratorOptions{
		API: client,
		Config: OrchestratorConfig{
			AssistantID:  cfg.Assistant.AssistantID,
			PollInterval: config.GetDuration(cfg.Assistant.PollInterval),
			MaxPolls:     cfg.Assistant.MaxPolls,
		},
		Logger:        log,
		Observability: obs,
	})

	return NewGenerator(GeneratorOptions{
		Runner: orchestrator,
		Logger: log,
		Fallback: models.Recommendation{
			Name:        cfg.Recommendation.Fallback.Name,
			Description: cfg.Recommendation.Fallback.Description,
			URL:         cfg.Recommendation.Fallback.URL,
		},
		DefaultName: cfg.Recommendation.DefaultName,
	})
}
