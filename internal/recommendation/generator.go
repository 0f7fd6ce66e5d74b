package recommendation

import (
	"context"

	"vm-pathways/internal/common/logger"
	"vm-pathways/internal/common/metrics"
	"vm-pathways/internal/intake"
	"vm-pathways/internal/models"
)

// Default fallback product returned when the assistant cannot produce a recommendation.
const (
	FallbackName        = "Valley Medicinals Full Spectrum CBD Oil"
	FallbackDescription = "We encountered an issue generating your personalized recommendation. Please try again or contact us for personalized assistance."
	FallbackURL         = "https://example.com/product/full-spectrum-cbd-oil"
)

// DefaultFallback returns the built-in fallback product.
func DefaultFallback() models.Recommendation {
	return models.Recommendation{
		Name:        FallbackName,
		Description: FallbackDescription,
		URL:         FallbackURL,
	}
}

// Runner obtains raw assistant text for a prompt.
type Runner interface {
	Run(ctx context.Context, prompt string) (string, error)
}

// Result is the full outcome of one recommendation request.
type Result struct {
	Prompt         string
	RawText        string
	Recommendation models.Recommendation
	Fallback       bool
}

type GeneratorOptions struct {
	Runner Runner
	Logger logger.Logger
	// Fallback overrides DefaultFallback when its Name is set.
	Fallback models.Recommendation
	// DefaultName replaces DefaultProductName when set.
	DefaultName string
}

// Generator is the caller-facing recommendation operation.
type Generator struct {
	runner      Runner
	logger      logger.Logger
	fallback    models.Recommendation
	defaultName string
}

func NewGenerator(opts GeneratorOptions) *Generator {
	fallback := opts.Fallback
	if fallback.Name == "" {
		fallback = DefaultFallback()
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Generator{
		runner:      opts.Runner,
		logger:      log,
		fallback:    fallback,
		defaultName: opts.DefaultName,
	}
}

// Fallback returns the product used when orchestration fails.
func (g *Generator) Fallback() models.Recommendation {
	return g.fallback
}

// Generate formats the intake, runs the conversation and extracts the result. On
// orchestration failure it returns the fallback recommendation together with the error.
func (g *Generator) Generate(ctx context.Context, record models.IntakeRecord) (Result, error) {
	prompt := intake.FormatPrompt(record)
	res := Result{Prompt: prompt}

	text, err := g.runner.Run(ctx, prompt)
	if err != nil {
		res.Recommendation = g.fallback
		res.Fallback = true
		metrics.RecommendationsGenerated.WithLabelValues("fallback").Inc()
		return res, err
	}

	res.RawText = text
	res.Recommendation = Extract(text)
	if g.defaultName != "" && res.Recommendation.Name == DefaultProductName {
		res.Recommendation.Name = g.defaultName
	}
	metrics.RecommendationsGenerated.WithLabelValues("extracted").Inc()
	return res, nil
}

// GenerateRecommendation never fails: any orchestration error is logged for operators
// and replaced by the fallback product.
func (g *Generator) GenerateRecommendation(ctx context.Context, record models.IntakeRecord) models.Recommendation {
	res, err := g.Generate(ctx, record)
	if err != nil {
		g.logger.Error("Recommendation generation failed, using fallback", map[string]interface{}{
			"errorCode": string(ErrorCode(err)),
			"error":     err.Error(),
			"fallback":  res.Recommendation.Name,
		})
	}
	return res.Recommendation
}
