package generaterecommendation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"vm-pathways/internal/common/camunda"
	"vm-pathways/internal/common/config"
	"vm-pathways/internal/common/database"
	apperrors "vm-pathways/internal/common/errors"
	"vm-pathways/internal/common/logger"
	"vm-pathways/internal/common/metrics"
	"vm-pathways/internal/common/observability"
	"vm-pathways/internal/models"
	"vm-pathways/internal/recommendation"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

const TaskType = "recommendation.generate"

const releaseTimeout = 2 * time.Second

// Generator produces a recommendation, falling back when the assistant fails.
type Generator interface {
	Generate(ctx context.Context, record models.IntakeRecord) (recommendation.Result, error)
}

type Handler struct {
	config       *Config
	logger       logger.Logger
	camunda      *camunda.Client
	retry        *camunda.RetryConfig
	generator    Generator
	guard        *database.InflightGuard
	errorHandler *apperrors.ErrorHandler
	obs          *observability.Observability
	jobWorker    *camunda.Worker
}

type HandlerOptions struct {
	AppConfig     *config.Config
	Camunda       *camunda.Client
	Redis         *redis.Client
	Generator     Generator
	Observability *observability.Observability
	CustomConfig  *Config
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	workerConfig := createConfigFromAppConfig(opts.AppConfig, opts.CustomConfig)

	if err := workerConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", WorkerName, err)
	}
	if opts.Redis == nil {
		return nil, fmt.Errorf("%s requires a redis client", WorkerName)
	}
	if opts.Generator == nil {
		return nil, fmt.Errorf("%s requires a generator", WorkerName)
	}

	var loggerInstance logger.Logger
	if opts.Logger != nil {
		loggerInstance = opts.Logger
	} else {
		loggerInstance = logger.NewStructured("info", "json")
	}

	return &Handler{
		config:       workerConfig,
		logger:       loggerInstance,
		camunda:      opts.Camunda,
		retry:        opts.Camunda.RetryConfig(),
		generator:    opts.Generator,
		guard:        database.NewInflightGuard(opts.Redis, workerConfig.InflightPrefix, workerConfig.InflightTTL),
		errorHandler: apperrors.NewErrorHandler(loggerInstance),
		obs:          opts.Observability,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	ctx, span := h.obs.StartSpan(ctx, "job."+TaskType,
		attribute.Int64("job.key", job.GetKey()),
		attribute.Int64("job.process_instance_key", job.GetProcessInstanceKey()),
	)
	defer span.End()

	h.logger.Info("Processing recommendation request", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
		"worker":             TaskType,
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.failJob(ctx, client, job, err, startTime)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.failJob(ctx, client, job, err, startTime)
		return
	}

	span.SetAttributes(
		attribute.String("intake.id", output.IntakeID),
		attribute.Bool("recommendation.fallback", output.Fallback),
	)
	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	h.obs.RecordJobProcessed(ctx, TaskType, "completed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "completed")
}

// Execute claims the intake, generates the recommendation and releases the claim.
// Assistant failures are not errors: the output carries the fallback and the code.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.IntakeID == "" {
		input.IntakeID = uuid.NewString()
	}

	lease, err := h.guard.Acquire(ctx, input.IntakeID)
	if err != nil {
		if errors.Is(err, database.ErrAlreadyHeld) {
			metrics.RecommendationsRejected.Inc()
			return nil, apperrors.NewRecommendationInProgressError(input.IntakeID)
		}
		return nil, apperrors.NewInflightGuardFailedError(err)
	}
	defer h.release(ctx, lease)

	res, genErr := h.generator.Generate(ctx, input.Intake)
	output := &Output{
		IntakeID:       input.IntakeID,
		Recommendation: res.Recommendation,
		Fallback:       res.Fallback,
	}
	if genErr != nil {
		output.ErrorCode = string(recommendation.ErrorCode(genErr))
		if output.ErrorCode == "" {
			output.ErrorCode = "INTERNAL_ERROR"
		}
		h.logger.Warn("Assistant unavailable, returning fallback recommendation", map[string]interface{}{
			"intakeId":  input.IntakeID,
			"errorCode": output.ErrorCode,
			"error":     genErr.Error(),
			"worker":    TaskType,
		})
	}
	return output, nil
}

// release uses its own deadline so a timed-out job still frees the key.
func (h *Handler) release(ctx context.Context, lease *database.Lease) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	if err := lease.Release(ctx); err != nil {
		h.logger.Warn("Failed to release in-flight key, it will expire", map[string]interface{}{
			"key":    lease.Key,
			"error":  err.Error(),
			"worker": TaskType,
		})
	}
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, apperrors.NewInputParsingFailedError(err)
	}

	result, err := ValidateInput(variables)
	if err != nil {
		return nil, apperrors.NewInputParsingFailedError(err)
	}
	if !result.Valid {
		return nil, apperrors.NewIntakeValidationFailedError(result.Summary())
	}

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		return nil, apperrors.NewInputParsingFailedError(err)
	}
	return &input, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	if err := camunda.CompleteJob(ctx, client, job, output.Variables(), h.retry); err != nil {
		h.logger.Error("Failed to complete job", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
			"worker": TaskType,
		})
		return
	}

	h.logger.Info("Recommendation delivered", map[string]interface{}{
		"jobKey":    job.GetKey(),
		"intakeId":  output.IntakeID,
		"product":   output.Recommendation.Name,
		"fallback":  output.Fallback,
		"errorCode": output.ErrorCode,
		"worker":    TaskType,
	})
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error, startTime time.Time) {
	errorCode := string(apperrors.Normalize(err).Code)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "failed")

	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) Register() error {
	if !h.config.Enabled {
		h.logger.Info("Worker is disabled, skipping registration", map[string]interface{}{
			"worker": TaskType,
		})
		return nil
	}
	if h.camunda == nil {
		return fmt.Errorf("%s: camunda client is not configured", WorkerName)
	}

	h.jobWorker = h.camunda.OpenWorker(h, camunda.WorkerOptions{
		MaxJobsActive: h.config.MaxJobsActive,
		Timeout:       h.config.Timeout,
	}, h.logger)
	return nil
}

func (h *Handler) Close() {
	h.jobWorker.Close()
	h.jobWorker = nil
}

func (h *Handler) HealthCheck(ctx context.Context) error {
	if h.camunda != nil {
		if err := h.camunda.HealthCheck(ctx); err != nil {
			return fmt.Errorf("camunda health check failed: %w", err)
		}
	}
	if err := h.guard.Ping(ctx); err != nil {
		return fmt.Errorf("in-flight guard health check failed: %w", err)
	}
	return nil
}

func (h *Handler) GetTaskType() string {
	return TaskType
}

func (h *Handler) IsEnabled() bool {
	return h.config.Enabled
}

func (h *Handler) GetConfig() *Config {
	return h.config
}

func createConfigFromAppConfig(appConfig *config.Config, customConfig *Config) *Config {
	if customConfig != nil {
		return customConfig
	}

	cfg := DefaultConfig()

	if appConfig != nil {
		if appConfig.Recommendation.InflightTTL > 0 {
			cfg.InflightTTL = config.GetDuration(appConfig.Recommendation.InflightTTL)
		}

		if workerCfg, exists := appConfig.Workers[WorkerName]; exists {
			cfg.Enabled = workerCfg.Enabled
			if workerCfg.MaxJobsActive > 0 {
				cfg.MaxJobsActive = workerCfg.MaxJobsActive
			}
			if workerCfg.Timeout > 0 {
				cfg.Timeout = config.GetDuration(workerCfg.Timeout)
			}
		}
	}

	return cfg
}
