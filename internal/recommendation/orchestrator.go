// Package recommendation turns a completed intake into a product recommendation by
// holding one conversation with the hosted assistant and parsing its answer.
package recommendation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vm-pathways/internal/common/assistant"
	apperrors "vm-pathways/internal/common/errors"
	"vm-pathways/internal/common/logger"
	"vm-pathways/internal/common/metrics"
	"vm-pathways/internal/common/observability"
	"vm-pathways/internal/models"

	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Each orchestration failure wraps exactly one of these.
var (
	ErrSessionCreation   = errors.New("failed to create conversation session")
	ErrMessageSubmission = errors.New("failed to submit prompt")
	ErrRunCreation       = errors.New("failed to start assistant run")
	ErrPoll              = errors.New("failed to poll run status")
	ErrRunFailed         = errors.New("assistant run failed")
	ErrRunTimeout        = errors.New("assistant run did not finish in time")
	ErrNoResponse        = errors.New("no assistant response")
)

const (
	DefaultPollInterval = time.Second
	DefaultMaxPolls     = 60
)

const (
	opCreateThread  = "create_thread"
	opCreateMessage = "create_message"
	opCreateRun     = "create_run"
	opGetRun        = "get_run"
	opListMessages  = "list_messages"
)

// AssistantAPI is the subset of *openai.Client the orchestrator drives.
type AssistantAPI interface {
	CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error)
	CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error)
	CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (openai.Run, error)
	ListMessage(ctx context.Context, threadID string, limit *int, order, after, before, runID *string) (openai.MessagesList, error)
}

type OrchestratorConfig struct {
	AssistantID  string
	PollInterval time.Duration
	MaxPolls     int
}

type OrchestratorOptions struct {
	API           AssistantAPI
	Config        OrchestratorConfig
	Logger        logger.Logger
	Observability *observability.Observability
}

// Orchestrator runs the session/message/run/poll/transcript protocol. It keeps no
// per-request state, so one Orchestrator serves concurrent callers.
type Orchestrator struct {
	api    AssistantAPI
	config OrchestratorConfig
	logger logger.Logger
	obs    *observability.Observability
	tracer trace.Tracer
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	cfg := opts.Config
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxPolls <= 0 {
		cfg.MaxPolls = DefaultMaxPolls
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Orchestrator{
		api:    opts.API,
		config: cfg,
		logger: log,
		obs:    opts.Observability,
		tracer: opts.Observability.Tracer(),
	}
}

// Run sends prompt in a fresh session and returns the assistant's reply text.
func (o *Orchestrator) Run(ctx context.Context, prompt string) (string, error) {
	ctx, span := o.tracer.Start(ctx, "recommendation.orchestrate")
	defer span.End()

	session := &models.ConversationSession{}
	text, err := o.run(ctx, session, prompt)

	span.SetAttributes(
		attribute.String("assistant.thread_id", session.ThreadID),
		attribute.String("assistant.run_id", session.RunID),
		attribute.String("assistant.run_status", string(session.Status)),
		attribute.Int("assistant.polls", session.Polls),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(ErrorCode(err)))
		o.logger.Warn("Assistant conversation failed", map[string]interface{}{
			"errorCode":  string(ErrorCode(err)),
			"error":      err.Error(),
			"threadId":   session.ThreadID,
			"runId":      session.RunID,
			"status":     string(session.Status),
			"polls":      session.Polls,
			"httpStatus": assistant.StatusCode(err),
		})
		return "", err
	}

	o.logger.Debug("Assistant conversation completed", map[string]interface{}{
		"threadId": session.ThreadID,
		"runId":    session.RunID,
		"polls":    session.Polls,
	})
	return text, nil
}

func (o *Orchestrator) run(ctx context.Context, session *models.ConversationSession, prompt string) (string, error) {
	var thread openai.Thread
	err := o.step(ctx, opCreateThread, func(ctx context.Context) (err error) {
		thread, err = o.api.CreateThread(ctx, openai.ThreadRequest{})
		return err
	})
	if err == nil && thread.ID == "" {
		err = assistant.ErrMissingID
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSessionCreation, err)
	}
	session.ThreadID = thread.ID

	// Any 2xx accepts the prompt, including one without a body.
	err = o.step(ctx, opCreateMessage, func(ctx context.Context) error {
		_, err := o.api.CreateMessage(ctx, session.ThreadID, openai.MessageRequest{
			Role:    assistant.RoleUser,
			Content: prompt,
		})
		if assistant.EmptyBody(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMessageSubmission, err)
	}

	var run openai.Run
	err = o.step(ctx, opCreateRun, func(ctx context.Context) (err error) {
		run, err = o.api.CreateRun(ctx, session.ThreadID, openai.RunRequest{AssistantID: o.config.AssistantID})
		return err
	})
	if err == nil && run.ID == "" {
		err = assistant.ErrMissingID
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRunCreation, err)
	}
	session.RunID = run.ID
	session.Status = assistant.RunStatus(run)

	if err := o.poll(ctx, session); err != nil {
		return "", err
	}

	var list openai.MessagesList
	err = o.step(ctx, opListMessages, func(ctx context.Context) (err error) {
		list, err = o.api.ListMessage(ctx, session.ThreadID, nil, nil, nil, nil, nil)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoResponse, err)
	}

	reply, ok := latestAssistantMessage(list.Messages)
	if !ok {
		return "", fmt.Errorf("%w: thread %s has no assistant message", ErrNoResponse, session.ThreadID)
	}
	text, ok := assistant.MessageText(reply)
	if !ok {
		return "", fmt.Errorf("%w: message %s has no text content", ErrNoResponse, reply.ID)
	}
	return text, nil
}

// poll checks the run every PollInterval until it reaches a terminal status, for at
// most MaxPolls checks.
func (o *Orchestrator) poll(ctx context.Context, session *models.ConversationSession) error {
	defer func() {
		metrics.RecommendationRunPolls.Observe(float64(session.Polls))
		o.obs.RecordRunPolls(ctx, session.Polls, string(session.Status))
	}()

	timer := time.NewTimer(o.config.PollInterval)
	defer timer.Stop()

	for session.Polls < o.config.MaxPolls {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrRunTimeout, ctx.Err())
		case <-timer.C:
		}

		var run openai.Run
		err := o.step(ctx, opGetRun, func(ctx context.Context) (err error) {
			run, err = o.api.RetrieveRun(ctx, session.ThreadID, session.RunID)
			return err
		})
		session.Polls++
		if err != nil {
			return fmt.Errorf("%w: %w", ErrPoll, err)
		}
		session.Status = assistant.RunStatus(run)

		switch {
		case session.Status == models.RunStatusCompleted:
			return nil
		case session.Status.IsFailure():
			return fmt.Errorf("%w: run %s ended with status %s%s", ErrRunFailed, session.RunID, session.Status, lastError(run))
		}
		timer.Reset(o.config.PollInterval)
	}

	return fmt.Errorf("%w: run %s still %s after %d polls", ErrRunTimeout, session.RunID, session.Status, session.Polls)
}

// step traces and counts one call to the assistant service.
func (o *Orchestrator) step(ctx context.Context, operation string, call func(ctx context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "assistant."+operation)
	defer span.End()

	start := time.Now()
	err := call(ctx)
	metrics.AssistantRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.AssistantRequests.WithLabelValues(operation, outcome).Inc()
	o.obs.RecordAssistantCall(ctx, operation, outcome)
	return err
}

// latestAssistantMessage returns the most recent assistant message. The provider
// lists messages newest first, so that is the first assistant entry.
func latestAssistantMessage(msgs []openai.Message) (openai.Message, bool) {
	for _, m := range msgs {
		if m.Role == assistant.RoleAssistant {
			return m, true
		}
	}
	return openai.Message{}, false
}

func lastError(run openai.Run) string {
	if run.LastError == nil {
		return ""
	}
	return fmt.Sprintf(" (%s: %s)", run.LastError.Code, run.LastError.Message)
}

// ErrorCode maps an orchestration error to its reporting code. Unrecognized errors
// map to "".
func ErrorCode(err error) apperrors.ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionCreation):
		return apperrors.ErrCodeSessionCreationFailed
	case errors.Is(err, ErrMessageSubmission):
		return apperrors.ErrCodeMessageSubmissionFailed
	case errors.Is(err, ErrRunCreation):
		return apperrors.ErrCodeRunCreationFailed
	case errors.Is(err, ErrPoll):
		return apperrors.ErrCodeRunPollFailed
	case errors.Is(err, ErrRunFailed):
		return apperrors.ErrCodeRunFailed
	case errors.Is(err, ErrRunTimeout):
		return apperrors.ErrCodeRunTimeout
	case errors.Is(err, ErrNoResponse):
		return apperrors.ErrCodeNoAssistantResponse
	default:
		return ""
	}
}
