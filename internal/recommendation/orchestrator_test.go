package recommendation

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"vm-pathways/internal/common/assistant"
	"vm-pathways/internal/common/assistant/assistanttest"
	apperrors "vm-pathways/internal/common/errors"
	"vm-pathways/internal/common/logger"
	"vm-pathways/internal/common/observability"
	"vm-pathways/internal/models"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// ==========================
// Test Helpers
// ==========================

// idlessAPI blanks the id returned by one operation.
type idlessAPI struct {
	AssistantAPI
	op string
}

func (a *idlessAPI) CreateThread(ctx context.Context, req openai.ThreadRequest) (openai.Thread, error) {
	thread, err := a.AssistantAPI.CreateThread(ctx, req)
	if a.op == assistanttest.OpCreateThread {
		thread.ID = ""
	}
	return thread, err
}

func (a *idlessAPI) CreateRun(ctx context.Context, threadID string, req openai.RunRequest) (openai.Run, error) {
	run, err := a.AssistantAPI.CreateRun(ctx, threadID, req)
	if a.op == assistanttest.OpCreateRun {
		run.ID = ""
	}
	return run, err
}

func newTestOrchestrator(t *testing.T, srv *assistanttest.Server, maxPolls int) *Orchestrator {
	t.Helper()
	return NewOrchestrator(OrchestratorOptions{
		API: srv.Client(),
		Config: OrchestratorConfig{
			AssistantID:  "asst_test",
			PollInterval: time.Millisecond,
			MaxPolls:     maxPolls,
		},
		Logger: logger.NewTestLogger(t),
	})
}

// ==========================
// Protocol Tests
// ==========================

func TestOrchestrator_Run_Success(t *testing.T) {
	srv := assistanttest.NewServer(t).WithReply(`Try "Sleep Tincture" tonight.`)
	orch := newTestOrchestrator(t, srv, 5)

	text, err := orch.Run(context.Background(), "my prompt")
	require.NoError(t, err)
	assert.Equal(t, `Try "Sleep Tincture" tonight.`, text)

	for _, op := range []string{
		assistanttest.OpCreateThread,
		assistanttest.OpCreateMessage,
		assistanttest.OpCreateRun,
		assistanttest.OpGetRun,
		assistanttest.OpListMessages,
	} {
		assert.Equal(t, 1, srv.Calls(op), op)
	}
	assert.Equal(t, []string{"my prompt"}, srv.Prompts())

	for _, h := range srv.Headers() {
		assert.Equal(t, "Bearer sk-test", h.Get("Authorization"))
		assert.Equal(t, "assistants=v2", h.Get("OpenAI-Beta"))
	}
}

func TestOrchestrator_Run_StepFailures(t *testing.T) {
	tests := []struct {
		op       string
		sentinel error
		code     apperrors.ErrorCode
	}{
		{assistanttest.OpCreateThread, ErrSessionCreation, apperrors.ErrCodeSessionCreationFailed},
		{assistanttest.OpCreateMessage, ErrMessageSubmission, apperrors.ErrCodeMessageSubmissionFailed},
		{assistanttest.OpCreateRun, ErrRunCreation, apperrors.ErrCodeRunCreationFailed},
		{assistanttest.OpGetRun, ErrPoll, apperrors.ErrCodeRunPollFailed},
		{assistanttest.OpListMessages, ErrNoResponse, apperrors.ErrCodeNoAssistantResponse},
	}

	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			srv := assistanttest.NewServer(t).Fail(tt.op, http.StatusInternalServerError)
			orch := newTestOrchestrator(t, srv, 5)

			text, err := orch.Run(context.Background(), "prompt")
			require.Error(t, err)
			assert.Empty(t, text)
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.code, ErrorCode(err))

			var apiErr *openai.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusInternalServerError, assistant.StatusCode(err))
		})
	}
}

func TestOrchestrator_Run_StopsAtTerminalStatus(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []models.RunStatus
		wantPolls int
		wantErr   error
	}{
		{
			name:      "completed on third poll",
			statuses:  []models.RunStatus{models.RunStatusQueued, models.RunStatusInProgress, models.RunStatusCompleted},
			wantPolls: 3,
		},
		{
			name:      "failed on second poll",
			statuses:  []models.RunStatus{models.RunStatusInProgress, models.RunStatusFailed, models.RunStatusCompleted},
			wantPolls: 2,
			wantErr:   ErrRunFailed,
		},
		{
			name:      "requires action keeps polling",
			statuses:  []models.RunStatus{models.RunStatusRequiresAction, models.RunStatusCancelling, models.RunStatusCompleted},
			wantPolls: 3,
		},
		{
			name:      "cancelled is a failure",
			statuses:  []models.RunStatus{models.RunStatusCancelled},
			wantPolls: 1,
			wantErr:   ErrRunFailed,
		},
		{
			name:      "expired is a failure",
			statuses:  []models.RunStatus{models.RunStatusInProgress, models.RunStatusExpired},
			wantPolls: 2,
			wantErr:   ErrRunFailed,
		},
		{
			name:      "incomplete is a failure",
			statuses:  []models.RunStatus{models.RunStatusIncomplete},
			wantPolls: 1,
			wantErr:   ErrRunFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := assistanttest.NewServer(t).WithStatuses(tt.statuses...)
			orch := newTestOrchestrator(t, srv, 10)

			_, err := orch.Run(context.Background(), "prompt")
			assert.Equal(t, tt.wantPolls, srv.Calls(assistanttest.OpGetRun))

			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.Equal(t, 1, srv.Calls(assistanttest.OpListMessages))
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, 0, srv.Calls(assistanttest.OpListMessages))
		})
	}
}

func TestOrchestrator_Run_BoundedPolling(t *testing.T) {
	srv := assistanttest.NewServer(t).WithStatuses(models.RunStatusInProgress)
	orch := newTestOrchestrator(t, srv, 4)

	_, err := orch.Run(context.Background(), "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunTimeout)
	assert.Equal(t, apperrors.ErrCodeRunTimeout, ErrorCode(err))
	assert.Equal(t, 4, srv.Calls(assistanttest.OpGetRun))
	assert.Equal(t, 0, srv.Calls(assistanttest.OpListMessages))
}

func TestOrchestrator_Run_ContextDeadlineWhilePolling(t *testing.T) {
	srv := assistanttest.NewServer(t)
	orch := NewOrchestrator(OrchestratorOptions{
		API:    srv.Client(),
		Config: OrchestratorConfig{AssistantID: "asst_test", PollInterval: time.Hour, MaxPolls: 3},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := orch.Run(ctx, "prompt")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRunTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, srv.Calls(assistanttest.OpGetRun))
}

func TestOrchestrator_Run_NoAssistantMessage(t *testing.T) {
	srv := assistanttest.NewServer(t).WithoutReply()
	orch := newTestOrchestrator(t, srv, 5)

	_, err := orch.Run(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestOrchestrator_Run_NonTextReply(t *testing.T) {
	srv := assistanttest.NewServer(t).WithContent(
		openai.MessageContent{Type: "image_file", ImageFile: &openai.ImageFile{FileID: "file_chart"}},
	)
	orch := newTestOrchestrator(t, srv, 5)

	text, err := orch.Run(context.Background(), "prompt")
	require.Error(t, err)
	assert.Empty(t, text)
	assert.ErrorIs(t, err, ErrNoResponse)
	assert.Equal(t, apperrors.ErrCodeNoAssistantResponse, ErrorCode(err))
}

func TestOrchestrator_Run_EmptyMessageAcknowledgement(t *testing.T) {
	srv := assistanttest.NewServer(t).EmptyAck(assistanttest.OpCreateMessage)
	orch := newTestOrchestrator(t, srv, 5)

	text, err := orch.Run(context.Background(), "my prompt")
	require.NoError(t, err)
	assert.Contains(t, text, "Valley Relief Balm")
	assert.Equal(t, []string{"my prompt"}, srv.Prompts())
	assert.Equal(t, 1, srv.Calls(assistanttest.OpCreateRun))
}

func TestOrchestrator_Run_MissingIDs(t *testing.T) {
	tests := []struct {
		op       string
		sentinel error
	}{
		{assistanttest.OpCreateThread, ErrSessionCreation},
		{assistanttest.OpCreateRun, ErrRunCreation},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			srv := assistanttest.NewServer(t)
			api := &idlessAPI{AssistantAPI: srv.Client(), op: tt.op}
			orch := NewOrchestrator(OrchestratorOptions{
				API:    api,
				Config: OrchestratorConfig{AssistantID: "asst_test", PollInterval: time.Millisecond},
			})

			_, err := orch.Run(context.Background(), "prompt")
			assert.ErrorIs(t, err, tt.sentinel)
			assert.ErrorIs(t, err, assistant.ErrMissingID)
		})
	}
}

func TestOrchestrator_Run_ConcurrentCallersDoNotShareSessions(t *testing.T) {
	srv := assistanttest.NewServer(t).WithReply(`I recommend "Calm Gummies" daily.`)
	orch := newTestOrchestrator(t, srv, 5)

	const callers = 5
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = orch.Run(context.Background(), "prompt")
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, callers, srv.Calls(assistanttest.OpCreateThread))
	assert.Equal(t, callers, srv.Calls(assistanttest.OpCreateRun))
}

func TestOrchestrator_Run_Traces(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	obs, err := observability.New("orchestrator-test",
		observability.WithRegisterer(promclient.NewRegistry()),
		observability.WithSpanProcessor(recorder),
		observability.WithoutGlobal(),
	)
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	srv := assistanttest.NewServer(t).Fail(assistanttest.OpCreateRun, http.StatusBadRequest)
	orch := NewOrchestrator(OrchestratorOptions{
		API:           srv.Client(),
		Config:        OrchestratorConfig{AssistantID: "asst_test", PollInterval: time.Millisecond},
		Observability: obs,
	})

	_, err = orch.Run(context.Background(), "prompt")
	require.ErrorIs(t, err, ErrRunCreation)

	names := make([]string, 0)
	for _, s := range recorder.Ended() {
		names = append(names, s.Name())
	}
	assert.ElementsMatch(t, []string{
		"assistant.create_thread",
		"assistant.create_message",
		"assistant.create_run",
		"recommendation.orchestrate",
	}, names)
}

// ==========================
// Helper Function Tests
// ==========================

func TestLatestAssistantMessage_NewestFirst(t *testing.T) {
	msgs := []openai.Message{
		{ID: "3", Role: assistant.RoleAssistant},
		{ID: "2", Role: assistant.RoleUser},
		{ID: "1", Role: assistant.RoleAssistant},
	}
	m, ok := latestAssistantMessage(msgs)
	require.True(t, ok)
	assert.Equal(t, "3", m.ID)

	_, ok = latestAssistantMessage([]openai.Message{{Role: assistant.RoleUser}})
	assert.False(t, ok)
}

func TestErrorCode_Unknown(t *testing.T) {
	assert.Equal(t, apperrors.ErrorCode(""), ErrorCode(nil))
	assert.Equal(t, apperrors.ErrorCode(""), ErrorCode(errors.New("other")))
}

func TestNewOrchestrator_Defaults(t *testing.T) {
	orch := NewOrchestrator(OrchestratorOptions{})
	assert.Equal(t, DefaultPollInterval, orch.config.PollInterval)
	assert.Equal(t, DefaultMaxPolls, orch.config.MaxPolls)
}
