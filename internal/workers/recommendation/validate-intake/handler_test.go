package validateintake

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"vm-pathways/internal/common/camunda"
	"vm-pathways/internal/common/camunda/camundatest"
	"vm-pathways/internal/common/config"
	apperrors "vm-pathways/internal/common/errors"
	"vm-pathways/internal/common/logger"
	"vm-pathways/internal/intake"
	"vm-pathways/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mock Job Helper
// ==========================

func createMockJob(key int64, variables map[string]interface{}) entities.Job {
	variablesJSON, _ := json.Marshal(variables)

	activatedJob := &pb.ActivatedJob{
		Key:                      key,
		Type:                     TaskType,
		ProcessInstanceKey:       key * 10,
		BpmnProcessId:            "intake-process",
		ProcessDefinitionVersion: 1,
		ProcessDefinitionKey:     1,
		ElementId:                "Activity_ValidateIntake",
		ElementInstanceKey:       1,
		CustomHeaders:            "{}",
		Worker:                   "test-worker",
		Retries:                  3,
		Deadline:                 0,
		Variables:                string(variablesJSON),
	}

	return entities.Job{ActivatedJob: activatedJob}
}

func createTestHandler(t *testing.T) *Handler {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		CustomConfig: DefaultConfig(),
		Logger:       logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func createCompleteIntake() models.IntakeRecord {
	return models.IntakeRecord{
		PreviousCannabisUse: "Occasional",
		SelectedSymptoms:    []string{"Anxiety"},
		SymptomSeverity:     "Mild",
		UsageFrequency:      "Daily",
		PotencyPreference:   "Low",
		DesiredEffects:      []string{"Calm"},
	}
}

// ==========================
// Execute Tests
// ==========================

func TestExecute(t *testing.T) {
	h := createTestHandler(t)

	tests := []struct {
		name   string
		record func() models.IntakeRecord
		step   int
		want   Output
	}{
		{
			name:   "complete intake passes every step",
			record: createCompleteIntake,
			want:   Output{Valid: true},
		},
		{
			name:   "empty intake fails at the first step",
			record: func() models.IntakeRecord { return models.IntakeRecord{} },
			want: Output{
				Step:    1,
				Message: intake.StepMessage(models.StepGeneralHealth),
			},
		},
		{
			name: "severity missing fails step two",
			record: func() models.IntakeRecord {
				r := createCompleteIntake()
				r.SymptomSeverity = ""
				return r
			},
			want: Output{
				Step:    2,
				Message: "Please select at least one symptom and indicate severity.",
			},
		},
		{
			name: "single step check ignores other steps",
			record: func() models.IntakeRecord {
				return models.IntakeRecord{DesiredEffects: []string{"Focus"}}
			},
			step: 5,
			want: Output{Valid: true, Step: 5},
		},
		{
			name: "single step check reports that step",
			record: func() models.IntakeRecord {
				return models.IntakeRecord{}
			},
			step: 4,
			want: Output{Step: 4, Message: intake.StepMessage(models.StepProductTypes)},
		},
		{
			name:   "final step always passes",
			record: func() models.IntakeRecord { return models.IntakeRecord{} },
			step:   6,
			want:   Output{Valid: true, Step: 6},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Execute(context.Background(), &Input{Intake: tt.record(), Step: tt.step})
			require.NoError(t, err)
			assert.Equal(t, tt.want, *out)
		})
	}
}

// ==========================
// Handle Tests
// ==========================

func TestHandle_RetriesTransientCompleteFailure(t *testing.T) {
	h := createTestHandler(t)
	h.retry = &camunda.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond}

	client := camundatest.NewJobClient().
		FailCompletions(errors.New("rpc error: code = Unavailable desc = connection refused"))

	h.Handle(client, createMockJob(11, map[string]interface{}{"intake": createCompleteIntake()}))

	assert.Equal(t, 2, client.CompleteAttempts())
	completions := client.Completions()
	require.Len(t, completions, 1)
	assert.Equal(t, int64(11), completions[0].JobKey)
	assert.Equal(t, true, completions[0].Variables["valid"])
	assert.Empty(t, client.ThrownErrors())
}

func TestHandle_InvalidVariablesThrowBPMNError(t *testing.T) {
	h := createTestHandler(t)
	client := camundatest.NewJobClient()

	h.Handle(client, createMockJob(12, map[string]interface{}{"step": "two"}))

	assert.Zero(t, client.CompleteAttempts())
	thrown := client.ThrownErrors()
	require.Len(t, thrown, 1)
	assert.Equal(t, int64(12), thrown[0].JobKey)
	assert.Equal(t, "INTAKE_VALIDATION_FAILED", thrown[0].ErrorCode)
}

// ==========================
// Input Parsing Tests
// ==========================

func TestParseInput(t *testing.T) {
	h := createTestHandler(t)

	in, err := h.parseInput(createMockJob(1, map[string]interface{}{
		"step":   3,
		"intake": map[string]interface{}{"consumptionMethods": []string{"Vape"}},
	}))
	require.NoError(t, err)
	assert.Equal(t, 3, in.Step)
	assert.Equal(t, []string{"Vape"}, in.Intake.ConsumptionMethods)

	in, err = h.parseInput(createMockJob(2, map[string]interface{}{"intake": map[string]interface{}{}}))
	require.NoError(t, err)
	assert.Equal(t, 0, in.Step)
}

func TestParseInput_Rejects(t *testing.T) {
	h := createTestHandler(t)

	tests := []struct {
		name      string
		variables map[string]interface{}
	}{
		{name: "missing intake", variables: map[string]interface{}{"step": 1}},
		{name: "step out of range", variables: map[string]interface{}{"step": 7, "intake": map[string]interface{}{}}},
		{name: "negative step", variables: map[string]interface{}{"step": -1, "intake": map[string]interface{}{}}},
		{name: "fractional step", variables: map[string]interface{}{"step": 1.5, "intake": map[string]interface{}{}}},
		{name: "intake is not an object", variables: map[string]interface{}{"intake": "yes"}},
		{name: "boolean field as string", variables: map[string]interface{}{"intake": map[string]interface{}{"takingMedications": "yes"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.parseInput(createMockJob(1, tt.variables))
			require.Error(t, err)

			stdErr := apperrors.Normalize(err)
			assert.Equal(t, apperrors.ErrCodeIntakeValidationFailed, stdErr.Code)
			assert.Equal(t, "INTAKE_VALIDATION_FAILED", apperrors.ConvertToBPMNError(stdErr).Code)
			assert.Zero(t, apperrors.ConvertToBPMNError(stdErr).Retries)
		})
	}
}

// ==========================
// Config Tests
// ==========================

func TestCreateConfigFromAppConfig(t *testing.T) {
	cfg := createConfigFromAppConfig(&config.Config{
		Workers: map[string]config.WorkerConfig{
			WorkerName: {Enabled: true, MaxJobsActive: 50, Timeout: 2000},
		},
	}, nil)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 50, cfg.MaxJobsActive)
	assert.Equal(t, 2*time.Second, cfg.Timeout)

	assert.Equal(t, DefaultConfig(), createConfigFromAppConfig(nil, nil))
}

func TestNewHandler_InvalidConfig(t *testing.T) {
	_, err := NewHandler(HandlerOptions{CustomConfig: &Config{MaxJobsActive: 1}})
	assert.ErrorContains(t, err, "timeout must be positive")
}

func TestOutputVariables(t *testing.T) {
	out := &Output{Valid: false, Step: 2, Message: "Please select at least one symptom and indicate severity."}
	assert.Equal(t, map[string]interface{}{
		"valid":   false,
		"step":    2,
		"message": "Please select at least one symptom and indicate severity.",
	}, out.Variables())
}
