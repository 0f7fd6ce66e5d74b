package camunda

import (
	"context"
	"errors"
	"testing"
	"time"

	"vm-pathways/internal/common/config"
	apperrors "vm-pathways/internal/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRetry(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries: maxRetries,
		BaseDelay:  time.Millisecond,
		MaxDelay:   2 * time.Millisecond,
	}
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"broken pipe", true},
		{"NOT_FOUND: job 42 not found", false},
		{"invalid argument", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isRetryableZeebeError(errors.New(tt.msg)), tt.msg)
	}
}

func TestMapZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		code apperrors.ErrorCode
	}{
		{"connection refused", "EXTERNAL_SERVICE_ERROR"},
		{"deadline exceeded", "TIMEOUT_ERROR"},
		{"job not found", "BUSINESS_RULE_VIOLATION"},
		{"permission denied", "BUSINESS_RULE_VIOLATION"},
		{"already exists", "BUSINESS_RULE_VIOLATION"},
		{"something odd", "EXTERNAL_SERVICE_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := mapZeebeError(errors.New(tt.msg), "complete_job", 2)
			stdErr := apperrors.Normalize(err)
			assert.Equal(t, tt.code, stdErr.Code)
		})
	}
}

func TestExecuteWithRetry(t *testing.T) {
	t.Run("retries transient errors until success", func(t *testing.T) {
		calls := 0
		result, err := ExecuteWithRetry(context.Background(), testRetry(3), func(context.Context) (interface{}, error) {
			calls++
			if calls < 3 {
				return nil, errors.New("unavailable")
			}
			return "ok", nil
		}, "topology")
		require.NoError(t, err)
		assert.Equal(t, "ok", result)
		assert.Equal(t, 3, calls)
	})

	t.Run("stops on permanent errors", func(t *testing.T) {
		calls := 0
		_, err := ExecuteWithRetry(context.Background(), testRetry(3), func(context.Context) (interface{}, error) {
			calls++
			return nil, errors.New("invalid argument")
		}, "publish_message")
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		_, err := ExecuteWithRetry(context.Background(), testRetry(2), func(context.Context) (interface{}, error) {
			calls++
			return nil, errors.New("timeout")
		}, "complete_job")
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, apperrors.ErrorCode("TIMEOUT_ERROR"), apperrors.Normalize(err).Code)
	})
}

func TestExecuteWithRetry_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	retry := &RetryConfig{MaxRetries: 3, BaseDelay: time.Hour, MaxDelay: time.Hour}

	calls := 0
	_, err := ExecuteWithRetry(ctx, retry, func(context.Context) (interface{}, error) {
		calls++
		cancel()
		return nil, errors.New("unavailable")
	}, "complete job")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestClient_RetryConfig(t *testing.T) {
	var nilClient *Client
	assert.Same(t, DefaultRetryConfig, nilClient.RetryConfig())
	assert.Same(t, DefaultRetryConfig, (&Client{config: &ClientConfig{}}).RetryConfig())

	custom := testRetry(1)
	assert.Same(t, custom, (&Client{config: &ClientConfig{RetryConfig: custom}}).RetryConfig())
}

func TestClientConfigFrom(t *testing.T) {
	cfg := ClientConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", Plaintext: true, RequestTimeout: 5000})
	assert.Equal(t, "zeebe:26500", cfg.GatewayAddress)
	assert.True(t, cfg.UsePlaintextConnection)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, DefaultRetryConfig, cfg.RetryConfig)

	assert.Equal(t, 30*time.Second, ClientConfigFrom(config.CamundaConfig{}).RequestTimeout)
}

func TestWorkerName(t *testing.T) {
	assert.Equal(t, "intake.validate-worker", WorkerName("intake.validate"))
	var w *Worker
	assert.NotPanics(t, w.Close)
}
