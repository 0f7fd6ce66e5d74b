package camunda

import (
	"context"
	"errors"
	"testing"

	"vm-pathways/internal/common/camunda/camundatest"
	apperrors "vm-pathways/internal/common/errors"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJob(key int64) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: key, Type: "recommendation.generate", Retries: 3}}
}

func TestCompleteJob(t *testing.T) {
	t.Run("retries a transient broker error", func(t *testing.T) {
		client := camundatest.NewJobClient().
			FailCompletions(errors.New("rpc error: code = Unavailable desc = connection reset"))

		err := CompleteJob(context.Background(), client, testJob(7), map[string]interface{}{"intakeId": "i-1"}, testRetry(3))
		require.NoError(t, err)

		assert.Equal(t, 2, client.CompleteAttempts())
		completions := client.Completions()
		require.Len(t, completions, 1)
		assert.Equal(t, int64(7), completions[0].JobKey)
		assert.Equal(t, "i-1", completions[0].Variables["intakeId"])
	})

	t.Run("does not retry a rejected job", func(t *testing.T) {
		client := camundatest.NewJobClient().
			FailCompletions(errors.New("rpc error: code = NotFound desc = job 7 not found"))

		err := CompleteJob(context.Background(), client, testJob(7), map[string]interface{}{}, testRetry(3))
		require.Error(t, err)

		assert.Equal(t, 1, client.CompleteAttempts())
		assert.Empty(t, client.Completions())
		assert.Equal(t, apperrors.ErrorCode("BUSINESS_RULE_VIOLATION"), apperrors.Normalize(err).Code)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		unavailable := errors.New("unavailable")
		client := camundatest.NewJobClient().FailCompletions(unavailable, unavailable, unavailable)

		err := CompleteJob(context.Background(), client, testJob(7), map[string]interface{}{}, testRetry(1))
		require.Error(t, err)

		assert.Equal(t, 2, client.CompleteAttempts())
		assert.Equal(t, apperrors.ErrorCode("EXTERNAL_SERVICE_ERROR"), apperrors.Normalize(err).Code)
	})
}
