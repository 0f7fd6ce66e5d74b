package camunda

import (
	"context"
	"fmt"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// CompleteJob completes job with variables, retrying transient broker failures.
func CompleteJob(
	ctx context.Context,
	client worker.JobClient,
	job entities.Job,
	variables map[string]interface{},
	retry *RetryConfig,
) error {
	request, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromMap(variables)
	if err != nil {
		return fmt.Errorf("build complete command for job %d: %w", job.GetKey(), err)
	}

	_, err = ExecuteWithRetry(ctx, retry, func(ctx context.Context) (interface{}, error) {
		return request.Send(ctx)
	}, "complete job")
	return err
}
