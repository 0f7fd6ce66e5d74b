package camunda

import (
	"fmt"
	"time"

	"vm-pathways/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// JobHandler is implemented by every job worker in the service.
type JobHandler interface {
	Handle(client worker.JobClient, job entities.Job)
	GetTaskType() string
}

type WorkerOptions struct {
	MaxJobsActive int
	Timeout       time.Duration
}

// Worker is an open job subscription for one task type.
type Worker struct {
	worker   worker.JobWorker
	logger   logger.Logger
	taskType string
}

// OpenWorker subscribes handler to its task type.
func (c *Client) OpenWorker(handler JobHandler, opts WorkerOptions, log logger.Logger) *Worker {
	taskType := handler.GetTaskType()
	jobWorker := c.client.NewJobWorker().
		JobType(taskType).
		Handler(handler.Handle).
		MaxJobsActive(opts.MaxJobsActive).
		Timeout(opts.Timeout).
		RequestTimeout(c.config.RequestTimeout).
		Name(WorkerName(taskType)).
		Open()

	log.Info("Worker registered with Camunda", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": opts.MaxJobsActive,
		"timeout":       opts.Timeout.String(),
	})

	return &Worker{
		worker:   jobWorker,
		logger:   log,
		taskType: taskType,
	}
}

// WorkerName is the name reported to the broker for taskType.
func WorkerName(taskType string) string {
	return fmt.Sprintf("%s-worker", taskType)
}

// Close stops polling and waits for in-flight jobs to finish.
func (w *Worker) Close() {
	if w == nil || w.worker == nil {
		return
	}
	w.logger.Info("Shutting down worker gracefully", map[string]interface{}{
		"worker": w.taskType,
	})
	w.worker.Close()
	w.worker.AwaitClose()
	w.worker = nil
}
