// Package camundatest provides an in-memory job client for handler tests.
package camundatest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"google.golang.org/grpc"
)

// Completion is a job completed through the client.
type Completion struct {
	JobKey    int64
	Variables map[string]interface{}
}

// Failure is a job failed through the client.
type Failure struct {
	JobKey       int64
	Retries      int32
	ErrorMessage string
}

// ThrownError is a BPMN error raised through the client.
type ThrownError struct {
	JobKey       int64
	ErrorCode    string
	ErrorMessage string
}

// JobClient records the commands a handler sends and answers them from a script.
// It satisfies worker.JobClient.
type JobClient struct {
	gateway *gateway
}

func NewJobClient() *JobClient {
	return &JobClient{gateway: &gateway{}}
}

// FailCompletions makes the next complete attempts return errs in order.
func (c *JobClient) FailCompletions(errs ...error) *JobClient {
	c.gateway.mu.Lock()
	defer c.gateway.mu.Unlock()
	c.gateway.completeErrs = append(c.gateway.completeErrs, errs...)
	return c
}

func (c *JobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gateway, noRetry)
}

func (c *JobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gateway, noRetry)
}

func (c *JobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gateway, noRetry)
}

// Completions returns the jobs completed successfully.
func (c *JobClient) Completions() []Completion {
	c.gateway.mu.Lock()
	defer c.gateway.mu.Unlock()
	return append([]Completion(nil), c.gateway.completions...)
}

// CompleteAttempts counts every complete request, including rejected ones.
func (c *JobClient) CompleteAttempts() int {
	c.gateway.mu.Lock()
	defer c.gateway.mu.Unlock()
	return c.gateway.completeAttempts
}

func (c *JobClient) Failures() []Failure {
	c.gateway.mu.Lock()
	defer c.gateway.mu.Unlock()
	return append([]Failure(nil), c.gateway.failures...)
}

func (c *JobClient) ThrownErrors() []ThrownError {
	c.gateway.mu.Lock()
	defer c.gateway.mu.Unlock()
	return append([]ThrownError(nil), c.gateway.thrown...)
}

func noRetry(context.Context, error) bool { return false }

// gateway implements the job RPCs. Any other call panics on the nil embedded client.
type gateway struct {
	pb.GatewayClient

	mu               sync.Mutex
	completeErrs     []error
	completeAttempts int
	completions      []Completion
	failures         []Failure
	thrown           []ThrownError
}

func (g *gateway) CompleteJob(_ context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.completeAttempts++
	if len(g.completeErrs) > 0 {
		err := g.completeErrs[0]
		g.completeErrs = g.completeErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	vars := map[string]interface{}{}
	if in.GetVariables() != "" {
		if err := json.Unmarshal([]byte(in.GetVariables()), &vars); err != nil {
			return nil, err
		}
	}
	g.completions = append(g.completions, Completion{JobKey: in.GetJobKey(), Variables: vars})
	return &pb.CompleteJobResponse{}, nil
}

func (g *gateway) FailJob(_ context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = append(g.failures, Failure{JobKey: in.GetJobKey(), Retries: in.GetRetries(), ErrorMessage: in.GetErrorMessage()})
	return &pb.FailJobResponse{}, nil
}

func (g *gateway) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.thrown = append(g.thrown, ThrownError{JobKey: in.GetJobKey(), ErrorCode: in.GetErrorCode(), ErrorMessage: in.GetErrorMessage()})
	return &pb.ThrowErrorResponse{}, nil
}
