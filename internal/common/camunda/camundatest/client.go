// Package camundatest provides an in-memory Zeebe job client for handler tests.
package camundatest

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"google.golang.org/grpc"
)

// gateway records job commands. Methods not overridden panic through the nil
// embedded interface, which is fine since handlers only ever complete, fail
// or throw.
type gateway struct {
	pb.GatewayClient

	mu        sync.Mutex
	completed []*pb.CompleteJobRequest
	failed    []*pb.FailJobRequest
	thrown    []*pb.ThrowErrorRequest
	sendErr   error
}

func (g *gateway) CompleteJob(_ context.Context, in *pb.CompleteJobRequest, _ ...grpc.CallOption) (*pb.CompleteJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	g.completed = append(g.completed, in)
	return &pb.CompleteJobResponse{}, nil
}

func (g *gateway) FailJob(_ context.Context, in *pb.FailJobRequest, _ ...grpc.CallOption) (*pb.FailJobResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	g.failed = append(g.failed, in)
	return &pb.FailJobResponse{}, nil
}

func (g *gateway) ThrowError(_ context.Context, in *pb.ThrowErrorRequest, _ ...grpc.CallOption) (*pb.ThrowErrorResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return nil, g.sendErr
	}
	g.thrown = append(g.thrown, in)
	return &pb.ThrowErrorResponse{}, nil
}

// JobClient implements worker.JobClient on top of the recording gateway.
type JobClient struct {
	gw *gateway
}

func NewJobClient() *JobClient {
	return &JobClient{gw: &gateway{}}
}

// FailSends makes every subsequent command return err.
func (c *JobClient) FailSends(err error) {
	c.gw.mu.Lock()
	c.gw.sendErr = err
	c.gw.mu.Unlock()
}

func noRetry(context.Context, error) bool { return false }

func (c *JobClient) NewCompleteJobCommand() commands.CompleteJobCommandStep1 {
	return commands.NewCompleteJobCommand(c.gw, noRetry)
}

func (c *JobClient) NewFailJobCommand() commands.FailJobCommandStep1 {
	return commands.NewFailJobCommand(c.gw, noRetry)
}

func (c *JobClient) NewThrowErrorCommand() commands.ThrowErrorCommandStep1 {
	return commands.NewThrowErrorCommand(c.gw, noRetry)
}

func (c *JobClient) Completed() []*pb.CompleteJobRequest {
	c.gw.mu.Lock()
	defer c.gw.mu.Unlock()
	return append([]*pb.CompleteJobRequest(nil), c.gw.completed...)
}

func (c *JobClient) Failed() []*pb.FailJobRequest {
	c.gw.mu.Lock()
	defer c.gw.mu.Unlock()
	return append([]*pb.FailJobRequest(nil), c.gw.failed...)
}

func (c *JobClient) Thrown() []*pb.ThrowErrorRequest {
	c.gw.mu.Lock()
	defer c.gw.mu.Unlock()
	return append([]*pb.ThrowErrorRequest(nil), c.gw.thrown...)
}

// CompletedVariables decodes the variables of the n-th completed job into out.
func (c *JobClient) CompletedVariables(n int, out interface{}) error {
	completed := c.Completed()
	return json.Unmarshal([]byte(completed[n].Variables), out)
}

// NewJob builds an activated job carrying variables encoded as JSON.
func NewJob(key int64, taskType string, variables interface{}) entities.Job {
	raw, ok := variables.(string)
	if !ok {
		encoded, _ := json.Marshal(variables)
		raw = string(encoded)
	}

	return entities.Job{ActivatedJob: &pb.ActivatedJob{
		Key:                      key,
		Type:                     taskType,
		ProcessInstanceKey:       key * 10,
		BpmnProcessId:            "drclean-process",
		ProcessDefinitionVersion: 1,
		ProcessDefinitionKey:     1,
		ElementId:                "Activity_" + taskType,
		ElementInstanceKey:       1,
		CustomHeaders:            "{}",
		Worker:                   "test-worker",
		Retries:                  3,
		Variables:                raw,
	}}
}
