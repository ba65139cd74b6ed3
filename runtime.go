package mlgate

import (
	"context"
	"fmt"
	"time"

	"github.com/mlgate/mlgate/internal/idgen"

	"github.com/mlgate/mlgate/extension"
	"github.com/mlgate/mlgate/model"
	"github.com/mlgate/mlgate/runtime/execution"
	apipeline "github.com/mlgate/mlgate/service/action/pipeline"
	"github.com/mlgate/mlgate/service/approval"
	"github.com/mlgate/mlgate/service/dao"
	daopipeline "github.com/mlgate/mlgate/service/dao/pipeline"
	"github.com/mlgate/mlgate/service/event"
	"github.com/mlgate/mlgate/service/messaging"
	"github.com/mlgate/mlgate/service/runner"
	"github.com/mlgate/mlgate/service/scheduler"
)

// Runtime orchestrates pipeline runs: the scheduler advances run state while
// the runner worker pool executes scheduled steps.
type Runtime struct {
	pipelineService *apipeline.Service
	pipelineDAO     *daopipeline.Service
	runDAO          dao.Service[string, execution.Run]
	executionDAO    dao.Service[string, execution.Execution]
	runner          *runner.Service
	scheduler       *scheduler.Service
	approval        approval.Service
	actions         *extension.Actions
	events          *event.Service
	// queue is the shared execution queue (runner inbound)
	queue messaging.Queue[execution.Execution]
}

// LoadPipeline loads a pipeline definition.
func (r *Runtime) LoadPipeline(ctx context.Context, location string) (*model.Pipeline, error) {
	return r.pipelineDAO.Load(ctx, location)
}

// DecodeYAMLPipeline decodes a pipeline definition from raw YAML.
func (r *Runtime) DecodeYAMLPipeline(data []byte) (*model.Pipeline, error) {
	return r.pipelineDAO.DecodeYAML(data)
}

// RunFromContext returns the enclosing run when present, e.g. inside a
// sub-pipeline action.
func (r *Runtime) RunFromContext(ctx context.Context) *execution.Run {
	if parentRun := execution.ContextValue[*execution.Run](ctx); parentRun != nil {
		return parentRun
	}
	return nil
}

// StartRun starts a new run and returns it together with a wait function
// that blocks until the run finishes or the timeout elapses.
func (r *Runtime) StartRun(ctx context.Context, pipeline *model.Pipeline, initialState map[string]interface{}) (*execution.Run, execution.Wait, error) {
	run, err := r.runner.StartRun(ctx, pipeline, initialState)
	if err != nil {
		return nil, nil, err
	}
	wait := func(ctx context.Context, timeout time.Duration) (*execution.RunOutput, error) {
		output, err := r.pipelineService.WaitForRun(ctx, run.ID, int(timeout.Milliseconds()))
		if err != nil {
			return nil, err
		}
		return &execution.RunOutput{
			RunID:     output.RunID,
			State:     output.State,
			Output:    output.Output,
			Errors:    output.Errors,
			TimeTaken: output.TimeTaken,
			Timeout:   output.Timeout,
		}, nil
	}
	return run, wait, nil
}

// Start starts the scheduler and the runner worker pool.
func (r *Runtime) Start(ctx context.Context) error {
	go func() { _ = r.scheduler.Start(ctx) }()
	return r.runner.Start(ctx)
}

// Shutdown stops the scheduler and the runner.
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.scheduler.Shutdown()
	r.runner.Shutdown()
	return nil
}

// Run returns a run by ID.
func (r *Runtime) Run(ctx context.Context, id string) (*execution.Run, error) {
	return r.runDAO.Load(ctx, id)
}

// Runs returns runs matching the provided criteria.
func (r *Runtime) Runs(ctx context.Context, parameter ...*dao.Parameter) ([]*execution.Run, error) {
	return r.runDAO.List(ctx, parameter...)
}

// PauseRun pauses a running run.
func (r *Runtime) PauseRun(ctx context.Context, id string) error {
	return r.runner.PauseRun(ctx, id)
}

// ResumeRun resumes a paused run.
func (r *Runtime) ResumeRun(ctx context.Context, id string) error {
	return r.runner.ResumeRun(ctx, id)
}

// Execution returns a step execution by ID.
func (r *Runtime) Execution(ctx context.Context, id string) (*execution.Execution, error) {
	return r.executionDAO.Load(ctx, id)
}

// Approval returns the approval service.
func (r *Runtime) Approval() approval.Service {
	return r.approval
}

// QueueExecution persists an execution and publishes it onto the shared
// runner queue; semantics (retries, policies, approval) are identical to
// scheduler-originated executions.
func (r *Runtime) QueueExecution(ctx context.Context, exec *execution.Execution) error {
	if exec == nil {
		return fmt.Errorf("execution is nil")
	}
	if exec.ID == "" {
		exec.ID = idgen.New()
	}
	if err := r.executionDAO.Save(ctx, exec); err != nil {
		return err
	}
	return r.queue.Publish(ctx, exec)
}

// ScheduleExecution queues an execution and returns a function that waits
// for its completion.
func (r *Runtime) ScheduleExecution(ctx context.Context, exec *execution.Execution) (func(timeout time.Duration) (*execution.Execution, error), error) {
	if err := r.QueueExecution(ctx, exec); err != nil {
		return nil, err
	}
	return func(timeout time.Duration) (*execution.Execution, error) {
		return r.WaitForExecution(ctx, exec.ID, timeout)
	}, nil
}

// WaitForExecution blocks until the execution reaches a terminal, paused or
// approval state, or the timeout elapses.
func (r *Runtime) WaitForExecution(ctx context.Context, execID string, timeout time.Duration) (*execution.Execution, error) {
	deadline := time.Now().Add(timeout)
	for {
		exec, err := r.executionDAO.Load(ctx, execID)
		if err != nil {
			return nil, err
		}
		switch {
		case exec.State.IsTerminal(), exec.State == execution.StepStatePaused:
			return exec, nil
		case exec.State.IsWaitForApproval():
			// an explicit rejection means the execution will never proceed
			if exec.Approved != nil && !*exec.Approved {
				return exec, nil
			}
		}
		if time.Now().After(deadline) {
			return exec, fmt.Errorf("timeout waiting for execution %q", execID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
