package runner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mlgate/mlgate/model"
	"github.com/mlgate/mlgate/model/graph"
	"github.com/mlgate/mlgate/model/state"
	"github.com/mlgate/mlgate/runtime/execution"
	execmem "github.com/mlgate/mlgate/service/dao/execution/memory"
	runmem "github.com/mlgate/mlgate/service/dao/run/memory"
	qmem "github.com/mlgate/mlgate/service/messaging/memory"
)

type fakeExecutor struct {
	mu       sync.Mutex
	executed []string
	fail     error
}

func (f *fakeExecutor) Execute(_ context.Context, e *execution.Execution, _ *execution.Run) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.executed = append(f.executed, e.StepID)
	e.Output = map[string]interface{}{"done": true}
	return nil
}

func testPipeline() *model.Pipeline {
	return &model.Pipeline{
		Name: "test-flow",
		Init: state.Parameters{
			{Name: "attempts", Value: 0},
		},
		Steps: &graph.Step{
			ID: "test-flow",
			Steps: []*graph.Step{
				{
					ID:        "test-flow/train",
					Name:      "train",
					Namespace: "train",
					Action: &graph.Action{
						Service: "printer",
						Method:  "print",
						Input:   map[string]interface{}{"message": "training ${attempts}"},
					},
				},
			},
		},
	}
}

func newTestService(t *testing.T, exec *fakeExecutor) (*Service, *qmem.Queue[execution.Execution]) {
	queue := qmem.NewQueue[execution.Execution](qmem.DefaultConfig())
	svc, err := New(
		WithMessageQueue(queue),
		WithExecutor(exec),
		WithRunDAO(runmem.New()),
		WithExecutionDAO(execmem.New()),
		WithWorkers(1),
	)
	assert.NoError(t, err)
	return svc, queue
}

func TestService_StartRun(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, &fakeExecutor{})

	run, err := svc.StartRun(ctx, testPipeline(), map[string]interface{}{"dataset": "housing"})
	assert.NoError(t, err)
	assert.NotNil(t, run)
	assert.Equal(t, execution.StateRunning, run.GetState())
	assert.Equal(t, 1, len(run.Stack))

	assert.NoError(t, svc.PauseRun(ctx, run.ID))
	retrieved, err := svc.GetRun(ctx, run.ID)
	assert.NoError(t, err)
	assert.Equal(t, execution.StatePaused, retrieved.GetState())

	assert.NoError(t, svc.ResumeRun(ctx, run.ID))
	retrieved, err = svc.GetRun(ctx, run.ID)
	assert.NoError(t, err)
	assert.Equal(t, execution.StateRunning, retrieved.GetState())
}

func TestService_ProcessMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec := &fakeExecutor{}
	svc, queue := newTestService(t, exec)
	assert.NoError(t, svc.Start(ctx))
	defer svc.Shutdown()

	pipeline := testPipeline()
	run, err := svc.StartRun(ctx, pipeline, nil)
	assert.NoError(t, err)

	step := pipeline.Steps.Steps[0]
	anExecution := execution.NewExecution(run.ID, nil, step)
	run.Push(anExecution)
	assert.NoError(t, svc.runDAO.Save(ctx, run))
	assert.NoError(t, queue.Publish(ctx, anExecution))

	assert.Eventually(t, func() bool {
		stored, _ := svc.executionDAO.Load(ctx, anExecution.ID)
		return stored != nil && stored.State == execution.StepStateCompleted
	}, time.Second, 10*time.Millisecond)

	exec.mu.Lock()
	defer exec.mu.Unlock()
	assert.Equal(t, []string{"test-flow/train"}, exec.executed)
}

func TestService_FailurePropagation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	exec := &fakeExecutor{fail: errors.New("model endpoint unreachable")}
	svc, queue := newTestService(t, exec)
	svc.config.MaxStepRetries = 0
	assert.NoError(t, svc.Start(ctx))
	defer svc.Shutdown()

	pipeline := testPipeline()
	run, err := svc.StartRun(ctx, pipeline, nil)
	assert.NoError(t, err)

	step := pipeline.Steps.Steps[0]
	anExecution := execution.NewExecution(run.ID, nil, step)
	run.Push(anExecution)
	assert.NoError(t, svc.runDAO.Save(ctx, run))
	assert.NoError(t, queue.Publish(ctx, anExecution))

	assert.Eventually(t, func() bool {
		owner, _ := svc.GetRun(ctx, run.ID)
		return owner != nil && owner.GetState() == execution.StateFailed
	}, time.Second, 10*time.Millisecond)

	owner, err := svc.GetRun(ctx, run.ID)
	assert.NoError(t, err)
	assert.Equal(t, "model endpoint unreachable", owner.Errors["train"])
}

func TestService_ShouldRetry(t *testing.T) {
	svc := &Service{config: DefaultConfig()}

	testCases := []struct {
		description string
		cfg         *graph.Retry
		attempts    int
		expectRetry bool
		expectDelay time.Duration
	}{
		{
			description: "defaults allow one retry",
			attempts:    0,
			expectRetry: true,
			expectDelay: 3 * time.Second,
		},
		{
			description: "defaults exhausted",
			attempts:    1,
			expectRetry: false,
		},
		{
			description: "none disables retries",
			cfg:         &graph.Retry{Type: "none", MaxRetries: 5},
			attempts:    0,
			expectRetry: false,
		},
		{
			description: "fixed delay",
			cfg:         &graph.Retry{Type: "fixed", MaxRetries: 3, Delay: "2s"},
			attempts:    2,
			expectRetry: true,
			expectDelay: 2 * time.Second,
		},
		{
			description: "exponential backoff",
			cfg:         &graph.Retry{Type: "exponential", MaxRetries: 5, Delay: "1s", Multiplier: 2},
			attempts:    3,
			expectRetry: true,
			expectDelay: 8 * time.Second,
		},
		{
			description: "exponential capped by maxDelay",
			cfg:         &graph.Retry{Type: "exponential", MaxRetries: 10, Delay: "1s", Multiplier: 2, MaxDelay: "5s"},
			attempts:    4,
			expectRetry: true,
			expectDelay: 5 * time.Second,
		},
	}

	for _, tc := range testCases {
		retry, delay := svc.shouldRetry(tc.cfg, tc.attempts)
		assert.Equal(t, tc.expectRetry, retry, tc.description)
		if tc.expectRetry {
			assert.Equal(t, tc.expectDelay, delay, tc.description)
		}
	}
}
