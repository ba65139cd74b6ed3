package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mlgate/mlgate/model"
	"github.com/mlgate/mlgate/model/graph"
	"github.com/mlgate/mlgate/model/state"
	"github.com/mlgate/mlgate/runtime/execution"
	execmem "github.com/mlgate/mlgate/service/dao/execution/memory"
	runmem "github.com/mlgate/mlgate/service/dao/run/memory"
	qmem "github.com/mlgate/mlgate/service/messaging/memory"
)

func newScheduler() (*Service, *qmem.Queue[execution.Execution]) {
	queue := qmem.NewQueue[execution.Execution](qmem.DefaultConfig())
	return New(runmem.New(), execmem.New(), queue, DefaultConfig()), queue
}

func startRun(t *testing.T, svc *Service, pipeline *model.Pipeline, init map[string]interface{}) *execution.Run {
	run := execution.NewRun(pipeline.Name+"/1", pipeline.Name, pipeline, init)
	run.Push(execution.NewExecution(run.ID, nil, pipeline.Steps))
	run.SetState(execution.StateRunning)
	assert.NoError(t, svc.runDAO.Save(context.Background(), run))
	return run
}

// drive advances the run until it leaves the running state, completing every
// published execution with output produced by complete.
func drive(t *testing.T, svc *Service, queue *qmem.Queue[execution.Execution], run *execution.Run, complete func(anExecution *execution.Execution)) {
	ctx := context.Background()
	for i := 0; i < 300; i++ {
		assert.NoError(t, svc.scheduleNextSteps(ctx, run))
		for queue.Size() > 0 {
			msg, err := queue.Consume(ctx)
			assert.NoError(t, err)
			anExecution := msg.T()
			anExecution.Start()
			if complete != nil {
				complete(anExecution)
			}
			anExecution.Complete()
			assert.NoError(t, svc.executionDAO.Save(ctx, anExecution))
			assert.NoError(t, msg.Ack())
		}
		if run.GetState() != execution.StateRunning {
			return
		}
	}
	t.Fatalf("run did not finish, state %v stack %d", run.GetState(), len(run.Stack))
}

func TestScheduler_SequentialSteps(t *testing.T) {
	pipeline := &model.Pipeline{
		Name: "flow",
		Steps: &graph.Step{
			ID: "flow",
			Steps: []*graph.Step{
				{ID: "flow/train", Name: "train", Namespace: "train",
					Action: &graph.Action{Service: "automl", Method: "trainModel"}},
				{ID: "flow/evaluate", Name: "evaluate", Namespace: "evaluate",
					Action: &graph.Action{Service: "gate", Method: "evaluate"}},
			},
		},
	}
	svc, queue := newScheduler()
	run := startRun(t, svc, pipeline, nil)

	drive(t, svc, queue, run, func(anExecution *execution.Execution) {
		anExecution.Output = map[string]interface{}{"done": true}
	})

	assert.Equal(t, execution.StateCompleted, run.GetState())
	trainOut, ok := run.Session.Get("train")
	assert.True(t, ok)
	assert.EqualValues(t, map[string]interface{}{"done": true}, trainOut)
	_, ok = run.Session.Get("evaluate")
	assert.True(t, ok)
}

func TestScheduler_WhenSkipsStep(t *testing.T) {
	pipeline := &model.Pipeline{
		Name: "flow",
		Steps: &graph.Step{
			ID: "flow",
			Steps: []*graph.Step{
				{ID: "flow/deploy", Name: "deploy", Namespace: "deploy",
					When:   "${approved == true}",
					Action: &graph.Action{Service: "automl", Method: "deployModel"}},
			},
		},
	}
	svc, queue := newScheduler()
	run := startRun(t, svc, pipeline, map[string]interface{}{"approved": false})

	drive(t, svc, queue, run, nil)

	assert.Equal(t, execution.StateCompleted, run.GetState())
	_, ok := run.Session.Get("deploy")
	assert.False(t, ok)
}

func TestScheduler_DependsOn(t *testing.T) {
	pipeline := &model.Pipeline{
		Name: "flow",
		Steps: &graph.Step{
			ID: "flow",
			Steps: []*graph.Step{
				{ID: "flow/report", Name: "report", Namespace: "report",
					DependsOn: []string{"baseline"},
					Action:    &graph.Action{Service: "printer", Method: "print"}},
				{ID: "flow/baseline", Name: "baseline", Namespace: "baseline",
					Action: &graph.Action{Service: "printer", Method: "print"}},
			},
		},
	}
	svc, queue := newScheduler()
	run := startRun(t, svc, pipeline, nil)

	var order []string
	drive(t, svc, queue, run, func(anExecution *execution.Execution) {
		order = append(order, anExecution.StepID)
	})

	assert.Equal(t, execution.StateCompleted, run.GetState())
	assert.Equal(t, []string{"flow/baseline", "flow/report"}, order)
}

func TestScheduler_GotoTransition(t *testing.T) {
	pipeline := &model.Pipeline{
		Name: "flow",
		Steps: &graph.Step{
			ID: "flow",
			Steps: []*graph.Step{
				{ID: "flow/evaluate", Name: "evaluate", Namespace: "evaluate",
					Action: &graph.Action{Service: "gate", Method: "evaluate"},
					Goto: []*graph.Transition{
						{When: "${evaluate.retry == true}", Step: "evaluate"},
					}},
				{ID: "flow/tune", Name: "tune", Namespace: "tune",
					Action: &graph.Action{Service: "tuner", Method: "createStudy"}},
			},
		},
	}
	svc, queue := newScheduler()
	run := startRun(t, svc, pipeline, nil)

	executed := map[string]int{}
	drive(t, svc, queue, run, func(anExecution *execution.Execution) {
		executed[anExecution.StepID]++
		// first evaluation asks for a retry, the second one passes
		retry := anExecution.StepID == "flow/evaluate" && executed[anExecution.StepID] == 1
		anExecution.Output = map[string]interface{}{"retry": retry}
	})

	assert.Equal(t, execution.StateCompleted, run.GetState())
	assert.Equal(t, 2, executed["flow/evaluate"])
	assert.Equal(t, 1, executed["flow/tune"])
}

func TestScheduler_TemplateFanOut(t *testing.T) {
	selector := state.Parameters{
		{Name: "candidate", Value: "${candidates}"},
		{Name: "index", Value: "$i"},
	}
	pipeline := &model.Pipeline{
		Name: "sweep",
		Steps: &graph.Step{
			ID: "sweep",
			Steps: []*graph.Step{
				{ID: "sweep/trials", Name: "trials", Namespace: "trials",
					Template: &graph.Template{
						Selector: &selector,
						Step: &graph.Step{ID: "sweep/trials/run", Name: "run", Namespace: "run",
							Action: &graph.Action{Service: "tuner", Method: "createStudy"}},
					}},
			},
		},
	}
	svc, queue := newScheduler()
	run := startRun(t, svc, pipeline, map[string]interface{}{
		"candidates": []interface{}{
			map[string]interface{}{"lr": 0.1},
			map[string]interface{}{"lr": 0.01},
			map[string]interface{}{"lr": 0.001},
		},
	})

	var seen []interface{}
	drive(t, svc, queue, run, func(anExecution *execution.Execution) {
		seen = append(seen, anExecution.Data["candidate"])
	})

	assert.Equal(t, execution.StateCompleted, run.GetState())
	assert.Len(t, seen, 3)
	assert.Contains(t, seen, map[string]interface{}{"lr": 0.01})
}

func TestEvaluateCondition(t *testing.T) {
	pipeline := &model.Pipeline{Name: "flow", Steps: &graph.Step{ID: "flow"}}
	run := execution.NewRun("flow/1", "flow", pipeline, map[string]interface{}{"rmse": 1800.0})
	step := &graph.Step{ID: "flow/gate", Name: "gate", Namespace: "gate"}
	anExecution := execution.NewExecution(run.ID, nil, step)
	anExecution.Output = map[string]interface{}{"deploy": true}

	var fired []string
	run.Session.RegisterWhenListeners(func(_ *execution.Session, expr string, result bool) {
		fired = append(fired, expr)
	})

	ok, err := evaluateCondition("${rmse < 2000}", run, step, anExecution, false)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = evaluateCondition("${gate.deploy == true}", run, step, anExecution, false)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = evaluateCondition("", run, step, anExecution, true)
	assert.NoError(t, err)
	assert.True(t, ok)

	assert.Len(t, fired, 2)
}
