package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/mlgate/mlgate/model"
	"github.com/mlgate/mlgate/model/graph"
	"github.com/mlgate/mlgate/runtime/execution"
	runmem "github.com/mlgate/mlgate/service/dao/run/memory"
)

func TestService_Wait(t *testing.T) {
	pipeline := &model.Pipeline{Name: "deploy", Steps: &graph.Step{Name: "deploy"}}

	t.Run("completed run", func(t *testing.T) {
		runDAO := runmem.New()
		run := execution.NewRun("run-1", "deploy", pipeline, map[string]interface{}{"rmse": 1900.0})
		run.SetState(execution.StateCompleted)
		err := runDAO.Save(context.Background(), run)
		assert.NoError(t, err)

		service := &Service{runDAO: runDAO}
		output := &WaitOutput{}
		err = service.wait(context.Background(), &WaitInput{RunID: "run-1"}, output)
		assert.NoError(t, err)
		assert.Equal(t, "run-1", output.RunID)
		assert.Equal(t, execution.StateCompleted, output.State)
		assert.False(t, output.Timeout)
		assert.Equal(t, 1900.0, output.Output["rmse"])
	})

	t.Run("timeout on a running run", func(t *testing.T) {
		runDAO := runmem.New()
		run := execution.NewRun("run-2", "deploy", pipeline, nil)
		run.SetState(execution.StateRunning)
		err := runDAO.Save(context.Background(), run)
		assert.NoError(t, err)

		service := &Service{runDAO: runDAO}
		output := &WaitOutput{}
		started := time.Now()
		err = service.wait(context.Background(), &WaitInput{RunID: "run-2", TimeoutInMs: 50, PollFrequencyInMs: 10}, output)
		assert.NoError(t, err)
		assert.True(t, output.Timeout)
		assert.Equal(t, execution.StateRunning, output.State)
		assert.Less(t, time.Since(started), 2*time.Second)
	})

	t.Run("missing run id", func(t *testing.T) {
		service := &Service{runDAO: runmem.New()}
		err := service.wait(context.Background(), &WaitInput{}, &WaitOutput{})
		assert.Error(t, err)
	})
}
