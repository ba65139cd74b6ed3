package model

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mlgate/mlgate/model/graph"
)

func TestPipeline_Validate(t *testing.T) {
	t.Run("valid pipeline", func(t *testing.T) {
		pipeline := NewPipeline("release")
		pipeline.NewStep("train").WithAction("automl", "trainModel", nil)
		pipeline.NewStep("evaluate").WithAction("gate", "evaluate", nil).WithDependsOn("train")
		assert.Empty(t, pipeline.Validate())
	})

	t.Run("nil steps", func(t *testing.T) {
		pipeline := NewPipeline("empty")
		issues := pipeline.Validate()
		assert.Len(t, issues, 1)
	})

	t.Run("unknown dependency", func(t *testing.T) {
		pipeline := NewPipeline("release")
		pipeline.NewStep("evaluate").WithDependsOn("train")
		issues := pipeline.Validate()
		assert.NotEmpty(t, issues)
		assert.Contains(t, issues[0].Error(), "unknown step")
	})

	t.Run("self dependency", func(t *testing.T) {
		pipeline := NewPipeline("release")
		step := pipeline.NewStep("evaluate")
		step.WithDependsOn(step.ID)
		issues := pipeline.Validate()
		assert.NotEmpty(t, issues)
	})

	t.Run("dependency cycle", func(t *testing.T) {
		pipeline := NewPipeline("release")
		train := pipeline.NewStep("train")
		evaluate := pipeline.NewStep("evaluate")
		train.WithDependsOn(evaluate.ID)
		evaluate.WithDependsOn(train.ID)
		issues := pipeline.Validate()
		found := false
		for _, issue := range issues {
			if issue.Error() == "pipeline contains cyclic dependencies" {
				found = true
			}
		}
		assert.True(t, found, "expected cycle issue, got: %v", issues)
	})

	t.Run("goto to unknown step", func(t *testing.T) {
		pipeline := NewPipeline("release")
		pipeline.NewStep("evaluate").WithGoto("${retry == true}", "tune")
		issues := pipeline.Validate()
		assert.NotEmpty(t, issues)
		assert.Contains(t, issues[0].Error(), "goto")
	})

	t.Run("unreferenced dependency step", func(t *testing.T) {
		pipeline := NewPipeline("release")
		pipeline.NewStep("evaluate")
		pipeline.Dependencies["baseline"] = &graph.Step{ID: "release/baseline", Name: "baseline"}
		issues := pipeline.Validate()
		assert.NotEmpty(t, issues)
		assert.Contains(t, issues[0].Error(), "never referenced")
	})

	t.Run("invalid scheduleIn duration", func(t *testing.T) {
		pipeline := NewPipeline("release")
		pipeline.NewStep("deploy").ScheduleIn = "soon"
		issues := pipeline.Validate()
		assert.NotEmpty(t, issues)
		assert.Contains(t, issues[0].Error(), "scheduleIn")
	})
}

func TestPipeline_Clone(t *testing.T) {
	pipeline := NewPipeline("release").WithDescription("gated deployment")
	pipeline.WithInit("threshold", 2000)
	pipeline.NewStep("train").WithAction("automl", "trainModel", nil)

	clone := pipeline.Clone()
	assert.Equal(t, pipeline.Name, clone.Name)
	assert.Equal(t, pipeline.Description, clone.Description)
	assert.Len(t, clone.Steps.Steps, 1)

	clone.Steps.Steps[0].Name = "tune"
	assert.Equal(t, "train", pipeline.Steps.Steps[0].Name)
}

func TestPipeline_AllSteps(t *testing.T) {
	pipeline := NewPipeline("release")
	train := pipeline.NewStep("train")
	sub := train.AddSubStep("export")

	all := pipeline.AllSteps()
	assert.Equal(t, train, all[train.ID])
	assert.Equal(t, train, all["train"])
	assert.Equal(t, sub, all[sub.ID])
}
