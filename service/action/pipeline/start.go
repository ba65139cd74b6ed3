package pipeline

import (
	"context"

	"github.com/mlgate/mlgate/model"
	"github.com/mlgate/mlgate/model/types"
)

// StartInput identifies the pipeline to start without waiting.
type StartInput struct {
	Location string                 `json:"location,omitempty"`
	Source   []byte                 `json:"source,omitempty"`
	Pipeline *model.Pipeline        `json:"pipeline,omitempty"`
	Context  map[string]interface{} `json:"parameters,omitempty"`
}

// StartOutput returns the new run's identity.
type StartOutput struct {
	RunID string `json:"runID,omitempty"`
	State string `json:"state,omitempty"`
}

func (s *Service) start(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*StartInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*StartOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	pipeline, err := s.ensurePipeline(ctx, input.Location, input.Source, input.Pipeline)
	if err != nil {
		return err
	}
	run, err := s.runner.StartRun(ctx, pipeline, input.Context)
	if err != nil {
		return err
	}
	output.RunID = run.ID
	output.State = run.GetState()
	return nil
}
