package pipeline

import (
	"context"
	"fmt"

	"github.com/mlgate/mlgate/model/types"
)

// StatusInput identifies a run to inspect.
type StatusInput struct {
	RunID string `json:"runID"`
}

// StatusOutput reports the run's current state and session values.
type StatusOutput struct {
	RunID  string                 `json:"runID,omitempty"`
	State  string                 `json:"state,omitempty"`
	Output map[string]interface{} `json:"output,omitempty"`
	Errors map[string]string      `json:"errors,omitempty"`
}

// Validate checks required fields.
func (i *StatusInput) Validate() error {
	if i.RunID == "" {
		return fmt.Errorf("runID was empty")
	}
	return nil
}

func (s *Service) status(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*StatusInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*StatusOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	if err := input.Validate(); err != nil {
		return err
	}
	run, err := s.runDAO.Load(ctx, input.RunID)
	if err != nil {
		return fmt.Errorf("failed to load run %v: %w", input.RunID, err)
	}
	output.RunID = run.ID
	output.State = run.GetState()
	output.Output = run.Session.State
	output.Errors = run.Errors
	return nil
}
