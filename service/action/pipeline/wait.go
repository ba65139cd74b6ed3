package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/mlgate/mlgate/model/types"
	"github.com/mlgate/mlgate/runtime/execution"
)

// WaitInput blocks until a run finishes or the timeout elapses.
type WaitInput struct {
	RunID             string `json:"runID"`
	TimeoutInMs       int    `json:"timeoutInMs,omitempty"`
	PollFrequencyInMs int    `json:"pollFrequencyInMs,omitempty"`
}

// WaitOutput carries a finished run's terminal state and session output.
type WaitOutput struct {
	RunID     string                 `json:"runID,omitempty"`
	State     string                 `json:"state,omitempty"`
	Output    map[string]interface{} `json:"output,omitempty"`
	Errors    map[string]string      `json:"errors,omitempty"`
	TimeTaken time.Duration          `json:"timeTaken,omitempty"`
	Timeout   bool                   `json:"timeout,omitempty"`
}

// Init applies defaults.
func (i *WaitInput) Init() {
	if i.TimeoutInMs == 0 {
		i.TimeoutInMs = 300000
	}
	if i.PollFrequencyInMs == 0 {
		i.PollFrequencyInMs = 200
	}
}

// Validate checks required fields.
func (i *WaitInput) Validate() error {
	if i.RunID == "" {
		return fmt.Errorf("runID was empty")
	}
	return nil
}

// WaitForRun blocks until the run reaches a terminal state or timeoutMs
// elapses.
func (s *Service) WaitForRun(ctx context.Context, runID string, timeoutMs int) (*WaitOutput, error) {
	output := &WaitOutput{}
	if err := s.wait(ctx, &WaitInput{RunID: runID, TimeoutInMs: timeoutMs}, output); err != nil {
		return nil, err
	}
	return output, nil
}

func (s *Service) wait(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*WaitInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*WaitOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	input.Init()
	if err := input.Validate(); err != nil {
		return err
	}
	// populate run id up front so a timed-out caller can still correlate
	output.RunID = input.RunID
	deadline := time.Now().Add(time.Duration(input.TimeoutInMs) * time.Millisecond)
	pollFrequency := time.Duration(input.PollFrequencyInMs) * time.Millisecond
	for {
		run, err := s.runDAO.Load(ctx, input.RunID)
		if err != nil {
			return fmt.Errorf("failed to load run %v: %w", input.RunID, err)
		}
		state := run.GetState()
		if state == execution.StateCompleted || state == execution.StateFailed {
			output.State = state
			output.Output = run.Session.State
			output.Errors = run.Errors
			finishedAt := time.Now()
			if run.FinishedAt != nil {
				finishedAt = *run.FinishedAt
			}
			output.TimeTaken = finishedAt.Sub(run.CreatedAt)
			return nil
		}
		if time.Now().After(deadline) {
			output.State = state
			output.Timeout = true
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollFrequency):
		}
	}
}
