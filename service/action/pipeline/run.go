package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"github.com/mlgate/mlgate/model"
	"github.com/mlgate/mlgate/model/types"
	"github.com/mlgate/mlgate/runtime/execution"
)

// RunInput identifies the pipeline to run by location, inline YAML source,
// or a decoded definition.
type RunInput struct {
	ParentLocation string                 `json:"parentLocation,omitempty"`
	Location       string                 `json:"location,omitempty"`
	Source         []byte                 `json:"source,omitempty"`
	Pipeline       *model.Pipeline        `json:"pipeline,omitempty"`
	Context        map[string]interface{} `json:"parameters,omitempty"`
	IgnoreError    bool                   `json:"ignoreError,omitempty"`
	Async          bool                   `json:"async,omitempty"`
	WaitTimeInSec  int                    `json:"waitTimeInSec,omitempty"`
}

// RunOutput carries the sub-run identity and, for synchronous runs, its
// result.
type RunOutput struct {
	RunID  string                 `json:"runID,omitempty"`
	Output map[string]interface{} `json:"output,omitempty"`
	Errors map[string]string      `json:"errors,omitempty"`
	State  string                 `json:"state,omitempty"`
}

// Init resolves a relative location against the parent pipeline location.
func (i *RunInput) Init(ctx context.Context) {
	if url.IsRelative(i.Location) && i.ParentLocation != "" {
		parent, _ := url.Split(i.ParentLocation, file.Scheme)
		candidate := url.Join(parent, i.Location)
		if ok, _ := afs.New().Exists(ctx, candidate); ok {
			i.Location = candidate
		}
	}
	if i.WaitTimeInSec == 0 && !i.Async {
		i.WaitTimeInSec = 300
	}
}

func (s *Service) run(ctx context.Context, in, out interface{}) error {
	input, ok := in.(*RunInput)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*RunOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	input.Init(ctx)
	pipeline, err := s.ensurePipeline(ctx, input.Location, input.Source, input.Pipeline)
	if err != nil {
		return err
	}
	run, err := s.runner.StartRun(ctx, pipeline, input.Context)
	if err != nil {
		return err
	}
	output.RunID = run.ID
	if input.Async {
		return nil
	}
	waitOutput := &WaitOutput{}
	if err := s.wait(ctx, &WaitInput{RunID: run.ID, TimeoutInMs: input.WaitTimeInSec * 1000}, waitOutput); err != nil {
		return err
	}
	if waitOutput.State == execution.StateFailed && !input.IgnoreError {
		errorInfo, _ := json.Marshal(waitOutput.Errors)
		return fmt.Errorf("failed to run %v, due to %s", run.ID, errorInfo)
	}
	output.Output = waitOutput.Output
	output.Errors = waitOutput.Errors
	output.State = waitOutput.State
	return nil
}
