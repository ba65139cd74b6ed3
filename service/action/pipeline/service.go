// Package pipeline lets a pipeline step launch and track other pipelines, so
// a deployment flow can delegate e.g. a tuning sweep to a sub-pipeline.
package pipeline

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/mlgate/mlgate/model"
	"github.com/mlgate/mlgate/model/types"
	"github.com/mlgate/mlgate/runtime/execution"
	"github.com/mlgate/mlgate/service/dao"
	daopipeline "github.com/mlgate/mlgate/service/dao/pipeline"
	"github.com/mlgate/mlgate/service/runner"
)

const name = "pipeline"

// Service runs and tracks sub-pipelines.
type Service struct {
	runner      *runner.Service
	pipelineDAO *daopipeline.Service
	runDAO      dao.Service[string, execution.Run]
}

// New creates a pipeline action service.
func New(runnerService *runner.Service, pipelineDAO *daopipeline.Service, runDAO dao.Service[string, execution.Run]) *Service {
	return &Service{
		runner:      runnerService,
		pipelineDAO: pipelineDAO,
		runDAO:      runDAO,
	}
}

// Name returns the service name
func (s *Service) Name() string {
	return name
}

// Methods returns the service methods
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:        "run",
			Description: "Runs a pipeline and, unless async, waits for its completion.",
			Input:       reflect.TypeOf(&RunInput{}),
			Output:      reflect.TypeOf(&RunOutput{}),
		},
		{
			Name:        "start",
			Description: "Starts a pipeline without waiting and returns its run ID.",
			Input:       reflect.TypeOf(&StartInput{}),
			Output:      reflect.TypeOf(&StartOutput{}),
		},
		{
			Name:        "status",
			Description: "Retrieves the current state and session output of a run.",
			Input:       reflect.TypeOf(&StatusInput{}),
			Output:      reflect.TypeOf(&StatusOutput{}),
		},
		{
			Name:        "wait",
			Description: "Polls a run until completion or timeout.",
			Input:       reflect.TypeOf(&WaitInput{}),
			Output:      reflect.TypeOf(&WaitOutput{}),
		},
	}
}

// Method returns the specified method
func (s *Service) Method(methodName string) (types.Executable, error) {
	switch strings.ToLower(methodName) {
	case "run":
		return s.run, nil
	case "start":
		return s.start, nil
	case "status":
		return s.status, nil
	case "wait":
		return s.wait, nil
	default:
		return nil, types.NewMethodNotFoundError(methodName)
	}
}

// ensurePipeline resolves the pipeline from inline source or a location.
func (s *Service) ensurePipeline(ctx context.Context, location string, source []byte, pipeline *model.Pipeline) (*model.Pipeline, error) {
	if pipeline != nil {
		return pipeline, nil
	}
	if len(source) > 0 {
		return s.pipelineDAO.DecodeYAML(source)
	}
	if location == "" {
		return nil, fmt.Errorf("location is required")
	}
	return s.pipelineDAO.Load(ctx, location)
}
