package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/viant/structology/conv"

	"github.com/mlgate/mlgate/extension"
	"github.com/mlgate/mlgate/model/graph"
	"github.com/mlgate/mlgate/runtime/execution"
	"github.com/mlgate/mlgate/service/event"
)

// Listener is invoked after a step action completes; implementations can log
// or collect metrics on the data that flowed through the step.
type Listener func(step *graph.Step, input, output interface{})

// StdoutListener prints the step, its input and output as JSON.
func StdoutListener(step *graph.Step, input, output interface{}) {
	if step == nil {
		return
	}
	encoded, _ := json.Marshal(step)
	fmt.Println(string(encoded))
	if step.Action == nil {
		return
	}
	if input != nil {
		in, _ := json.Marshal(input)
		fmt.Println(string(in))
	}
	if output != nil {
		out, _ := json.Marshal(output)
		fmt.Println(string(out))
	}
}

// Option customises the executor instance.
type Option func(*service)

// WithListener overrides the post-execution listener; nil disables it.
func WithListener(l Listener) Option {
	return func(s *service) {
		s.listener = l
	}
}

// Service executes a single step of a run.
type Service interface {
	Execute(ctx context.Context, execution *execution.Execution, run *execution.Run) error
}

type service struct {
	actions   *extension.Actions
	converter *conv.Converter
	listener  Listener
}

// Execute runs the step action and publishes an executed event when an event
// service is attached to the context.
func (s *service) Execute(ctx context.Context, anExecution *execution.Execution, run *execution.Run) error {
	step := run.LookupStep(anExecution.StepID)
	if step == nil {
		return fmt.Errorf("step %s: %w", anExecution.StepID, ErrStepNotFound)
	}
	if err := s.execute(ctx, anExecution, run, step); err != nil {
		return err
	}

	if value := ctx.Value(execution.EventKey); value != nil {
		eventService := value.(*event.Service)
		publisher, err := event.PublisherOf[*execution.Execution](eventService)
		if err == nil {
			eCtx := anExecution.Context("executed", step)
			anEvent := event.NewEvent[*execution.Execution](eCtx, anExecution)
			if err = publisher.Publish(ctx, anEvent); err != nil {
				log.Printf("failed to publish step execution event: %v", err)
			}
		}
	}
	return nil
}

func (s *service) execute(ctx context.Context, anExecution *execution.Execution, run *execution.Run, step *graph.Step) error {
	action := step.Action
	if action == nil {
		return nil
	}

	stepService := s.actions.Lookup(action.Service)
	if stepService == nil {
		return fmt.Errorf("service %v not found", action.Service)
	}
	if action.Method == "" {
		return fmt.Errorf("service %v: %w", action.Service, ErrMethodNotFound)
	}
	method, err := stepService.Method(action.Method)
	if err != nil {
		return fmt.Errorf("failed to find method %v for service %v: %w", action.Method, action.Service, err)
	}

	session := run.Session.TaskSession(anExecution.Data,
		execution.WithConverter(s.converter),
		execution.WithImports(run.Pipeline.Imports...),
		execution.WithTypes(s.actions.Types()))

	if err = session.ApplyParameters(step.Init); err != nil {
		return err
	}

	signature := stepService.Methods().Lookup(action.Method)
	if signature == nil {
		return fmt.Errorf("service %v method %v: %w", action.Service, action.Method, ErrMethodNotFound)
	}

	output, err := session.TypedValue(signature.Output, map[string]interface{}{})
	if err != nil {
		return err
	}

	stepInput, err := session.Expand(action.Input)
	if err != nil {
		return err
	}
	input, err := session.TypedValue(signature.Input, stepInput)
	anExecution.Input = input
	if err != nil {
		return err
	}

	if err = method(ctx, input, output); err != nil {
		return err
	}
	if s.listener != nil {
		s.listener(step, input, output)
	}
	anExecution.Output = output
	return nil
}

// NewService creates an executor backed by the given action registry.
func NewService(actions *extension.Actions, opts ...Option) Service {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	options.AccessUnexported = true

	s := &service{
		actions:   actions,
		converter: conv.NewConverter(options),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}
