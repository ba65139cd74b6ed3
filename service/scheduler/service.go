package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"reflect"
	"strings"
	"time"

	"github.com/mlgate/mlgate/model/graph"
	"github.com/mlgate/mlgate/progress"
	"github.com/mlgate/mlgate/runtime/execution"
	"github.com/mlgate/mlgate/runtime/expander"
	"github.com/mlgate/mlgate/service/dao"
	"github.com/mlgate/mlgate/service/event"
	"github.com/mlgate/mlgate/service/messaging"
	"github.com/mlgate/mlgate/tracing"
)

// toInterfaceSlice converts an array or slice value to []interface{}.
func toInterfaceSlice(raw interface{}) ([]interface{}, error) {
	v := reflect.ValueOf(raw)
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, fmt.Errorf("expected slice or array, got %T", raw)
	}
	result := make([]interface{}, v.Len())
	for i := 0; i < v.Len(); i++ {
		result[i] = v.Index(i).Interface()
	}
	return result, nil
}

// addDynamicStep registers a cloned step subgraph in the run's lookup map.
func addDynamicStep(allSteps map[string]*graph.Step, step *graph.Step) {
	if step == nil {
		return
	}
	if _, exists := allSteps[step.ID]; exists {
		return
	}
	allSteps[step.ID] = step
	if step.Name != "" {
		allSteps[step.Name] = step
	}
	for _, sub := range step.Steps {
		addDynamicStep(allSteps, sub)
	}
	if step.Template != nil {
		addDynamicStep(allSteps, step.Template.Step)
	}
}

// Config represents scheduler configuration.
type Config struct {
	// PollingInterval is how often the scheduler checks runs for ready steps
	PollingInterval time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		PollingInterval: 20 * time.Millisecond,
	}
}

// Service advances runs by scheduling ready steps onto the execution queue.
type Service struct {
	config       Config
	runDAO       dao.Service[string, execution.Run]
	executionDAO dao.Service[string, execution.Execution]
	queue        messaging.Queue[execution.Execution]
	shutdownCh   chan struct{}
}

// New creates a scheduler service.
func New(runDAO dao.Service[string, execution.Run], executionDAO dao.Service[string, execution.Execution], queue messaging.Queue[execution.Execution], config Config) *Service {
	return &Service{
		config:       config,
		runDAO:       runDAO,
		executionDAO: executionDAO,
		queue:        queue,
		shutdownCh:   make(chan struct{}),
	}
}

// Start begins the scheduling loop; it blocks until the context is cancelled
// or Shutdown is called.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.config.PollingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.shutdownCh:
			return nil
		case <-ticker.C:
			if err := s.allocateSteps(ctx); err != nil {
				log.Printf("scheduler: %v", err)
			}
		}
	}
}

// handleTransition creates a new execution path for a goto transition.
func (s *Service) handleTransition(ctx context.Context, runID string, fromStepID string, toStepID string) error {
	aRun, err := s.runDAO.Load(ctx, runID)
	if err != nil {
		return err
	}
	allSteps := aRun.AllSteps()
	parentStep := allSteps[fromStepID]
	nextStep := allSteps[toStepID]
	if nextStep == nil {
		return fmt.Errorf("goto target %s not found", toStepID)
	}
	nextExecution := execution.NewExecution(runID, parentStep, nextStep)
	aRun.Push(nextExecution)
	return s.runDAO.Save(ctx, aRun)
}

// allocateSteps finds active runs and advances them.
func (s *Service) allocateSteps(ctx context.Context) error {
	runs, err := s.runDAO.List(ctx, dao.NewParameter("State", execution.StatePending, execution.StateRunning))
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}
	for _, run := range runs {
		if run.GetState() != execution.StateRunning {
			continue
		}
		if err := s.scheduleNextSteps(ctx, run); err != nil {
			log.Printf("scheduler: run %s: %v", run.ID, err)
			continue
		}
	}
	return nil
}

// scheduleNextSteps advances the run's execution stack by one decision.
func (s *Service) scheduleNextSteps(ctx context.Context, run *execution.Run) error {
	if len(run.Stack) == 0 {
		// stack drained, finish the run
		if run.GetState() == execution.StateRunning {
			if run.Pipeline.Post != nil {
				if err := run.Session.ApplyParameters(run.Pipeline.Post); err != nil {
					run.Errors["post"] = err.Error()
				}
			}
			if len(run.Errors) > 0 {
				run.SetState(execution.StateFailed)
			} else {
				run.SetState(execution.StateCompleted)
			}
			if run.Span != nil {
				var endErr error
				if run.GetState() == execution.StateFailed {
					endErr = fmt.Errorf("run failed with %d errors", len(run.Errors))
				}
				tracing.EndSpan(run.Span, endErr)
				run.Span = nil
			}
			return s.runDAO.Save(ctx, run)
		}
		return nil
	}

	anExecution := run.Peek()
	currentStep := run.LookupStep(anExecution.StepID)
	if currentStep == nil {
		return s.handleExecutionError(ctx, run, anExecution, fmt.Errorf("step %s not found", anExecution.StepID))
	}
	switch anExecution.State {
	case execution.StepStatePending:
		done, err := s.handlePendingStep(ctx, run, currentStep, anExecution)
		if err != nil {
			return s.handleExecutionError(ctx, run, anExecution, err)
		}
		if done {
			return nil
		}
	case execution.StepStateRunning, execution.StepStateScheduled, execution.StepStatePaused, execution.StepStateWaitForApproval:
		scheduleSubSteps, err := s.handleRunningStep(ctx, run, anExecution)
		if !scheduleSubSteps || err != nil {
			return err
		}
	}

	dependencyState, err := s.ensureDependencies(ctx, run, anExecution)
	if err != nil {
		return err
	}
	switch dependencyState {
	case execution.StepStateRunning:
		return nil
	case execution.StepStateFailed:
		return s.handleProcessedExecution(ctx, run, anExecution, dependencyState)
	}

	switch anExecution.State {
	case execution.StepStateWaitForDependencies, execution.StepStatePending:
		if currentStep.Action != nil {
			if err := s.updateExecutionState(ctx, run, anExecution, execution.StepStateScheduled); err != nil {
				return fmt.Errorf("failed to update execution state: %w", err)
			}
			return nil
		}
	}

	status, err := s.ensureSubSteps(ctx, run, anExecution)
	if err != nil {
		return err
	}
	switch status {
	case execution.StepStateRunning:
		return nil
	default:
		return s.handleProcessedExecution(ctx, run, anExecution, status)
	}
}

func (s *Service) handlePendingStep(ctx context.Context, run *execution.Run, currentStep *graph.Step, anExecution *execution.Execution) (bool, error) {
	if currentStep.When != "" {
		canRun, err := evaluateCondition(currentStep.When, run, currentStep, anExecution, true)
		if err != nil {
			return true, err
		}
		if !canRun {
			anExecution.Skip()
			progress.UpdateCtx(ctx, progress.Delta{Skipped: 1})
			return true, s.handleProcessedExecution(ctx, run, anExecution, anExecution.State)
		}
	}

	if currentStep.Template != nil {
		return true, s.expandTemplate(ctx, run, currentStep, anExecution)
	}

	// preserve data bound by a template fan-out, then apply init parameters
	if anExecution.Data == nil {
		anExecution.Data = make(map[string]interface{})
	}
	for _, parameter := range currentStep.Init {
		if _, exists := anExecution.Data[parameter.Name]; exists {
			continue
		}
		val, expErr := run.Session.Expand(parameter.Value)
		if expErr != nil {
			return true, expErr
		}
		anExecution.Data[parameter.Name] = val
	}
	return false, nil
}

// expandTemplate clones the template subgraph once per selected element and
// pushes an execution for each clone.
func (s *Service) expandTemplate(ctx context.Context, run *execution.Run, currentStep *graph.Step, anExecution *execution.Execution) error {
	selParams := currentStep.Template.Selector
	if selParams == nil || len(*selParams) == 0 {
		return fmt.Errorf("template selector is empty for step %s", currentStep.ID)
	}
	first := (*selParams)[0]
	raw, err := run.Session.Expand(first.Value)
	if err != nil {
		return fmt.Errorf("failed to expand template selector for step %s: %w", currentStep.ID, err)
	}
	items, err := toInterfaceSlice(raw)
	if err != nil {
		return fmt.Errorf("template selector for step %s must be slice or array: %w", currentStep.ID, err)
	}
	allSteps := run.AllSteps()
	for idx, item := range items {
		clone := currentStep.Template.Step.Clone()
		clone.ID = fmt.Sprintf("%s[%d]", currentStep.ID, idx)
		exec := execution.NewExecution(run.ID, currentStep, clone)
		exec.Data = make(map[string]interface{})
		// first selector binds the element, "$i" binds the index, the rest
		// expand against the session
		for si, param := range *selParams {
			if si == 0 {
				exec.Data[param.Name] = item
			} else if str, ok := param.Value.(string); ok && str == "$i" {
				exec.Data[param.Name] = idx
			} else if val, _ := run.Session.Expand(param.Value); val != nil {
				exec.Data[param.Name] = val
			}
		}
		run.Push(exec)
		addDynamicStep(allSteps, clone)
		progress.UpdateCtx(ctx, progress.Delta{Total: 1, Pending: 1})
	}
	return s.updateExecutionState(ctx, run, anExecution, execution.StepStateWaitForSubSteps)
}

func (s *Service) handleRunningStep(ctx context.Context, run *execution.Run, anExecution *execution.Execution) (bool, error) {
	runningExecution, err := s.executionDAO.Load(ctx, anExecution.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load running execution: %w", err)
	}
	// republish a retry or delayed execution once its RunAfter elapses
	if runningExecution.State == execution.StepStateScheduled && runningExecution.RunAfter != nil {
		if time.Now().After(*runningExecution.RunAfter) {
			runningExecution.RunAfter = nil
			anExecution.RunAfter = nil
			anExecution.Attempts = runningExecution.Attempts
			if err := s.executionDAO.Save(ctx, runningExecution); err != nil {
				return false, err
			}
			if err := s.publishExecution(ctx, run, anExecution); err != nil {
				return false, err
			}
		}
		return false, nil
	}
	if runningExecution.State == anExecution.State {
		return false, nil
	}
	anExecution.Merge(runningExecution)
	switch runningExecution.State {
	case execution.StepStateRunning, execution.StepStatePaused, execution.StepStateWaitForApproval:
		return false, nil
	case execution.StepStatePending:
		// approval granted; schedule the step again
		return false, s.updateExecutionState(ctx, run, anExecution, execution.StepStateScheduled)
	case execution.StepStateCompleted:
	case execution.StepStateFailed, execution.StepStateSkipped:
		return false, s.handleProcessedExecution(ctx, run, anExecution, runningExecution.State)
	}
	return true, nil
}

func (s *Service) ensureDependencies(ctx context.Context, run *execution.Run, anExecution *execution.Execution) (execution.StepState, error) {
	completed := 0
	currentStep := run.LookupStep(anExecution.StepID)

	var scheduled []*execution.Execution
outer:
	for _, depID := range anExecution.DependsOn {
		step := run.LookupStep(depID)
		if step == nil {
			return execution.StepStateFailed, fmt.Errorf("dependency %s not found", depID)
		}
		// dependsOn entries may reference steps by name; completion is
		// recorded under the resolved ID
		status := anExecution.Dependencies[step.ID]
		if status == "" {
			status = anExecution.Dependencies[depID]
		}
		if status == "" {
			status = execution.StepStatePending
		}
		switch status {
		case execution.StepStatePending:
			scheduled = append(scheduled, execution.NewExecution(run.ID, currentStep, step))
			anExecution.Dependencies[step.ID] = execution.StepStateScheduled
			break outer
		case execution.StepStateCompleted, execution.StepStateSkipped:
			completed++
		case execution.StepStateFailed:
			return execution.StepStateFailed, nil
		}
	}
	if len(scheduled) > 0 {
		run.Push(scheduled...)
		if err := s.updateExecutionState(ctx, run, anExecution, execution.StepStateWaitForDependencies); err != nil {
			return execution.StepStateFailed, fmt.Errorf("failed to update execution state: %w", err)
		}
	}
	if len(anExecution.DependsOn) == completed {
		return execution.StepStateCompleted, nil
	}
	return execution.StepStateRunning, nil
}

func (s *Service) ensureSubSteps(ctx context.Context, run *execution.Run, anExecution *execution.Execution) (execution.StepState, error) {
	completed := 0
	currentStep := run.LookupStep(anExecution.StepID)

	async := currentStep.Async

	var scheduled []*execution.Execution
outer:
	for i := range currentStep.Steps {
		step := currentStep.Steps[i]
		status := anExecution.Dependencies[step.ID]
		switch status {
		case execution.StepStatePending:
			scheduled = append(scheduled, execution.NewExecution(run.ID, currentStep, step))
			anExecution.Dependencies[step.ID] = execution.StepStateScheduled
			if !async {
				break outer
			}
		case execution.StepStateFailed:
			return execution.StepStateFailed, nil
		case execution.StepStateCompleted, execution.StepStateSkipped:
			completed++
		}
	}
	if len(scheduled) > 0 {
		run.Push(scheduled...)
		if err := s.updateExecutionState(ctx, run, anExecution, execution.StepStateWaitForSubSteps); err != nil {
			return execution.StepStateFailed, fmt.Errorf("failed to update execution state: %w", err)
		}
	}
	if len(currentStep.Steps) == completed {
		return execution.StepStateCompleted, nil
	}
	return execution.StepStateRunning, nil
}

func (s *Service) updateExecutionState(ctx context.Context, run *execution.Run, anExecution *execution.Execution, state execution.StepState) error {
	if state == execution.StepStateScheduled {
		anExecution.Schedule()
		// scheduleIn delays the first attempt only
		if step := run.LookupStep(anExecution.StepID); step != nil && step.ScheduleIn != "" &&
			anExecution.RunAfter == nil && anExecution.Attempts == 0 {
			if delay, err := time.ParseDuration(step.ScheduleIn); err == nil && delay > 0 {
				runAt := time.Now().Add(delay)
				anExecution.RunAfter = &runAt
			}
		}
	}
	anExecution.State = state
	if err := s.executionDAO.Save(ctx, anExecution); err != nil {
		return fmt.Errorf("failed to save execution: %w", err)
	}
	if err := s.runDAO.Save(ctx, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	if state == execution.StepStateScheduled {
		if anExecution.RunAfter != nil && time.Now().Before(*anExecution.RunAfter) {
			// published by the polling loop once RunAfter elapses
			return nil
		}
		if err := s.publishExecution(ctx, run, anExecution); err != nil {
			return fmt.Errorf("failed to publish execution: %w", err)
		}
	}
	return nil
}

// publishExecution hands an execution to the runner and emits a scheduled
// event when an event service is attached to the context.
func (s *Service) publishExecution(ctx context.Context, run *execution.Run, anExecution *execution.Execution) error {
	if value := ctx.Value(execution.EventKey); value != nil {
		eventService := value.(*event.Service)
		publisher, err := event.PublisherOf[*execution.Execution](eventService)
		if err == nil {
			step := run.LookupStep(anExecution.StepID)
			eCtx := anExecution.Context("scheduled", step)
			anEvent := event.NewEvent[*execution.Execution](eCtx, anExecution)
			if err = publisher.Publish(ctx, anEvent); err != nil {
				log.Printf("failed to publish scheduled event: %v", err)
			}
		}
	}
	progress.UpdateCtx(ctx, progress.Delta{Running: 1, Pending: -1})
	return s.queue.Publish(ctx, anExecution)
}

// StepCompleted records a finished step and immediately tries to advance the
// run.
func (s *Service) StepCompleted(ctx context.Context, runID string, stepID string) error {
	run, err := s.runDAO.Load(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run %s: %w", runID, err)
	}
	anExecution := run.LookupExecution(stepID)
	if anExecution == nil {
		return fmt.Errorf("execution for step %s not found", stepID)
	}
	if parentExecution := run.LookupExecution(anExecution.ParentStepID); parentExecution != nil {
		run.SetDep(parentExecution, stepID, execution.StepStateCompleted)
	}
	if err := s.runDAO.Save(ctx, run); err != nil {
		return fmt.Errorf("failed to save run %s: %w", runID, err)
	}
	return s.scheduleNextSteps(ctx, run)
}

// Shutdown stops the scheduling loop.
func (s *Service) Shutdown() {
	close(s.shutdownCh)
}

func (s *Service) handleProcessedExecution(ctx context.Context, run *execution.Run, anExecution *execution.Execution, state execution.StepState) error {
	currentStep := run.LookupStep(anExecution.StepID)
	if currentStep == nil {
		currentStep = &graph.Step{ID: anExecution.StepID, Namespace: anExecution.StepID}
	}

	if state == execution.StepStateCompleted {
		output := anExecution.Output
		var outputMap = make(map[string]interface{})
		if data, err := json.Marshal(anExecution.Output); err == nil {
			if err = json.Unmarshal(data, &outputMap); err == nil {
				output = outputMap
			}
		}
		run.Session.Set(currentStep.Namespace, output)
		if err := s.handleStepDone(currentStep, run, anExecution, outputMap); err != nil {
			return err
		}
		progress.UpdateCtx(ctx, progress.Delta{Completed: 1, Running: -1})
	}
	if state == execution.StepStateFailed {
		progress.UpdateCtx(ctx, progress.Delta{Failed: 1, Running: -1})
	}
	if anExecution.Error != "" {
		run.Errors[currentStep.Namespace] = anExecution.Error
	}
	if parent := run.LookupExecution(anExecution.ParentStepID); parent != nil {
		run.SetDep(parent, anExecution.StepID, state)
	}
	run.Remove(anExecution)
	if err := s.runDAO.Save(ctx, run); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	if anExecution.GoToStep != "" {
		return s.handleTransition(ctx, run.ID, anExecution.StepID, anExecution.GoToStep)
	}
	return nil
}

// handleStepDone applies post parameters and evaluates goto transitions in
// declaration order; the first one whose condition holds wins.
func (s *Service) handleStepDone(currentStep *graph.Step, run *execution.Run, anExecution *execution.Execution, outputMap map[string]interface{}) error {
	source := run.Session.Clone()
	for k, v := range outputMap {
		source.Set(k, v)
	}
	for _, parameter := range currentStep.Post {
		evaluated, err := expander.Expand(parameter.Value, source.State)
		if err != nil {
			continue
		}
		name := parameter.Name
		if strings.HasSuffix(name, "[]") {
			run.Session.Append(strings.TrimSuffix(name, "[]"), evaluated)
			continue
		}
		run.Session.Set(name, evaluated)
	}
	for _, transition := range currentStep.Goto {
		conditionMet, err := evaluateCondition(transition.When, run, currentStep, anExecution, false)
		if err != nil {
			return err
		}
		if conditionMet && transition.Step != "" {
			anExecution.GoToStep = transition.Step
			break
		}
	}
	return nil
}

func (s *Service) handleExecutionError(ctx context.Context, run *execution.Run, anExecution *execution.Execution, err error) error {
	anExecution.Error += err.Error()
	return s.handleProcessedExecution(ctx, run, anExecution, execution.StepStateFailed)
}
