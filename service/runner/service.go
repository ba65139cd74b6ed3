package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/mlgate/mlgate/internal/idgen"
	"github.com/mlgate/mlgate/model"
	"github.com/mlgate/mlgate/model/graph"
	"github.com/mlgate/mlgate/policy"
	"github.com/mlgate/mlgate/runtime/execution"
	"github.com/mlgate/mlgate/service/dao"
	"github.com/mlgate/mlgate/service/executor"
	"github.com/mlgate/mlgate/service/messaging"
	"github.com/mlgate/mlgate/tracing"
)

// Config holds the runner worker pool and retry defaults.
type Config struct {
	// WorkerCount is the number of workers draining the execution queue
	WorkerCount int

	// MaxStepRetries is the default number of retries for a failing step
	MaxStepRetries int

	// RetryDelay is the default delay between retry attempts
	RetryDelay time.Duration
}

// DefaultConfig returns the default runner configuration.
func DefaultConfig() Config {
	return Config{
		WorkerCount:    5,
		MaxStepRetries: 1,
		RetryDelay:     3 * time.Second,
	}
}

// Service executes scheduled steps.
type Service struct {
	config       Config
	runDAO       dao.Service[string, execution.Run]
	executionDAO dao.Service[string, execution.Execution]

	queue    messaging.Queue[execution.Execution]
	executor executor.Service

	sessionListeners []execution.StateListener
	whenListeners    []execution.WhenListener

	workers    []*worker
	workerWg   sync.WaitGroup
	shutdownCh chan struct{}
}

type worker struct {
	id       int
	service  *Service
	ctx      context.Context
	cancelFn context.CancelFunc
}

// shouldRetry reports whether a failed step should run again and after what
// delay.
func (s *Service) shouldRetry(cfg *graph.Retry, attempts int) (bool, time.Duration) {
	if cfg == nil {
		if attempts >= s.config.MaxStepRetries {
			return false, 0
		}
		return true, s.config.RetryDelay
	}
	if strings.ToLower(cfg.Type) == "none" {
		return false, 0
	}

	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = s.config.MaxStepRetries
	}
	if attempts >= maxRetries {
		return false, 0
	}

	baseDelay := s.config.RetryDelay
	if cfg.Delay != "" {
		if d, err := time.ParseDuration(cfg.Delay); err == nil {
			baseDelay = d
		}
	}

	switch strings.ToLower(cfg.Type) {
	case "exponential":
		mult := cfg.Multiplier
		if mult <= 1 {
			mult = 2
		}
		delay := float64(baseDelay) * math.Pow(mult, float64(attempts))
		if cfg.MaxDelay != "" {
			if md, err := time.ParseDuration(cfg.MaxDelay); err == nil {
				if time.Duration(delay) > md {
					delay = float64(md)
				}
			}
		}
		return true, time.Duration(delay)
	default: // fixed
		return true, baseDelay
	}
}

// New creates a runner service.
func New(options ...Option) (*Service, error) {
	s := &Service{
		config:     DefaultConfig(),
		shutdownCh: make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	if s.executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if s.queue == nil {
		return nil, fmt.Errorf("message queue is required")
	}
	if s.runDAO == nil {
		return nil, fmt.Errorf("run DAO is required")
	}
	if s.executionDAO == nil {
		return nil, fmt.Errorf("execution DAO is required")
	}
	return s, nil
}

// Start launches the worker pool.
func (s *Service) Start(ctx context.Context) error {
	for i := 0; i < s.config.WorkerCount; i++ {
		workerCtx, cancel := context.WithCancel(ctx)
		worker := &worker{
			id:       i,
			service:  s,
			ctx:      workerCtx,
			cancelFn: cancel,
		}
		s.workers = append(s.workers, worker)
		s.workerWg.Add(1)
		go worker.run()
	}
	return nil
}

func (w *worker) run() {
	defer w.service.workerWg.Done()
	for {
		msg, err := w.service.queue.Consume(w.ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			time.Sleep(100 * time.Millisecond)
			continue
		}
		if msg == nil {
			continue
		}
		if pErr := w.service.processMessage(w.ctx, msg); pErr != nil {
			log.Printf("worker %d: failed to process message: %v", w.id, pErr)
		}
	}
}

// StartRun begins execution of a pipeline.
func (s *Service) StartRun(ctx context.Context, pipeline *model.Pipeline, init map[string]interface{}) (aRun *execution.Run, err error) {
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("runner.StartRun %s", pipeline.Name), "INTERNAL")
	defer tracing.EndSpan(span, err)
	span.WithAttributes(map[string]string{"pipeline.name": pipeline.Name})

	runID := pipeline.Name + "/" + idgen.New()
	span.WithAttributes(map[string]string{"run.id": runID})

	aRun = execution.NewRun(runID, pipeline.Name, pipeline, init)
	if len(s.sessionListeners) > 0 {
		aRun.Session.RegisterListeners(s.sessionListeners...)
	}
	if len(s.whenListeners) > 0 {
		aRun.Session.RegisterWhenListeners(s.whenListeners...)
	}

	if p := policy.FromContext(ctx); p != nil {
		aRun.Policy = policy.ToConfig(p)
	}

	ctx, runSpan := tracing.StartSpan(ctx, fmt.Sprintf("run %s", pipeline.Name), "INTERNAL")
	runSpan.WithAttributes(map[string]string{"run.id": runID, "pipeline.name": pipeline.Name})
	aRun.Span = runSpan

	if parentRun := execution.ContextValue[*execution.Run](ctx); parentRun != nil {
		aRun.ParentID = parentRun.ID
	}

	if pipeline.Init != nil {
		if err = aRun.Session.ApplyParameters(pipeline.Init); err != nil {
			return nil, err
		}
	}
	anExecution := execution.NewExecution(runID, nil, pipeline.Steps)
	aRun.Push(anExecution)
	aRun.SetState(execution.StateRunning)

	if err = s.runDAO.Save(ctx, aRun); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}
	// the scheduler picks up the pending root execution from here
	return aRun, nil
}

// GetRun retrieves a run by ID.
func (s *Service) GetRun(ctx context.Context, runID string) (*execution.Run, error) {
	return s.runDAO.Load(ctx, runID)
}

// PauseRun pauses a running run.
func (s *Service) PauseRun(ctx context.Context, runID string) error {
	run, err := s.runDAO.Load(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	if run.GetState() != execution.StateRunning {
		return fmt.Errorf("run %s is not in running state", runID)
	}
	run.SetState(execution.StatePaused)
	return s.runDAO.Save(ctx, run)
}

// ResumeRun resumes a paused run.
func (s *Service) ResumeRun(ctx context.Context, runID string) error {
	run, err := s.runDAO.Load(ctx, runID)
	if err != nil {
		return fmt.Errorf("failed to load run: %w", err)
	}
	if run == nil {
		return fmt.Errorf("run %s not found", runID)
	}
	if run.GetState() != execution.StatePaused {
		return fmt.Errorf("run %s is not in paused state", runID)
	}
	run.SetState(execution.StateRunning)
	return s.runDAO.Save(ctx, run)
}

// processMessage executes a single scheduled step.
func (s *Service) processMessage(ctx context.Context, message messaging.Message[execution.Execution]) error {
	anExecution := message.T()

	anExecution.Start()
	if err := s.executionDAO.Save(ctx, anExecution); err != nil {
		return message.Nack(err)
	}

	run, err := s.GetRun(ctx, anExecution.RunID)
	if err != nil {
		return message.Nack(err)
	}
	if run.GetState() == execution.StatePaused {
		// requeue rather than fail; the run may resume
		return message.Nack(fmt.Errorf("run is paused"))
	}

	execCtx := context.WithValue(ctx, execution.RunKey, run)
	execCtx = context.WithValue(execCtx, execution.ExecutionKey, anExecution)

	err = s.executor.Execute(execCtx, anExecution, run)
	if err != nil {
		return s.handleFailure(ctx, message, anExecution, run, err)
	}

	if anExecution.State.IsWaitForApproval() {
		if err := s.executionDAO.Save(ctx, anExecution); err != nil {
			return message.Nack(err)
		}
		return message.Ack()
	}

	step := run.LookupStep(anExecution.StepID)
	if step != nil && step.IsAutoPause() {
		anExecution.Pause()
	} else {
		anExecution.Complete()
	}
	if err := s.executionDAO.Save(ctx, anExecution); err != nil {
		return message.Nack(err)
	}
	return message.Ack()
}

func (s *Service) handleFailure(ctx context.Context, message messaging.Message[execution.Execution], anExecution *execution.Execution, run *execution.Run, cause error) error {
	var retryCfg *graph.Retry
	if step := run.LookupStep(anExecution.StepID); step != nil {
		retryCfg = step.Retry
	}
	shouldRetry, delay := s.shouldRetry(retryCfg, anExecution.Attempts)
	if shouldRetry {
		anExecution.Attempts++
		runAt := time.Now().Add(delay)
		anExecution.RunAfter = &runAt
		anExecution.State = execution.StepStateScheduled
		if daoErr := s.executionDAO.Save(ctx, anExecution); daoErr != nil {
			return message.Nack(fmt.Errorf("error %w and failed to save execution: %v", cause, daoErr))
		}
		// keep the copy embedded in the run current so the scheduler sees the
		// RunAfter/Attempts values and does not reschedule in a tight loop
		if owner, rErr := s.runDAO.Load(ctx, anExecution.RunID); rErr == nil && owner != nil {
			if inRun := owner.LookupExecution(anExecution.StepID); inRun != nil {
				inRun.RunAfter = anExecution.RunAfter
				inRun.Attempts = anExecution.Attempts
				inRun.State = anExecution.State
				inRun.Error = cause.Error()
			}
			_ = s.runDAO.Save(ctx, owner)
		}
		return message.Ack()
	}

	anExecution.Fail(cause)
	if daoErr := s.executionDAO.Save(ctx, anExecution); daoErr != nil {
		return message.Nack(fmt.Errorf("encounter error: %w, and failed to save execution: %v", cause, daoErr))
	}

	// propagate the failure into the run so the scheduler finishes it
	if owner, rErr := s.runDAO.Load(ctx, anExecution.RunID); rErr == nil && owner != nil {
		if inRun := owner.LookupExecution(anExecution.StepID); inRun != nil {
			inRun.State = execution.StepStateFailed
			inRun.Error = anExecution.Error
		}
		if step := owner.LookupStep(anExecution.StepID); step != nil {
			key := step.Namespace
			if key == "" {
				key = step.ID
			}
			owner.Errors[key] = cause.Error()
		}
		owner.Stack = nil
		owner.SetState(execution.StateFailed)
		_ = s.runDAO.Save(ctx, owner)
	}
	_ = message.Ack()
	return nil
}

// Shutdown stops the workers and waits for them to drain.
func (s *Service) Shutdown() {
	close(s.shutdownCh)
	for _, worker := range s.workers {
		worker.cancelFn()
	}
	s.workerWg.Wait()
}
