// Package execution holds the runtime state of a pipeline run: the run
// record itself, per-step executions and the session carrying run variables.
package execution

import (
	"fmt"
	"sync"
	"time"

	"github.com/mlgate/mlgate/internal/idgen"
	"github.com/mlgate/mlgate/model/graph"
	"github.com/mlgate/mlgate/service/event"
)

// Execution represents a single step execution within a run.
type Execution struct {
	ID             string                 `json:"id"`
	RunID          string                 `json:"runId"`
	ParentStepID   string                 `json:"parentStepId,omitempty"`
	GroupID        string                 `json:"groupId,omitempty"`
	StepID         string                 `json:"stepId"`
	State          StepState              `json:"state"`
	Data           map[string]interface{} `json:"data,omitempty"`
	Input          interface{}            `json:"input,omitempty"`
	Output         interface{}            `json:"output,omitempty"`
	Error          string                 `json:"error,omitempty"`
	Attempts       int                    `json:"attempts,omitempty"`
	ScheduledAt    time.Time              `json:"scheduledAt"`
	StartedAt      *time.Time             `json:"startedAt,omitempty"`
	PausedAt       *time.Time             `json:"pausedAt,omitempty"`
	CompletedAt    *time.Time             `json:"completedAt,omitempty"`
	GoToStep       string                 `json:"gotoStep,omitempty"`
	Meta           map[string]interface{} `json:"meta,omitempty"`
	RunAfter       *time.Time             `json:"runAfter,omitempty"`
	DependsOn      []string               `json:"dependencies"`
	Dependencies   map[string]StepState   `json:"dependencyStates,omitempty"`
	Approved       *bool                  `json:"approved,omitempty"`
	ApprovalReason string                 `json:"approvalReason,omitempty"`
	mux            sync.RWMutex
}

// Context builds an event context describing this execution.
func (e *Execution) Context(eventType string, step *graph.Step) *event.Context {
	ret := &event.Context{
		EventType: eventType,
		RunID:     e.RunID,
		StepID:    e.StepID,
	}
	if action := step.Action; action != nil {
		ret.Service = action.Service
		ret.Method = action.Method
	}
	return ret
}

// NewExecution creates an execution for a step, seeding dependency states
// from its sub-steps and declared dependencies.
func NewExecution(runID string, parent, step *graph.Step) *Execution {
	ret := &Execution{
		ID:           executionID(runID, step.ID),
		RunID:        runID,
		StepID:       step.ID,
		State:        StepStatePending,
		ScheduledAt:  time.Now(),
		DependsOn:    step.DependsOn,
		Dependencies: make(map[string]StepState),
	}
	for _, subStep := range step.Steps {
		ret.Dependencies[subStep.ID] = StepStatePending
	}
	for _, dependency := range step.DependsOn {
		ret.Dependencies[dependency] = StepStatePending
	}
	if parent != nil {
		ret.ParentStepID = parent.ID
		if parent.Async {
			ret.GroupID = parent.ID
		}
	}
	return ret
}

// Start marks the execution as started.
func (e *Execution) Start() {
	now := time.Now()
	e.StartedAt = &now
	e.State = StepStateRunning
}

// Complete marks the execution as completed.
func (e *Execution) Complete() {
	now := time.Now()
	e.CompletedAt = &now
	e.State = StepStateCompleted
}

func (e *Execution) Pause() {
	now := time.Now()
	e.PausedAt = &now
	e.State = StepStatePaused
}

// Fail marks the execution as failed.
func (e *Execution) Fail(err error) {
	now := time.Now()
	e.CompletedAt = &now
	if err != nil {
		e.Error = err.Error()
	}
	e.State = StepStateFailed
}

func (e *Execution) Schedule() {
	e.ScheduledAt = time.Now()
}

func (e *Execution) Skip() {
	e.State = StepStateSkipped
}

// Merge folds the other execution's progress into this one.
func (e *Execution) Merge(execution *Execution) {
	if execution == nil || execution == e {
		return
	}
	e.mux.Lock()
	execution.mux.RLock()
	defer execution.mux.RUnlock()
	defer e.mux.Unlock()

	if execution.Output != nil {
		e.Output = execution.Output
	}
	if execution.GoToStep != "" {
		e.GoToStep = execution.GoToStep
	}
	if execution.State != "" {
		e.State = execution.State
	}
	if execution.Error != "" {
		e.Error = execution.Error
	}
	if execution.StartedAt != nil {
		e.StartedAt = execution.StartedAt
	}
	if execution.CompletedAt != nil {
		e.CompletedAt = execution.CompletedAt
	}
	if execution.PausedAt != nil {
		e.PausedAt = execution.PausedAt
	}

	if e.Dependencies == nil {
		e.Dependencies = make(map[string]StepState)
	}
	for key, value := range execution.Dependencies {
		e.Dependencies[key] = value
	}
	if e.Meta == nil {
		e.Meta = make(map[string]interface{})
	}
	for key, value := range execution.Meta {
		e.Meta[key] = value
	}
}

// Clone creates a deep copy so the caller can mutate it without affecting the
// original. Mutable collections are copied; Input and Output stay shared.
func (e *Execution) Clone() *Execution {
	if e == nil {
		return nil
	}
	e.mux.RLock()
	defer e.mux.RUnlock()

	clone := *e
	clone.mux = sync.RWMutex{}

	if e.Data != nil {
		clone.Data = make(map[string]interface{}, len(e.Data))
		for k, v := range e.Data {
			clone.Data[k] = v
		}
	}
	if e.Meta != nil {
		clone.Meta = make(map[string]interface{}, len(e.Meta))
		for k, v := range e.Meta {
			clone.Meta[k] = v
		}
	}
	if e.Dependencies != nil {
		clone.Dependencies = make(map[string]StepState, len(e.Dependencies))
		for k, v := range e.Dependencies {
			clone.Dependencies[k] = v
		}
	}
	if len(e.DependsOn) > 0 {
		clone.DependsOn = append([]string(nil), e.DependsOn...)
	}
	if e.RunAfter != nil {
		t := *e.RunAfter
		clone.RunAfter = &t
	}
	return &clone
}

func executionID(runID, stepID string) string {
	return fmt.Sprintf("%s-%s-%s", runID, stepID, idgen.New())
}
