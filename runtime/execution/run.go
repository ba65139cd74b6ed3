package execution

import (
	"context"
	"sync"
	"time"

	"github.com/mlgate/mlgate/model"
	"github.com/mlgate/mlgate/model/graph"
	"github.com/mlgate/mlgate/policy"
	"github.com/mlgate/mlgate/tracing"
)

// Run state constants.
const (
	StatePending   = "pending"
	StateRunning   = "running"
	StatePaused    = "paused"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// Run represents a pipeline execution instance.
type Run struct {
	ID         string            `json:"id"`
	ParentID   string            `json:"parentId,omitempty"`
	SCN        int               `json:"scn"`
	Name       string            `json:"name"`
	State      string            `json:"state"`
	Pipeline   *model.Pipeline   `json:"pipeline"`
	CreatedAt  time.Time         `json:"createdAt"`
	UpdatedAt  time.Time         `json:"updatedAt"`
	FinishedAt *time.Time        `json:"finishedAt"`
	Session    *Session          `json:"session"`
	Stack      []*Execution      `json:"stack,omitempty"`
	Errors     map[string]string `json:"errors,omitempty"`
	Span       *tracing.Span     `json:"-"`
	Mode       string            `json:"mode"`

	ActiveStepCount  int             `json:"activeStepCount"`
	ActiveStepGroups map[string]bool `json:"activeStepGroups"`
	Policy           *policy.Config  `json:"policy,omitempty"`

	mu       sync.RWMutex
	allSteps map[string]*graph.Step // cached step lookup
}

// NewRun creates a run for the given pipeline with optional initial state.
func NewRun(id string, name string, pipeline *model.Pipeline, initialState map[string]interface{}) *Run {
	now := time.Now()
	if initialState == nil {
		initialState = make(map[string]interface{})
	}
	return &Run{
		ID:               id,
		Name:             name,
		State:            StatePending,
		Pipeline:         pipeline,
		CreatedAt:        now,
		UpdatedAt:        now,
		Session:          NewSession(id, WithState(initialState)),
		ActiveStepGroups: make(map[string]bool),
		Errors:           make(map[string]string),
	}
}

// RegisterStep adds a step (and its sub-steps) to the run's lookup map at
// runtime, used for template expansions that create steps after the pipeline
// has started executing.
func (r *Run) RegisterStep(s *graph.Step) {
	if s == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.allSteps == nil {
		r.allSteps = make(map[string]*graph.Step)
	}
	var recurse func(*graph.Step)
	recurse = func(step *graph.Step) {
		if step == nil {
			return
		}
		if _, exists := r.allSteps[step.ID]; !exists {
			r.allSteps[step.ID] = step
			if step.Name != "" {
				r.allSteps[step.Name] = step
			}
		}
		for _, sub := range step.Steps {
			recurse(sub)
		}
		if step.Template != nil {
			recurse(step.Template.Step)
		}
	}
	recurse(s)
}

// SetDep records a dependency state inside e.Dependencies.
func (r *Run) SetDep(e *Execution, stepID string, state StepState) {
	e.mux.Lock()
	if e.Dependencies == nil {
		e.Dependencies = make(map[string]StepState)
	}
	e.Dependencies[stepID] = state
	e.mux.Unlock()
}

// GetDep reads a dependency state; the second result indicates presence.
func (r *Run) GetDep(e *Execution, stepID string) (StepState, bool) {
	e.mux.RLock()
	val, ok := e.Dependencies[stepID]
	e.mux.RUnlock()
	return val, ok
}

// CopyFrom updates exported fields from src, skipping the mutex.
func (r *Run) CopyFrom(src any) {
	other, ok := src.(*Run)
	if !ok || other == nil || r == other {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.SCN = other.SCN
	r.State = other.State
	r.UpdatedAt = other.UpdatedAt
	r.FinishedAt = other.FinishedAt
	r.Stack = other.Stack
	r.Errors = other.Errors
	r.ActiveStepCount = other.ActiveStepCount
	r.ActiveStepGroups = other.ActiveStepGroups
}

// Wait blocks until a run reaches a terminal state or the timeout elapses.
type Wait func(ctx context.Context, timeout time.Duration) (*RunOutput, error)

// RunOutput summarises a finished (or timed out) run.
type RunOutput struct {
	RunID     string
	State     string
	Output    map[string]interface{}
	Errors    map[string]string
	TimeTaken time.Duration
	Timeout   bool
}

// LookupStep returns a step by ID or name.
func (r *Run) LookupStep(stepID string) *graph.Step {
	return r.AllSteps()[stepID]
}

// LookupExecution returns the most recent execution for a step.
func (r *Run) LookupExecution(stepID string) *Execution {
	for i := len(r.Stack) - 1; i >= 0; i-- {
		if r.Stack[i].StepID == stepID {
			return r.Stack[i]
		}
	}
	return nil
}

// AllSteps returns (building lazily) the ID and name lookup for every step.
func (r *Run) AllSteps() map[string]*graph.Step {
	r.mu.RLock()
	ret := r.allSteps
	r.mu.RUnlock()
	if ret != nil {
		return ret
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.allSteps = r.Pipeline.AllSteps()
	return r.allSteps
}

func (r *Run) Push(executions ...*Execution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Stack = append(r.Stack, executions...)
}

// Remove filters anExecution out of the stack, preserving order.
func (r *Run) Remove(anExecution *Execution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Stack) == 0 || anExecution == nil {
		return
	}
	newStack := r.Stack[:0]
	for _, exec := range r.Stack {
		if exec.ID != anExecution.ID {
			newStack = append(newStack, exec)
		}
	}
	r.Stack = newStack
}

func (r *Run) Peek() *Execution {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Stack) == 0 {
		return nil
	}
	return r.Stack[len(r.Stack)-1]
}

// GetState returns the run state.
func (r *Run) GetState() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.State
}

// SetState updates the run state and timestamps.
func (r *Run) SetState(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.State = state
	switch state {
	case StateCompleted, StateFailed:
		now := time.Now()
		r.FinishedAt = &now
	}
	r.UpdatedAt = time.Now()
}

// IncrementActiveStepCount increments the active step counter.
func (r *Run) IncrementActiveStepCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ActiveStepCount++
	return r.ActiveStepCount
}

// DecrementActiveStepCount decrements the active step counter.
func (r *Run) DecrementActiveStepCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ActiveStepCount > 0 {
		r.ActiveStepCount--
	}
	return r.ActiveStepCount
}

// GetActiveStepCount returns the current active step count.
func (r *Run) GetActiveStepCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ActiveStepCount
}

// AddActiveStepGroup marks a step group as active.
func (r *Run) AddActiveStepGroup(groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ActiveStepGroups[groupID] = true
}

// RemoveActiveStepGroup removes a step group from the active set.
func (r *Run) RemoveActiveStepGroup(groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.ActiveStepGroups, groupID)
}

// HasActiveStepGroup checks whether a step group is active.
func (r *Run) HasActiveStepGroup(groupID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.ActiveStepGroups[groupID]
	return exists
}

// Clone creates a deep copy suitable for mutation outside the original
// store. The Pipeline pointer is shared; pipelines are immutable after load.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	out := &Run{
		ID:              r.ID,
		ParentID:        r.ParentID,
		SCN:             r.SCN,
		Name:            r.Name,
		State:           r.State,
		Pipeline:        r.Pipeline,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
		FinishedAt:      r.FinishedAt,
		Session:         r.Session, // has own locking
		Span:            r.Span,
		Mode:            r.Mode,
		ActiveStepCount: r.ActiveStepCount,
		Policy:          r.Policy,
	}

	if len(r.Stack) > 0 {
		out.Stack = make([]*Execution, len(r.Stack))
		for i, ex := range r.Stack {
			out.Stack[i] = ex.Clone()
		}
	}
	if r.Errors != nil {
		out.Errors = make(map[string]string, len(r.Errors))
		for k, v := range r.Errors {
			out.Errors[k] = v
		}
	}
	if r.ActiveStepGroups != nil {
		out.ActiveStepGroups = make(map[string]bool, len(r.ActiveStepGroups))
		for k, v := range r.ActiveStepGroups {
			out.ActiveStepGroups[k] = v
		}
	}

	// carry dynamically registered steps so template-generated lookups keep
	// working after the run round-trips through a store
	if r.allSteps != nil {
		out.allSteps = make(map[string]*graph.Step, len(r.allSteps))
		for k, v := range r.allSteps {
			out.allSteps[k] = v
		}
	}
	return out
}
