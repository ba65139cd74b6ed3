package graph

import (
	"github.com/mlgate/mlgate/model/state"
)

type (
	// Action binds a step to a registered service method with an optional
	// declarative input.
	Action struct {
		Service string      `json:"service,omitempty" yaml:"service,omitempty"`
		Method  string      `json:"method,omitempty" yaml:"method,omitempty"`
		Input   interface{} `json:"input,omitempty" yaml:"input,omitempty"`
	}

	// Step is a node of the pipeline execution graph.
	Step struct {
		ID        string           `json:"id,omitempty" yaml:"id,omitempty"`
		Name      string           `json:"name,omitempty" yaml:"name,omitempty"`
		Namespace string           `json:"namespace,omitempty" yaml:"namespace,omitempty"`
		Init      state.Parameters `json:"init,omitempty" yaml:"init,omitempty"`
		When      string           `json:"when,omitempty" yaml:"when,omitempty"`
		Action    *Action          `json:"action,omitempty" yaml:"action,omitempty"`
		DependsOn []string         `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
		Steps     []*Step          `json:"steps,omitempty" yaml:"steps,omitempty"`
		Post      state.Parameters `json:"post,omitempty" yaml:"post,omitempty"`
		Template  *Template        `json:"template,omitempty" yaml:"template,omitempty"`
		Goto      []*Transition    `json:"goto,omitempty" yaml:"goto,omitempty"`
		Async     bool             `json:"async,omitempty" yaml:"async,omitempty"`
		AutoPause *bool            `json:"autoPause,omitempty" yaml:"autoPause,omitempty"`
		Retry     *Retry           `json:"retry,omitempty" yaml:"retry,omitempty"`
		// ScheduleIn delays execution by a duration string.
		ScheduleIn string `json:"scheduleIn,omitempty" yaml:"scheduleIn,omitempty"`
	}

	// Retry declares the retry strategy for a failing step.
	Retry struct {
		Type       string  `json:"type,omitempty" yaml:"type,omitempty"` // fixed, exponential, none
		MaxRetries int     `json:"maxRetries,omitempty" yaml:"maxRetries,omitempty"`
		Delay      string  `json:"delay,omitempty" yaml:"delay,omitempty"`
		Multiplier float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
		MaxDelay   string  `json:"maxDelay,omitempty" yaml:"maxDelay,omitempty"`
	}

	// Template describes a fan-out: the step subgraph is cloned once per
	// element selected from the session state (e.g. one trial per candidate
	// hyperparameter set).
	Template struct {
		Step     *Step             `json:"step,omitempty" yaml:"step,omitempty"`
		Selector *state.Parameters `json:"selector,omitempty" yaml:"selector,omitempty"`
	}

	// Transition routes execution to another step when its condition holds;
	// the deployment gate's deploy/hold branch is expressed this way.
	Transition struct {
		When string `json:"when,omitempty" yaml:"when,omitempty"`
		Step string `json:"step,omitempty" yaml:"step,omitempty"`
	}
)

// IsAsync reports whether sub-steps run concurrently.
func (s *Step) IsAsync() bool {
	return s.Async
}

// IsAutoPause reports whether the step pauses its run once scheduled.
func (s *Step) IsAutoPause() bool {
	return s.AutoPause != nil && *s.AutoPause
}

// WithAction sets the step action.
func (s *Step) WithAction(service string, method string, input interface{}) *Step {
	s.Action = &Action{Service: service, Method: method, Input: input}
	return s
}

// WithInit adds an initialization parameter.
func (s *Step) WithInit(name string, value interface{}) *Step {
	if s.Init == nil {
		s.Init = make(state.Parameters, 0)
	}
	s.Init.Add(name, value)
	return s
}

// WithPost adds a post-execution parameter.
func (s *Step) WithPost(name string, value interface{}) *Step {
	if s.Post == nil {
		s.Post = make(state.Parameters, 0)
	}
	s.Post.Add(name, value)
	return s
}

// WithDependsOn adds a dependency.
func (s *Step) WithDependsOn(stepID string) *Step {
	s.DependsOn = append(s.DependsOn, stepID)
	return s
}

// WithGoto adds a conditional transition.
func (s *Step) WithGoto(when string, stepName string) *Step {
	s.Goto = append(s.Goto, &Transition{When: when, Step: stepName})
	return s
}

// AddSubStep adds a named sub-step and returns it.
func (s *Step) AddSubStep(name string) *Step {
	sub := &Step{
		ID:        s.ID + "/" + name,
		Name:      name,
		Namespace: name,
	}
	s.Steps = append(s.Steps, sub)
	return sub
}

// Clone creates a deep copy of the step.
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	clone := &Step{
		ID:         s.ID,
		Name:       s.Name,
		Namespace:  s.Namespace,
		When:       s.When,
		Async:      s.Async,
		ScheduleIn: s.ScheduleIn,
	}
	if s.DependsOn != nil {
		clone.DependsOn = append([]string(nil), s.DependsOn...)
	}
	if s.Init != nil {
		clone.Init = make(state.Parameters, len(s.Init))
		copy(clone.Init, s.Init)
	}
	if s.Post != nil {
		clone.Post = make(state.Parameters, len(s.Post))
		copy(clone.Post, s.Post)
	}
	if s.Action != nil {
		clone.Action = &Action{
			Service: s.Action.Service,
			Method:  s.Action.Method,
			Input:   s.Action.Input,
		}
	}
	if s.Steps != nil {
		clone.Steps = make([]*Step, len(s.Steps))
		for i, sub := range s.Steps {
			clone.Steps[i] = sub.Clone()
		}
	}
	if s.Template != nil {
		clone.Template = &Template{
			Step:     s.Template.Step.Clone(),
			Selector: s.Template.Selector,
		}
	}
	if s.Goto != nil {
		clone.Goto = make([]*Transition, len(s.Goto))
		for i, transition := range s.Goto {
			clone.Goto[i] = &Transition{When: transition.When, Step: transition.Step}
		}
	}
	if s.Retry != nil {
		retry := *s.Retry
		clone.Retry = &retry
	}
	return clone
}
