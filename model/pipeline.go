package model

import (
	"fmt"
	"time"

	"github.com/mlgate/mlgate/model/graph"
	"github.com/mlgate/mlgate/model/state"
)

// Pipeline represents a pipeline definition.
type Pipeline struct {
	// Source provides information about the origin of the definition
	Source *Source `json:"source,omitempty" yaml:"source,omitempty"`

	// Name is the unique identifier for the pipeline
	Name string `json:"name" yaml:"name"`

	// Description provides a human-readable description
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Imports represents a collection of package imports used by typed parameters
	Imports Imports

	// Version specifies the pipeline version
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Init parameters are applied at the beginning of a run
	Init state.Parameters `json:"init,omitempty" yaml:"init,omitempty"`

	// Steps defines the main execution graph
	Steps *graph.Step `json:"steps,omitempty" yaml:"steps,omitempty"`

	// Dependencies define reusable steps referenced by ID
	Dependencies map[string]*graph.Step `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// Post parameters are applied at the end of a run
	Post state.Parameters `json:"post,omitempty" yaml:"post,omitempty"`

	// Config contains pipeline-level configuration
	Config map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`

	AutoPause *bool `json:"autoPause,omitempty" yaml:"autoPause,omitempty"`
}

// Validate performs best-effort structural validation: duplicate IDs, unknown
// dependency or goto targets, cycles, unreachable steps, template selectors
// and scheduleIn durations. It never evaluates expressions.
func (p *Pipeline) Validate() []error {
	var issues []error

	if p.Steps == nil {
		return append(issues, fmt.Errorf("steps is nil"))
	}

	seen := map[string]bool{}
	var walk func(s *graph.Step)
	walk = func(s *graph.Step) {
		if s == nil {
			return
		}
		if seen[s.ID] {
			issues = append(issues, fmt.Errorf("duplicate step id %s", s.ID))
		}
		seen[s.ID] = true
		seen[s.Name] = true
		for _, dep := range s.DependsOn {
			if dep == s.ID {
				issues = append(issues, fmt.Errorf("step %s depends on itself", s.ID))
			}
		}
		for _, sub := range s.Steps {
			walk(sub)
		}
	}
	walk(p.Steps)
	for _, dep := range p.Dependencies {
		walk(dep)
	}

	var check func(*graph.Step)
	check = func(s *graph.Step) {
		if s == nil {
			return
		}
		for _, dep := range s.DependsOn {
			if !seen[dep] {
				issues = append(issues, fmt.Errorf("step %s depends on unknown step %s", s.ID, dep))
			}
		}
		for _, transition := range s.Goto {
			if transition != nil && transition.Step != "" && !seen[transition.Step] {
				issues = append(issues, fmt.Errorf("step %s goto refers to unknown step %s", s.ID, transition.Step))
			}
		}
		for _, sub := range s.Steps {
			check(sub)
		}
	}
	check(p.Steps)
	for _, dep := range p.Dependencies {
		check(dep)
	}

	// cycle detection over containment and dependsOn edges
	byKey := p.AllSteps()
	edges := map[string][]string{}
	var addEdges func(s *graph.Step)
	addEdges = func(s *graph.Step) {
		if s == nil {
			return
		}
		for _, sub := range s.Steps {
			edges[s.ID] = append(edges[s.ID], sub.ID)
			addEdges(sub)
		}
		for _, dep := range s.DependsOn {
			if target, ok := byKey[dep]; ok {
				edges[s.ID] = append(edges[s.ID], target.ID)
			}
		}
	}
	addEdges(p.Steps)
	for _, dep := range p.Dependencies {
		addEdges(dep)
	}
	const (
		grey  = 1
		black = 2
	)
	colour := map[string]int{}
	var dfs func(string) bool
	dfs = func(n string) bool {
		switch colour[n] {
		case grey:
			return true
		case black:
			return false
		}
		colour[n] = grey
		for _, next := range edges[n] {
			if dfs(next) {
				return true
			}
		}
		colour[n] = black
		return false
	}
	if dfs(p.Steps.ID) {
		issues = append(issues, fmt.Errorf("pipeline contains cyclic dependencies"))
	}

	referenced := map[string]bool{}
	for _, s := range byKey {
		for _, dep := range s.DependsOn {
			referenced[dep] = true
		}
		for _, transition := range s.Goto {
			if transition != nil {
				referenced[transition.Step] = true
			}
		}
	}
	for name, dep := range p.Dependencies {
		if !referenced[name] && !referenced[dep.ID] {
			issues = append(issues, fmt.Errorf("dependency step %s is never referenced", name))
		}
	}

	var walkTemplate func(*graph.Step)
	walkTemplate = func(s *graph.Step) {
		if s == nil {
			return
		}
		if tpl := s.Template; tpl != nil {
			if tpl.Selector == nil || len(*tpl.Selector) == 0 {
				issues = append(issues, fmt.Errorf("step %s has template without selector", s.ID))
			}
		}
		for _, sub := range s.Steps {
			walkTemplate(sub)
		}
	}
	walkTemplate(p.Steps)

	var walkDelay func(*graph.Step)
	walkDelay = func(s *graph.Step) {
		if s == nil {
			return
		}
		if s.ScheduleIn != "" {
			if _, err := time.ParseDuration(s.ScheduleIn); err != nil {
				issues = append(issues, fmt.Errorf("step %s has invalid scheduleIn duration: %v", s.ID, err))
			}
		}
		for _, sub := range s.Steps {
			walkDelay(sub)
		}
	}
	walkDelay(p.Steps)

	return issues
}

// NewPipeline creates a pipeline with the given name.
func NewPipeline(name string) *Pipeline {
	return &Pipeline{
		Name:         name,
		Dependencies: make(map[string]*graph.Step),
	}
}

// WithDescription sets the description.
func (p *Pipeline) WithDescription(description string) *Pipeline {
	p.Description = description
	return p
}

// WithInit adds an initialization parameter.
func (p *Pipeline) WithInit(name string, value interface{}) *Pipeline {
	if p.Init == nil {
		p.Init = make(state.Parameters, 0)
	}
	p.Init.Add(name, value)
	return p
}

// WithPost adds a post-run parameter.
func (p *Pipeline) WithPost(name string, value interface{}) *Pipeline {
	if p.Post == nil {
		p.Post = make(state.Parameters, 0)
	}
	p.Post.Add(name, value)
	return p
}

// NewStep creates a step and attaches it to the root graph.
func (p *Pipeline) NewStep(name string) *graph.Step {
	if p.Steps == nil {
		p.Steps = &graph.Step{ID: p.Name}
	}
	step := &graph.Step{
		ID:        p.Steps.ID + "/" + name,
		Name:      name,
		Namespace: name,
	}
	p.Steps.Steps = append(p.Steps.Steps, step)
	return step
}

// AllSteps returns a lookup of every step by ID and name.
func (p *Pipeline) AllSteps() map[string]*graph.Step {
	steps := make(map[string]*graph.Step)
	p.traverse(p.Steps, steps)
	for _, step := range p.Dependencies {
		p.traverse(step, steps)
	}
	return steps
}

func (p *Pipeline) traverse(step *graph.Step, steps map[string]*graph.Step) {
	if step == nil {
		return
	}
	if _, exists := steps[step.ID]; exists {
		return
	}
	steps[step.ID] = step
	if step.Name != "" {
		steps[step.Name] = step
	}
	for _, sub := range step.Steps {
		p.traverse(sub, steps)
	}
}

// Clone creates a deep copy of the pipeline.
func (p *Pipeline) Clone() *Pipeline {
	if p == nil {
		return nil
	}
	clone := &Pipeline{
		Name:        p.Name,
		Description: p.Description,
		Version:     p.Version,
	}
	if p.Init != nil {
		clone.Init = make(state.Parameters, len(p.Init))
		copy(clone.Init, p.Init)
	}
	if p.Steps != nil {
		clone.Steps = p.Steps.Clone()
	}
	if p.Dependencies != nil {
		clone.Dependencies = make(map[string]*graph.Step, len(p.Dependencies))
		for k, v := range p.Dependencies {
			clone.Dependencies[k] = v.Clone()
		}
	}
	if p.Post != nil {
		clone.Post = make(state.Parameters, len(p.Post))
		copy(clone.Post, p.Post)
	}
	if p.Config != nil {
		clone.Config = make(map[string]interface{}, len(p.Config))
		for k, v := range p.Config {
			clone.Config[k] = v
		}
	}
	return clone
}

// Source captures where a pipeline definition was loaded from.
type Source struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Import represents a package import used by typed parameters.
type Import struct {
	Package string `json:"package,omitempty" yaml:"package,omitempty"`
	PkgPath string `json:"pkgPath,omitempty" yaml:"pkgPath,omitempty"`
}

// Imports is a collection of package imports.
type Imports []*Import

// PkgPath returns the package path registered for the given alias.
func (i Imports) PkgPath(pkg string) string {
	for _, item := range i {
		if item.Package == pkg {
			return item.PkgPath
		}
	}
	return ""
}

// HasPkgPath reports whether the path is already registered.
func (i Imports) HasPkgPath(pkgPath string) bool {
	for _, item := range i {
		if item.PkgPath == pkgPath {
			return true
		}
	}
	return false
}
