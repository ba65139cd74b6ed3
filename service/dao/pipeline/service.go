// Package pipeline loads pipeline definitions from YAML documents.
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"gopkg.in/yaml.v3"

	"github.com/mlgate/mlgate/internal/yml"
	"github.com/mlgate/mlgate/model"
	"github.com/mlgate/mlgate/model/graph"
	"github.com/mlgate/mlgate/model/state"
	"github.com/mlgate/mlgate/service/dao/pipeline/parameters"
	"github.com/mlgate/mlgate/service/meta"
)

// Service parses pipeline definitions, resolving assets through a meta
// service.
type Service struct {
	metaService      *meta.Service
	rootStepNodeName string
}

// RootStepNodeName returns the mapping key holding the step graph.
func (s *Service) RootStepNodeName() string {
	return s.rootStepNodeName
}

// DecodeYAML decodes a pipeline from raw YAML.
func (s *Service) DecodeYAML(encoded []byte) (*model.Pipeline, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(encoded, &node); err != nil {
		return nil, err
	}
	return s.ParsePipeline("", &node)
}

// Load loads a pipeline definition from the given URL; a missing extension
// defaults to .yaml.
func (s *Service) Load(ctx context.Context, URL string) (*model.Pipeline, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	var node yaml.Node
	if err := s.metaService.Load(ctx, URL, &node); err != nil {
		return nil, fmt.Errorf("failed to load pipeline from %s: %w", URL, err)
	}
	return s.ParsePipeline(URL, &node)
}

// ParsePipeline converts a YAML document into a pipeline model, assigns
// hierarchical step IDs and validates the result.
func (s *Service) ParsePipeline(URL string, node *yaml.Node) (*model.Pipeline, error) {
	pipeline := &model.Pipeline{
		Source: &model.Source{URL: URL},
		Name:   pipelineNameFromURL(URL),
	}
	if err := s.parsePipeline((*yml.Node)(node), pipeline); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline from %s: %w", URL, err)
	}
	if pipeline.Name == "" {
		pipeline.Name = generateAnonymousName()
	}
	if pipeline.Steps != nil {
		assignStepIDs(pipeline.Steps, pipeline.Name, "")
	}
	if issues := pipeline.Validate(); len(issues) > 0 {
		return nil, issues[0]
	}
	return pipeline, nil
}

func pipelineNameFromURL(URL string) string {
	base := filepath.Base(URL)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// assignStepIDs rewrites step IDs into hierarchical parent/child paths and
// defaults namespaces to step names.
func assignStepIDs(step *graph.Step, pipelineName, parentID string) {
	if step.ID == "" && parentID == "" {
		step.ID = pipelineName
	}
	if step.Namespace == "" && step.Name != "" {
		step.Namespace = step.Name
	}
	stepID := step.ID
	if parentID != "" {
		stepID = parentID + "/" + stepID
	}
	step.ID = stepID
	for _, subStep := range step.Steps {
		assignStepIDs(subStep, pipelineName, stepID)
	}
	if step.Template != nil && step.Template.Step != nil {
		assignStepIDs(step.Template.Step, pipelineName, stepID)
	}
}

func (s *Service) parsePipeline(node *yml.Node, pipeline *model.Pipeline) error {
	rootNode := node
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		rootNode = (*yml.Node)(node.Content[0])
	}
	rootNodeName := strings.ToLower(s.rootStepNodeName)
	return rootNode.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "name":
			if valueNode.Kind == yaml.ScalarNode {
				pipeline.Name = valueNode.Value
			}
		case "description":
			if valueNode.Kind == yaml.ScalarNode {
				pipeline.Description = valueNode.Value
			}
		case "version":
			if valueNode.Kind == yaml.ScalarNode {
				pipeline.Version = valueNode.Value
			}
		case "import":
			pipeline.Imports = make(model.Imports, 0)
			if valueNode.Kind == yaml.MappingNode {
				if err := valueNode.Pairs(func(alias string, pathNode *yml.Node) error {
					pipeline.Imports = append(pipeline.Imports, &model.Import{Package: alias, PkgPath: pathNode.Value})
					return nil
				}); err != nil {
					return fmt.Errorf("failed to parse import: %w", err)
				}
			}
		case "autopause":
			flag, ok := valueNode.Interface().(bool)
			if !ok {
				return fmt.Errorf("autopause should be a boolean")
			}
			pipeline.AutoPause = &flag
		case "config":
			if valueNode.Kind == yaml.MappingNode {
				config, _ := valueNode.Interface().(map[string]interface{})
				pipeline.Config = config
			}
		case "init":
			init, err := parseParameters(valueNode)
			if err != nil {
				return fmt.Errorf("failed to parse init parameters: %w", err)
			}
			pipeline.Init = init
		case "post":
			post, err := parseParameters(valueNode)
			if err != nil {
				return fmt.Errorf("failed to parse post parameters: %w", err)
			}
			pipeline.Post = post
		case rootNodeName:
			steps, err := s.parseRootStep(valueNode)
			if err != nil {
				return fmt.Errorf("failed to parse steps: %w", err)
			}
			pipeline.Steps = steps
		case "dependencies":
			pipeline.Dependencies = make(map[string]*graph.Step)
			deps, err := s.parseRootStep(valueNode)
			if err != nil {
				return fmt.Errorf("failed to parse dependencies: %w", err)
			}
			for i := range deps.Steps {
				dep := deps.Steps[i]
				pipeline.Dependencies[dep.Name] = dep
			}
		}
		return nil
	})
}

func (s *Service) parseRootStep(node *yml.Node) (*graph.Step, error) {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%s node should be a mapping", s.rootStepNodeName)
	}
	root := &graph.Step{}
	var steps []*graph.Step
	err := node.Pairs(func(key string, stepNode *yml.Node) error {
		step, err := s.parseStep(key, stepNode)
		if err != nil {
			return err
		}
		steps = append(steps, step)
		return nil
	})
	if err != nil {
		return nil, err
	}
	root.Steps = steps
	return root, nil
}

func (s *Service) parseStep(id string, node *yml.Node) (*graph.Step, error) {
	step := &graph.Step{
		ID:   id,
		Name: id,
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("step node should be a mapping")
	}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "action":
			if valueNode.Kind == yaml.ScalarNode {
				parts := strings.Split(valueNode.Value, ":")
				action := &graph.Action{Service: parts[0]}
				if len(parts) > 1 {
					action.Method = parts[1]
				}
				if step.Action != nil {
					action.Input = step.Action.Input
				}
				step.Action = action
			} else if valueNode.Kind == yaml.MappingNode {
				action := &graph.Action{}
				_ = valueNode.Pairs(func(actionKey string, actionValue *yml.Node) error {
					switch strings.ToLower(actionKey) {
					case "service":
						action.Service = actionValue.Value
					case "method":
						action.Method = actionValue.Value
					case "input":
						action.Input = actionValue.Interface()
					}
					return nil
				})
				step.Action = action
			}
		case "async":
			flag, ok := valueNode.Interface().(bool)
			if !ok {
				return fmt.Errorf("async should be a boolean")
			}
			step.Async = flag
		case "init":
			params, err := parseParameters(valueNode)
			if err != nil {
				return err
			}
			step.Init = params
		case "post":
			params, err := parseParameters(valueNode)
			if err != nil {
				return err
			}
			step.Post = params
		case "when":
			if valueNode.Kind == yaml.ScalarNode {
				step.When = valueNode.Value
			}
		case "name":
			if valueNode.Kind == yaml.ScalarNode {
				step.Name = valueNode.Value
			}
		case "autopause":
			flag, ok := valueNode.Interface().(bool)
			if !ok {
				return fmt.Errorf("autopause should be a boolean")
			}
			step.AutoPause = &flag
		case "namespace":
			if valueNode.Kind == yaml.ScalarNode {
				step.Namespace = valueNode.Value
			}
		case "schedulein":
			if valueNode.Kind == yaml.ScalarNode {
				step.ScheduleIn = valueNode.Value
			}
		case "retry":
			if valueNode.Kind == yaml.MappingNode {
				retry := &graph.Retry{}
				if err := (*yaml.Node)(valueNode).Decode(retry); err != nil {
					return fmt.Errorf("failed to parse retry: %w", err)
				}
				step.Retry = retry
			}
		case "dependson":
			switch valueNode.Kind {
			case yaml.SequenceNode:
				for _, depNode := range valueNode.Content {
					if depNode.Kind != yaml.ScalarNode {
						return fmt.Errorf("dependsOn should be a string or a slice of strings")
					}
					step.DependsOn = append(step.DependsOn, depNode.Value)
				}
			case yaml.ScalarNode:
				step.DependsOn = []string{valueNode.Value}
			}
		case "goto":
			if valueNode.Kind == yaml.SequenceNode {
				for _, transitionNode := range valueNode.Content {
					transition, err := parseTransition((*yml.Node)(transitionNode))
					if err != nil {
						return err
					}
					step.Goto = append(step.Goto, transition)
				}
			} else if valueNode.Kind == yaml.MappingNode {
				transition, err := parseTransition(valueNode)
				if err != nil {
					return err
				}
				step.Goto = append(step.Goto, transition)
			}
		case "input":
			if step.Action == nil {
				step.Action = &graph.Action{}
			}
			step.Action.Input = valueNode.Interface()
		case "template":
			if valueNode.Kind == yaml.MappingNode {
				template := &graph.Template{}
				if err := valueNode.Pairs(func(innerKey string, innerNode *yml.Node) error {
					switch strings.ToLower(innerKey) {
					case "selector":
						params, err := parseSelector(innerNode)
						if err != nil {
							return err
						}
						template.Selector = &params
					case "step":
						if innerNode.Kind == yaml.MappingNode {
							// a single child mapping defines the repeated step
							return innerNode.Pairs(func(stepKey string, stepNode *yml.Node) error {
								child, err := s.parseStep(stepKey, stepNode)
								if err != nil {
									return err
								}
								template.Step = child
								return nil
							})
						}
					}
					return nil
				}); err != nil {
					return fmt.Errorf("failed to parse template for step %s: %w", id, err)
				}
				step.Template = template
			}
		default:
			// any other mapping value defines a sub-step
			if valueNode.Kind == yaml.MappingNode {
				subStep, err := s.parseStep(key, valueNode)
				if err != nil {
					return err
				}
				step.Steps = append(step.Steps, subStep)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if step.Namespace == "" {
		step.Namespace = step.Name
	}
	return step, nil
}

func parseTransition(node *yml.Node) (*graph.Transition, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("transition node should be a mapping")
	}
	transition := &graph.Transition{}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		switch strings.ToLower(key) {
		case "when":
			if valueNode.Kind == yaml.ScalarNode {
				transition.When = valueNode.Value
			}
		case "step":
			if valueNode.Kind == yaml.ScalarNode {
				transition.Step = valueNode.Value
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return transition, nil
}

func parseParameters(node *yml.Node) (state.Parameters, error) {
	var params state.Parameters
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parameters node should be a mapping")
	}
	err := node.Pairs(func(key string, valueNode *yml.Node) error {
		if strings.Contains(key, "[") && !strings.HasSuffix(key, "[]") {
			parameter, err := parameters.Parse([]byte(key))
			if err != nil {
				return fmt.Errorf("failed to parse parameter: %w", err)
			}
			parameter.Value = valueNode.Interface()
			params = append(params, parameter)
			return nil
		}
		val := valueNode.Interface()
		// numeric scalars decode as int; widen to float64 so values compare
		// stably with JSON round-tripped state
		switch typed := val.(type) {
		case int:
			val = float64(typed)
		case int64:
			val = float64(typed)
		case uint:
			val = float64(typed)
		case uint64:
			val = float64(typed)
		}
		params = append(params, &state.Parameter{Name: key, Value: val})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return params, nil
}

// parseSelector parses a sequence of name/value mappings into parameters.
func parseSelector(node *yml.Node) (state.Parameters, error) {
	var params state.Parameters
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("selector node should be a sequence")
	}
	for _, item := range node.Content {
		if item.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("selector items must be mappings")
		}
		var name string
		var value interface{}
		if err := (*yml.Node)(item).Pairs(func(key string, valueNode *yml.Node) error {
			switch strings.ToLower(key) {
			case "name":
				name = valueNode.Value
			case "value":
				value = valueNode.Interface()
			}
			return nil
		}); err != nil {
			return nil, err
		}
		params = append(params, &state.Parameter{Name: name, Value: value})
	}
	return params, nil
}

// New creates a pipeline definition service.
func New(opts ...Option) *Service {
	ret := &Service{
		metaService:      meta.New(afs.New(), ""),
		rootStepNodeName: "steps",
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}
