package pipeline

import "github.com/mlgate/mlgate/service/meta"

// Option customizes the pipeline definition service.
type Option func(*Service)

// WithRootStepNodeName sets the mapping key holding the step graph.
func WithRootStepNodeName(name string) Option {
	return func(s *Service) {
		s.rootStepNodeName = name
	}
}

// WithMetaService sets the asset loader.
func WithMetaService(meta *meta.Service) Option {
	return func(s *Service) {
		s.metaService = meta
	}
}
