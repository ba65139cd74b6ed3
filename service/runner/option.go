package runner

import (
	"github.com/mlgate/mlgate/runtime/execution"
	"github.com/mlgate/mlgate/service/dao"
	"github.com/mlgate/mlgate/service/executor"
	"github.com/mlgate/mlgate/service/messaging"
)

// Option customises the runner service.
type Option func(*Service)

// WithRunDAO sets the run store implementation.
func WithRunDAO(runDAO dao.Service[string, execution.Run]) Option {
	return func(s *Service) {
		s.runDAO = runDAO
	}
}

// WithExecutionDAO sets the step execution store implementation.
func WithExecutionDAO(executionDAO dao.Service[string, execution.Execution]) Option {
	return func(s *Service) {
		s.executionDAO = executionDAO
	}
}

// WithMessageQueue sets the execution queue implementation.
func WithMessageQueue(queue messaging.Queue[execution.Execution]) Option {
	return func(s *Service) {
		s.queue = queue
	}
}

// WithExecutor sets the step executor.
func WithExecutor(executor executor.Service) Option {
	return func(s *Service) {
		s.executor = executor
	}
}

// WithWorkers sets the number of worker goroutines.
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.WorkerCount = count
	}
}

// WithSessionListeners registers state listeners copied to every run session.
func WithSessionListeners(fns ...execution.StateListener) Option {
	return func(s *Service) {
		s.sessionListeners = append(s.sessionListeners, fns...)
	}
}

// WithWhenListeners registers callbacks invoked after every when-condition
// evaluation.
func WithWhenListeners(fns ...execution.WhenListener) Option {
	return func(s *Service) {
		s.whenListeners = append(s.whenListeners, fns...)
	}
}

// WithConfig sets the runner configuration.
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}
