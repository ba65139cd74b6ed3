package event

import (
	"github.com/mlgate/mlgate/service/messaging/fs"
	"github.com/mlgate/mlgate/service/messaging/memory"
)

type Option func(s *Service)

// WithNewFsQueueConfig sets the filesystem queue configuration factory.
func WithNewFsQueueConfig(newConfig func(name string) fs.QueueConfig) Option {
	return func(s *Service) {
		s.fsNewQueueConfig = newConfig
	}
}

// WithNewMemoryQueueConfig sets the memory queue configuration factory.
func WithNewMemoryQueueConfig(newConfig func(name string) memory.Config) Option {
	return func(s *Service) {
		s.memNewQueueConfig = newConfig
	}
}
