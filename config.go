package mlgate

import (
	"fmt"
	"time"

	"github.com/mlgate/mlgate/service/action/automl"
	"github.com/mlgate/mlgate/service/action/tuner"
)

func pollingInterval(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Config is a serialisable representation of the engine configuration. It can
// be populated from JSON or YAML; the zero-value is usable and nested fields
// inherit their package defaults.
type Config struct {
	Runner    RunnerConfig    `json:"runner" yaml:"runner"`
	Scheduler SchedulerConfig `json:"scheduler" yaml:"scheduler"`

	// AutoML configures the managed training backend used by the automl
	// action; leave empty when pipelines do not train remotely.
	AutoML automl.Config `json:"automl,omitempty" yaml:"automl,omitempty"`

	// Tuner configures the hyper-parameter tuning backend used by the tuner
	// action.
	Tuner tuner.Config `json:"tuner,omitempty" yaml:"tuner,omitempty"`
}

// RunnerConfig controls the step execution worker pool.
type RunnerConfig struct {
	WorkerCount int `json:"workers" yaml:"workers"`
}

// SchedulerConfig controls how often runs are polled for ready steps.
type SchedulerConfig struct {
	PollingIntervalMs int `json:"pollingIntervalMs" yaml:"pollingIntervalMs"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() *Config {
	return &Config{
		Runner:    RunnerConfig{WorkerCount: 5},
		Scheduler: SchedulerConfig{PollingIntervalMs: 20},
	}
}

// Validate returns an error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.Runner.WorkerCount <= 0 {
		return fmt.Errorf("runner.workers must be > 0")
	}
	if c.Scheduler.PollingIntervalMs <= 0 {
		return fmt.Errorf("scheduler.pollingIntervalMs must be > 0")
	}
	return nil
}
