package mlgate

import (
	"context"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/x"

	"github.com/mlgate/mlgate/extension"
	"github.com/mlgate/mlgate/model/types"
	"github.com/mlgate/mlgate/runtime/execution"
	"github.com/mlgate/mlgate/service/action/automl"
	"github.com/mlgate/mlgate/service/action/gate"
	"github.com/mlgate/mlgate/service/action/nop"
	apipeline "github.com/mlgate/mlgate/service/action/pipeline"
	"github.com/mlgate/mlgate/service/action/printer"
	aexec "github.com/mlgate/mlgate/service/action/system/exec"
	apatch "github.com/mlgate/mlgate/service/action/system/patch"
	asecret "github.com/mlgate/mlgate/service/action/system/secret"
	astorage "github.com/mlgate/mlgate/service/action/system/storage"
	"github.com/mlgate/mlgate/service/action/tuner"
	"github.com/mlgate/mlgate/service/approval"
	amemory "github.com/mlgate/mlgate/service/approval/memory"
	ememory "github.com/mlgate/mlgate/service/dao/execution/memory"
	"github.com/mlgate/mlgate/service/dao/pipeline"
	rmemory "github.com/mlgate/mlgate/service/dao/run/memory"
	"github.com/mlgate/mlgate/service/event"
	"github.com/mlgate/mlgate/service/executor"
	"github.com/mlgate/mlgate/service/messaging"
	qmemory "github.com/mlgate/mlgate/service/messaging/memory"
	"github.com/mlgate/mlgate/service/meta"
	"github.com/mlgate/mlgate/service/runner"
	"github.com/mlgate/mlgate/service/scheduler"
)

// Service is the engine facade: it wires the definition store, the scheduler,
// the runner worker pool and the built-in actions into a single runtime.
type Service struct {
	config            *Config
	runtime           *Runtime
	metaService       *meta.Service
	actions           *extension.Actions
	extensionTypes    []*x.Type
	extensionServices []types.Service
	executor          executor.Service
	executorOptions   []executor.Option
	queue             messaging.Queue[execution.Execution]
	eventService      *event.Service
	approvalService   approval.Service
	rootStepNodeName  string
	metaBaseURL       string
	metaFsOptions     []storage.Option
	runnerWorkers     int
	whenListeners     []execution.WhenListener
	stateListeners    []execution.StateListener
}

func (s *Service) init(options []Option) {
	for _, option := range options {
		option(s)
	}
	if s.config == nil {
		s.config = DefaultConfig()
	}
	s.ensureBaseSetup()
	s.actions = extension.NewActions(s.extensionTypes...)
	s.executor = executor.NewService(s.actions, s.executorOptions...)

	workers := s.runnerWorkers
	if workers == 0 {
		workers = s.config.Runner.WorkerCount
	}
	s.runtime.runner, _ = runner.New(
		runner.WithExecutor(s.executor),
		runner.WithMessageQueue(s.queue),
		runner.WithWorkers(workers),
		runner.WithRunDAO(s.runtime.runDAO),
		runner.WithExecutionDAO(s.runtime.executionDAO),
		runner.WithSessionListeners(s.stateListeners...),
		runner.WithWhenListeners(s.whenListeners...))

	s.actions.Register(printer.New())
	s.actions.Register(nop.New())
	s.actions.Register(aexec.New())
	s.actions.Register(astorage.New())
	s.actions.Register(asecret.New())
	s.actions.Register(apatch.New())
	s.actions.Register(gate.New())
	s.actions.Register(automl.New(s.config.AutoML))
	s.actions.Register(tuner.New(s.config.Tuner))
	for _, service := range s.extensionServices {
		s.actions.Register(service)
	}
	s.runtime.pipelineService = apipeline.New(s.runtime.runner, s.runtime.pipelineDAO, s.runtime.runDAO)
	s.actions.Register(s.runtime.pipelineService)

	schedulerConfig := scheduler.DefaultConfig()
	if s.config.Scheduler.PollingIntervalMs > 0 {
		schedulerConfig.PollingInterval = pollingInterval(s.config.Scheduler.PollingIntervalMs)
	}
	s.runtime.scheduler = scheduler.New(s.runtime.runDAO, s.runtime.executionDAO, s.queue, schedulerConfig)
	s.runtime.queue = s.queue
	s.runtime.events = s.eventService
	s.runtime.actions = s.actions
	if s.approvalService == nil {
		s.approvalService = amemory.New(s.runtime.executionDAO,
			amemory.WithRunDAO(s.runtime.runDAO),
			amemory.WithExecutionQueue(s.queue))
	}
	s.runtime.approval = s.approvalService
}

func (s *Service) ensureBaseSetup() {
	if s.metaService == nil {
		s.metaService = meta.New(afs.New(), s.metaBaseURL, s.metaFsOptions...)
	}
	if s.runtime.pipelineDAO == nil {
		opts := []pipeline.Option{pipeline.WithMetaService(s.metaService)}
		if s.rootStepNodeName != "" {
			opts = append(opts, pipeline.WithRootStepNodeName(s.rootStepNodeName))
		}
		s.runtime.pipelineDAO = pipeline.New(opts...)
	}
	if s.queue == nil {
		s.queue = qmemory.NewQueue[execution.Execution](qmemory.DefaultConfig())
	}
	if s.runtime.runDAO == nil {
		s.runtime.runDAO = rmemory.New()
	}
	if s.runtime.executionDAO == nil {
		s.runtime.executionDAO = ememory.New()
	}
	if s.eventService == nil {
		s.eventService, _ = event.New("memory",
			event.WithNewMemoryQueueConfig(func(string) qmemory.Config {
				return qmemory.DefaultConfig()
			}))
	}
}

// NewContext returns a context carrying the action registry and event
// service, suitable for scheduling executions directly.
func (s *Service) NewContext(ctx context.Context) context.Context {
	return execution.NewContext(ctx, s.actions, s.eventService)
}

// RegisterExtensionTypes registers additional go types usable by typed
// pipeline parameters.
func (s *Service) RegisterExtensionTypes(types ...*x.Type) {
	for i := range types {
		s.actions.Types().Register(types[i])
	}
}

// RegisterExtensionServices registers additional action services.
func (s *Service) RegisterExtensionServices(services ...types.Service) {
	for i := range services {
		s.actions.Register(services[i])
	}
}

// Runtime returns the engine runtime.
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Approval returns the approval service.
func (s *Service) Approval() approval.Service {
	return s.approvalService
}

// New creates an engine service.
func New(options ...Option) *Service {
	ret := &Service{runtime: &Runtime{}}
	ret.init(options)
	return ret
}
