package mlgate

import (
	"github.com/viant/afs/storage"
	"github.com/viant/x"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mlgate/mlgate/model/types"
	"github.com/mlgate/mlgate/runtime/execution"
	"github.com/mlgate/mlgate/service/approval"
	"github.com/mlgate/mlgate/service/dao"
	"github.com/mlgate/mlgate/service/event"
	"github.com/mlgate/mlgate/service/executor"
	"github.com/mlgate/mlgate/service/messaging"
	"github.com/mlgate/mlgate/service/meta"
	"github.com/mlgate/mlgate/tracing"
)

// Option customises the engine service.
type Option func(s *Service)

// WithConfig sets the engine configuration.
func WithConfig(config *Config) Option {
	return func(s *Service) { s.config = config }
}

// WithApprovalService sets the approval service.
func WithApprovalService(svc approval.Service) Option {
	return func(s *Service) { s.approvalService = svc }
}

// WithEventService sets the event service.
func WithEventService(service *event.Service) Option {
	return func(s *Service) { s.eventService = service }
}

// WithExtensionTypes sets the extension types.
func WithExtensionTypes(types ...*x.Type) Option {
	return func(s *Service) { s.extensionTypes = types }
}

// WithExtensionServices sets the extension action services.
func WithExtensionServices(services ...types.Service) Option {
	return func(s *Service) { s.extensionServices = services }
}

// WithMetaService sets the meta service.
func WithMetaService(service *meta.Service) Option {
	return func(s *Service) { s.metaService = service }
}

// WithMetaBaseURL sets the meta base URL.
func WithMetaBaseURL(url string) Option {
	return func(s *Service) { s.metaBaseURL = url }
}

// WithMetaFsOptions sets meta file system options.
func WithMetaFsOptions(options ...storage.Option) Option {
	return func(s *Service) { s.metaFsOptions = options }
}

// WithQueue sets the execution queue.
func WithQueue(queue messaging.Queue[execution.Execution]) Option {
	return func(s *Service) { s.queue = queue }
}

// WithRootStepNodeName sets the mapping key holding the step graph.
func WithRootStepNodeName(name string) Option {
	return func(s *Service) { s.rootStepNodeName = name }
}

// WithRunDAO sets the run store.
func WithRunDAO(dao dao.Service[string, execution.Run]) Option {
	return func(s *Service) { s.runtime.runDAO = dao }
}

// WithExecutionDAO sets the step execution store.
func WithExecutionDAO(dao dao.Service[string, execution.Execution]) Option {
	return func(s *Service) { s.runtime.executionDAO = dao }
}

// WithRunnerWorkers sets the runner worker count.
func WithRunnerWorkers(count int) Option {
	return func(s *Service) { s.runnerWorkers = count }
}

// WithExecutorOptions lets the caller supply additional options passed to
// executor.NewService (e.g. an invocation listener).
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(s *Service) { s.executorOptions = append(s.executorOptions, opts...) }
}

// WithWhenListeners registers callbacks invoked after every transition
// condition evaluation.
func WithWhenListeners(fns ...execution.WhenListener) Option {
	return func(s *Service) { s.whenListeners = append(s.whenListeners, fns...) }
}

// WithStateListeners registers session state listeners copied to every run.
func WithStateListeners(fns ...execution.StateListener) Option {
	return func(s *Service) { s.stateListeners = append(s.stateListeners, fns...) }
}

// WithTracing configures OpenTelemetry tracing. If outputFile is empty the
// stdout exporter is used; otherwise traces are written to the supplied file
// path. Safe to call multiple times; the first successful initialisation
// wins.
func WithTracing(serviceName, serviceVersion, outputFile string) Option {
	return func(s *Service) {
		_ = tracing.Init(serviceName, serviceVersion, outputFile)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom
// SpanExporter, for example OTLP or Zipkin.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
