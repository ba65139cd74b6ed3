package memory

import (
	"github.com/mlgate/mlgate/runtime/execution"
	"github.com/mlgate/mlgate/service/dao"
	"github.com/mlgate/mlgate/service/messaging"
)

type Option func(*service)

// WithRunDAO lets the approval service update the owning run when a decision
// is made, so the scheduler notices the changed execution state.
func WithRunDAO(dao dao.Service[string, execution.Run]) Option {
	return func(s *service) { s.runDao = dao }
}

// WithExecutionQueue re-publishes an approved execution so the runner picks
// it up; needed for ad-hoc executions not owned by the scheduler.
func WithExecutionQueue(q messaging.Queue[execution.Execution]) Option {
	return func(s *service) { s.execQueue = q }
}
