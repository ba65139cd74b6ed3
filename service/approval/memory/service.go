// Package memory provides the in-memory approval service.
package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mlgate/mlgate/runtime/execution"
	"github.com/mlgate/mlgate/service/approval"
	"github.com/mlgate/mlgate/service/dao"
	"github.com/mlgate/mlgate/service/dao/store"
	"github.com/mlgate/mlgate/service/messaging"
	qmem "github.com/mlgate/mlgate/service/messaging/memory"
)

type service struct {
	executionDao dao.Service[string, execution.Execution]

	reqDAO dao.Service[string, approval.Request]
	decDAO dao.Service[string, approval.Decision]

	events messaging.Queue[approval.Event]

	runDao    dao.Service[string, execution.Run]
	execQueue messaging.Queue[execution.Execution]
}

func reqKey(r *approval.Request) string  { return r.ID }
func decKey(d *approval.Decision) string { return d.ID }

// New creates an approval service; executionDao may be nil when approvals are
// used standalone without execution tracking.
func New(executionDao dao.Service[string, execution.Execution], options ...Option) approval.Service {
	ret := &service{
		executionDao: executionDao,
		reqDAO:       store.NewMemoryStore[string, approval.Request](reqKey),
		decDAO:       store.NewMemoryStore[string, approval.Decision](decKey),
		events:       qmem.NewQueue[approval.Event](qmem.DefaultConfig()),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (s *service) RequestApproval(ctx context.Context, r *approval.Request) error {
	if r == nil {
		return errors.New("invalid request")
	}
	// requests without an explicit ID fall back to stable identifiers so
	// re-submissions overwrite instead of piling up
	if r.ID == "" {
		switch {
		case r.ExecutionID != "":
			r.ID = r.ExecutionID
		case r.RunID != "":
			r.ID = fmt.Sprintf("%s/%d", r.RunID, time.Now().UnixNano())
		default:
			r.ID = fmt.Sprintf("anon-%d", time.Now().UnixNano())
		}
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_ = s.reqDAO.Save(ctx, r)
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicRequestCreated, Data: r})
	return nil
}

func (s *service) ListPending(ctx context.Context) ([]*approval.Request, error) {
	all, err := s.reqDAO.List(ctx)
	if err != nil {
		return nil, err
	}
	pending := make([]*approval.Request, 0, len(all))
	for _, r := range all {
		if d, _ := s.decDAO.Load(ctx, r.ID); d == nil {
			pending = append(pending, r)
		}
	}
	return pending, nil
}

func (s *service) Decide(ctx context.Context, id string, ok bool, reason string) (*approval.Decision, error) {
	if id == "" {
		return nil, errors.New("empty id")
	}
	request, _ := s.reqDAO.Load(ctx, id)
	if request == nil {
		return nil, fmt.Errorf("request %s not found", id)
	}
	if d, _ := s.decDAO.Load(ctx, id); d != nil {
		return nil, fmt.Errorf("already decided")
	}

	if s.executionDao != nil && request.ExecutionID != "" {
		anExecution, err := s.executionDao.Load(ctx, request.ExecutionID)
		if err != nil {
			return nil, err
		}
		anExecution.Approved = &ok
		anExecution.ApprovalReason = reason
		if !ok {
			anExecution.Error = fmt.Sprintf("action %s rejected: %s", request.Action, reason)
		} else {
			anExecution.Error = ""
		}
		// back to pending so the scheduler picks it up again
		anExecution.State = execution.StepStatePending
		if err = s.executionDao.Save(ctx, anExecution); err != nil {
			return nil, err
		}

		// mirror the change into the owning run so the scheduler sees it
		if s.runDao != nil {
			if run, rErr := s.runDao.Load(ctx, request.RunID); rErr == nil && run != nil {
				if ex := run.LookupExecution(anExecution.StepID); ex != nil {
					ex.Approved = anExecution.Approved
					ex.ApprovalReason = reason
					ex.State = execution.StepStatePending
					_ = s.runDao.Save(ctx, run)
				}
			}
		}
		if ok && s.execQueue != nil {
			_ = s.execQueue.Publish(ctx, anExecution)
		}
	}

	d := &approval.Decision{
		ID:        id,
		Approved:  ok,
		Reason:    reason,
		DecidedAt: time.Now(),
	}
	_ = s.decDAO.Save(ctx, d)
	_ = s.events.Publish(ctx, &approval.Event{Topic: approval.TopicDecisionCreated, Data: d})
	return d, nil
}

func (s *service) Queue() messaging.Queue[approval.Event] { return s.events }

var _ approval.Service = (*service)(nil)
