package approval

import (
	"context"
	"time"
)

// DecisionFunc decides a pending request; return (true, "") to approve or
// (false, reason) to reject.
type DecisionFunc func(r *Request) (approved bool, reason string)

// AutoDecider polls ListPending and applies fn to every request until the
// context is cancelled or the returned stop function is called.
func AutoDecider(ctx context.Context, svc Service, fn DecisionFunc, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				requests, _ := svc.ListPending(ctx)
				for _, request := range requests {
					ok, reason := fn(request)
					_, _ = svc.Decide(ctx, request.ID, ok, reason)
				}
			}
		}
	}()
	return func() { close(done) }
}

// AutoApprove approves every pending request.
func AutoApprove(ctx context.Context, svc Service, interval time.Duration) func() {
	return AutoDecider(ctx, svc, func(*Request) (bool, string) { return true, "" }, interval)
}

// AutoReject rejects every pending request with the given reason.
func AutoReject(ctx context.Context, svc Service, reason string, interval time.Duration) func() {
	return AutoDecider(ctx, svc, func(*Request) (bool, string) { return false, reason }, interval)
}

// AutoExpire rejects pending requests whose ExpiresAt deadline has passed.
func AutoExpire(ctx context.Context, svc Service, reason string, interval time.Duration) func() {
	if interval <= 0 {
		interval = time.Second
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				requests, _ := svc.ListPending(ctx)
				now := time.Now()
				for _, request := range requests {
					if request.ExpiresAt != nil && request.ExpiresAt.Before(now) {
						_, _ = svc.Decide(ctx, request.ID, false, reason)
					}
				}
			}
		}
	}()
	return func() { close(done) }
}

// PendingFilter narrows the result of ListPending.
type PendingFilter func(*Request) bool

// WithRunID keeps requests belonging to the given run.
func WithRunID(runID string) PendingFilter {
	return func(r *Request) bool { return r.RunID == runID }
}

// WithAction keeps requests for the given action.
func WithAction(action string) PendingFilter {
	return func(r *Request) bool { return r.Action == action }
}

// ListPending returns pending requests matching all filters.
func ListPending(ctx context.Context, svc Service, filters ...PendingFilter) ([]*Request, error) {
	requests, err := svc.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	if len(filters) == 0 {
		return requests, nil
	}
	matched := make([]*Request, 0, len(requests))
outer:
	for _, request := range requests {
		for _, filter := range filters {
			if !filter(request) {
				continue outer
			}
		}
		matched = append(matched, request)
	}
	return matched, nil
}

// WaitForDecision blocks until a decision for the given request ID arrives on
// the service queue or the timeout elapses.
func WaitForDecision(ctx context.Context, svc Service, id string, timeout time.Duration) (*Decision, error) {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	queue := svc.Queue()
	for {
		message, err := queue.Consume(waitCtx)
		if err != nil {
			return nil, err
		}
		event := message.T()
		_ = message.Ack()
		if event == nil || event.Topic != TopicDecisionCreated {
			continue
		}
		decision, ok := event.Data.(*Decision)
		if !ok || decision.ID != id {
			continue
		}
		return decision, nil
	}
}
