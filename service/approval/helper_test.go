package approval_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mlgate/mlgate/runtime/execution"
	"github.com/mlgate/mlgate/service/approval"
	memApproval "github.com/mlgate/mlgate/service/approval/memory"
	"github.com/mlgate/mlgate/service/dao"
)

func TestWaitForDecision(t *testing.T) {
	testCases := []struct {
		name        string
		approve     bool
		expectError bool
		timeout     time.Duration
		decideDelay time.Duration
	}{
		{
			name:        "approved before timeout",
			approve:     true,
			timeout:     500 * time.Millisecond,
			decideDelay: 10 * time.Millisecond,
		},
		{
			name:        "rejected before timeout",
			approve:     false,
			timeout:     500 * time.Millisecond,
			decideDelay: 10 * time.Millisecond,
		},
		{
			name:        "timeout waiting for decision",
			approve:     true,
			expectError: true,
			timeout:     50 * time.Millisecond,
			decideDelay: 100 * time.Millisecond,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			var execDAO dao.Service[string, execution.Execution]
			svc := memApproval.New(execDAO)

			reqID := "req-1"
			req := &approval.Request{
				ID:        reqID,
				RunID:     "run-1",
				Action:    "automl.deployModel",
				CreatedAt: time.Now(),
			}
			_ = svc.RequestApproval(ctx, req)

			if tc.decideDelay > 0 {
				go func() {
					time.Sleep(tc.decideDelay)
					_, _ = svc.Decide(ctx, reqID, tc.approve, "")
				}()
			}

			dec, err := approval.WaitForDecision(ctx, svc, reqID, tc.timeout)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			if !assert.NoError(t, err) {
				return
			}
			expected := &approval.Decision{
				ID:        reqID,
				Approved:  tc.approve,
				DecidedAt: dec.DecidedAt,
			}
			assert.EqualValues(t, expected, dec)
		})
	}
}

func TestListPending(t *testing.T) {
	ctx := context.Background()
	var execDAO dao.Service[string, execution.Execution]
	svc := memApproval.New(execDAO)

	now := time.Now()
	requests := []*approval.Request{
		{ID: "r1", RunID: "run1", Action: "automl.deployModel", CreatedAt: now},
		{ID: "r2", RunID: "run1", Action: "automl.undeployModel", CreatedAt: now},
		{ID: "r3", RunID: "run2", Action: "automl.deployModel", CreatedAt: now},
	}
	for _, r := range requests {
		_ = svc.RequestApproval(ctx, r)
	}

	testCases := []struct {
		name     string
		filters  []approval.PendingFilter
		expected []*approval.Request
	}{
		{
			name:     "filter by run",
			filters:  []approval.PendingFilter{approval.WithRunID("run1")},
			expected: []*approval.Request{requests[0], requests[1]},
		},
		{
			name:     "filter by action",
			filters:  []approval.PendingFilter{approval.WithAction("automl.deployModel")},
			expected: []*approval.Request{requests[0], requests[2]},
		},
		{
			name:     "filter by run and action",
			filters:  []approval.PendingFilter{approval.WithRunID("run1"), approval.WithAction("automl.deployModel")},
			expected: []*approval.Request{requests[0]},
		},
		{
			name:     "no filters",
			expected: requests,
		},
	}

	sortByID := func(in []*approval.Request) []*approval.Request {
		out := make([]*approval.Request, len(in))
		copy(out, in)
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := approval.ListPending(ctx, svc, tc.filters...)
			assert.NoError(t, err)
			assert.EqualValues(t, sortByID(tc.expected), sortByID(actual))
		})
	}

	t.Run("auto expire rejects", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		var execDAO dao.Service[string, execution.Execution]
		svc := memApproval.New(execDAO)

		expireAt := time.Now().Add(-time.Minute)
		req := &approval.Request{ID: "exp1", RunID: "runX", Action: "automl.deployModel", CreatedAt: time.Now(), ExpiresAt: &expireAt}
		_ = svc.RequestApproval(ctx, req)

		stop := approval.AutoExpire(ctx, svc, "expired", 10*time.Millisecond)
		defer stop()

		dec, err := approval.WaitForDecision(ctx, svc, req.ID, 500*time.Millisecond)
		if !assert.NoError(t, err) {
			return
		}
		assert.EqualValues(t, &approval.Decision{ID: req.ID, Approved: false, Reason: "expired", DecidedAt: dec.DecidedAt}, dec)
	})
}
