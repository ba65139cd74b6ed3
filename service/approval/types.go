package approval

import (
	"encoding/json"
	"time"
)

// Event is the envelope published on the approval queue.
type Event struct {
	Topic   string
	Data    interface{} // *Request | *Decision
	Headers map[string]string `json:"headers,omitempty"`
}

// Event topics.
const (
	TopicRequestCreated  = "request.created"
	TopicRequestUpdated  = "request.updated"
	TopicRequestExpired  = "request.expired"
	TopicDecisionCreated = "decision.created"
)

// Request asks for sign-off on a concrete execution before its action runs.
type Request struct {
	ID          string                 `json:"id"`
	RunID       string                 `json:"runId"`
	ExecutionID string                 `json:"executionId"`
	Action      string                 `json:"action"`              // "service.method"
	Args        json.RawMessage        `json:"args,omitempty"`      // expanded input, may be null
	CreatedAt   time.Time              `json:"createdAt"`
	ExpiresAt   *time.Time             `json:"expiresAt,omitempty"`
	Meta        map[string]interface{} `json:"meta,omitempty"`
}

// Decision records the outcome for a request; its ID matches the request ID.
type Decision struct {
	ID        string    `json:"id"`
	Approved  bool      `json:"approved"`
	Reason    string    `json:"reason,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}
