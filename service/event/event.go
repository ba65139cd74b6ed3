// Package event distributes engine lifecycle notifications (run started,
// step state changes, gate decisions) to typed subscribers over the
// messaging queues.
package event

import "time"

// Context identifies what a given event relates to.
type Context struct {
	RunID       string `json:"runID"`
	StepID      string `json:"stepID"`
	EventType   string `json:"eventType"`
	Service     string `json:"service"`
	Method      string `json:"method"`
	TimeTakenMs int    `json:"timeTakenMs"`
}

type Event[T any] struct {
	Context   *Context               `json:"context"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata"`
	Data      T                      `json:"data"`
}

func NewEvent[T any](context *Context, data T) *Event[T] {
	return &Event[T]{
		Context:   context,
		CreatedAt: time.Now(),
		Metadata:  make(map[string]interface{}),
		Data:      data,
	}
}
