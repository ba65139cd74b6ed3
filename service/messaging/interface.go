// Package messaging defines the queue abstraction the engine uses to hand
// step executions from the scheduler to the runner pool.
package messaging

import (
	"context"
)

// Vendor names a messaging implementation.
type Vendor string

// Queue is an abstract message queue for any payload type.
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message from the queue
	Consume(ctx context.Context) (Message[T], error)
}

// Message is a message retrieved from a queue.
type Message[T any] interface {
	// T returns the payload of this message
	T() *T

	// Ack acknowledges successful processing of this message
	Ack() error

	// Nack indicates failure in processing this message
	Nack(err error) error
}

// QueueConfig holds standard configuration options shared by queue
// implementations.
type QueueConfig struct {
	// MaxRetries specifies how many times a message can be redelivered
	MaxRetries int

	// RetryDelay specifies the time to wait before redelivering
	RetryDelay int

	// VisibilityTimeout specifies how long a message is considered in-flight
	VisibilityTimeout int

	// AdditionalConfig allows implementation-specific settings
	AdditionalConfig map[string]interface{}
}
