package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type stepTask struct {
	RunID  string
	StepID string
	Round  int
}

func TestQueue(t *testing.T) {
	config := DefaultConfig()
	config.RetryDelay = 10 * time.Millisecond
	queue := NewQueue[stepTask](config)

	ctx := context.Background()
	payload := stepTask{RunID: "run-1", StepID: "train", Round: 1}

	err := queue.Publish(ctx, &payload)
	assert.NoError(t, err)
	assert.Equal(t, 1, queue.Size())

	message, err := queue.Consume(ctx)
	assert.NoError(t, err)
	assert.NotNil(t, message)
	assert.Equal(t, 0, queue.Size())

	data := message.T()
	assert.Equal(t, payload.RunID, data.RunID)
	assert.Equal(t, payload.StepID, data.StepID)
	assert.Equal(t, payload.Round, data.Round)

	err = message.Ack()
	assert.NoError(t, err)

	err = message.Ack()
	assert.Error(t, err, "double ack")
}

func TestQueue_Retries(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 2
	config.RetryDelay = 10 * time.Millisecond
	queue := NewQueue[stepTask](config)

	ctx := context.Background()
	payload := stepTask{RunID: "run-1", StepID: "deploy"}
	assert.NoError(t, queue.Publish(ctx, &payload))

	// exhaust the two retries plus the initial delivery
	for i := 0; i < 3; i++ {
		message, err := queue.Consume(ctx)
		assert.NoError(t, err)
		assert.NotNil(t, message)
		assert.NoError(t, message.Nack(nil))
		time.Sleep(30 * time.Millisecond)
	}

	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 1, queue.DLQSize())
}

func TestQueue_Concurrency(t *testing.T) {
	queue := NewQueue[stepTask](DefaultConfig())
	ctx := context.Background()

	const total = 50
	var wg sync.WaitGroup
	wg.Add(total)
	for i := 0; i < total; i++ {
		go func(i int) {
			defer wg.Done()
			payload := stepTask{RunID: "run-1", Round: i}
			assert.NoError(t, queue.Publish(ctx, &payload))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, total, queue.Size())

	seen := make(map[int]bool)
	for i := 0; i < total; i++ {
		message, err := queue.Consume(ctx)
		assert.NoError(t, err)
		seen[message.T().Round] = true
		assert.NoError(t, message.Ack())
	}
	assert.Equal(t, total, len(seen))
}
