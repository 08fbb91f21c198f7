package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/queue"
)

func testMessage(taskId string) queue.StageMessage {
	return queue.StageMessage{
		WorkItemId: core.IDFromContent(taskId),
		TaskId:     taskId,
		Stage:      core.StageExtract,
	}
}

func TestQueue_DeliversPublishedMessages(t *testing.T) {
	q, err := New()
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []string
	require.NoError(t, q.Consume(ctx, func(ctx context.Context, msg queue.StageMessage) error {
		mu.Lock()
		seen = append(seen, msg.TaskId)
		mu.Unlock()
		return nil
	}))

	require.NoError(t, q.Publish(ctx, testMessage("task-1")))
	require.NoError(t, q.Publish(ctx, testMessage("task-2")))
	q.Drain()

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, []string{"task-1", "task-2"}, seen)
}

func TestQueue_RedeliversOnError(t *testing.T) {
	q, err := New(WithMaxDeliver(3))
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var attempts []int
	require.NoError(t, q.Consume(ctx, func(ctx context.Context, msg queue.StageMessage) error {
		mu.Lock()
		attempts = append(attempts, msg.Attempt)
		mu.Unlock()
		return errors.New("transient")
	}))

	require.NoError(t, q.Publish(ctx, testMessage("task-1")))
	q.Drain()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 1, 2}, attempts, "attempt counter must track deliveries")
}

func TestQueue_PermanentErrorStopsRedelivery(t *testing.T) {
	q, err := New(WithMaxDeliver(5))
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	deliveries := 0
	require.NoError(t, q.Consume(ctx, func(ctx context.Context, msg queue.StageMessage) error {
		mu.Lock()
		deliveries++
		mu.Unlock()
		return queue.Permanent(errors.New("unsupported type"))
	}))

	require.NoError(t, q.Publish(ctx, testMessage("task-1")))
	q.Drain()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, deliveries)
}

func TestQueue_LateAck(t *testing.T) {
	q, err := New(WithMaxDeliver(2))
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fails on the first delivery, succeeds on redelivery. A success must
	// end redelivery.
	var mu sync.Mutex
	deliveries := 0
	require.NoError(t, q.Consume(ctx, func(ctx context.Context, msg queue.StageMessage) error {
		mu.Lock()
		deliveries++
		n := deliveries
		mu.Unlock()
		if n == 1 {
			return errors.New("first try fails")
		}
		return nil
	}))

	require.NoError(t, q.Publish(ctx, testMessage("task-1")))
	q.Drain()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, deliveries)
}

func TestQueue_ClosedRejectsPublish(t *testing.T) {
	q, err := New()
	require.NoError(t, err)
	require.NoError(t, q.Close())

	err = q.Publish(context.Background(), testMessage("task-1"))
	assert.ErrorIs(t, err, queue.ErrQueueClosed)
}

func TestQueue_SecondConsumeRejected(t *testing.T) {
	q, err := New()
	require.NoError(t, err)
	defer q.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := func(ctx context.Context, msg queue.StageMessage) error { return nil }
	require.NoError(t, q.Consume(ctx, handler))
	assert.ErrorIs(t, q.Consume(ctx, handler), queue.ErrAlreadyConsuming)
}
