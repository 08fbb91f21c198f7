// Copyright 2026 Open Harbor
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package jetstream

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/panjf2000/ants/v2"
	"github.com/openharbor/vecflow/queue"
)

const (
	streamName    = "VECFLOW_TASKS"
	subjectPrefix = "vecflow.task."
	subjectFilter = "vecflow.task.*"
	consumerName  = "vecflow-workers"

	// defaultAckWait is the broker visibility timeout: a worker that dies
	// mid-stage has its message redelivered after this long.
	defaultAckWait = 300 * time.Second

	defaultMaxDeliver = 3
	defaultWorkers    = 8

	// redeliverDelay spaces out broker-level retries so a failing
	// downstream dependency is not hammered on every redelivery.
	redeliverDelay = 5 * time.Second
)

// Queue implements queue.TaskQueue on NATS JetStream. The stream uses
// work-queue retention so each stage message is processed by exactly one
// worker, and explicit late acknowledgement so crashed workers' messages
// are redelivered.
type Queue struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	workers *ants.Pool
	logger  *slog.Logger

	ackWait    time.Duration
	maxDeliver int
	poolSize   int

	mu         sync.Mutex
	consumeCtx jetstream.ConsumeContext
	closed     bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithAckWait sets the broker visibility timeout.
func WithAckWait(d time.Duration) Option {
	return func(q *Queue) {
		if d > 0 {
			q.ackWait = d
		}
	}
}

// WithMaxDeliver bounds broker-level redelivery attempts per message.
func WithMaxDeliver(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxDeliver = n
		}
	}
}

// WithWorkers sets the number of concurrent handler invocations.
func WithWorkers(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.poolSize = n
		}
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		if logger != nil {
			q.logger = logger
		}
	}
}

// New connects to NATS and ensures the task stream exists.
func New(ctx context.Context, url string, opts ...Option) (*Queue, error) {
	q := &Queue{
		ackWait:    defaultAckWait,
		maxDeliver: defaultMaxDeliver,
		poolSize:   defaultWorkers,
		logger:     slog.Default().With("component", "jetstream-queue"),
	}
	for _, opt := range opts {
		opt(q)
	}

	conn, err := nats.Connect(url, nats.Name("vecflow"), nats.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectFilter},
		Retention: jetstream.WorkQueuePolicy,
		Storage:   jetstream.FileStorage,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create stream %s: %w", streamName, err)
	}

	pool, err := ants.NewPool(q.poolSize)
	if err != nil {
		conn.Close()
		return nil, err
	}

	q.conn = conn
	q.js = js
	q.workers = pool
	return q, nil
}

// Publish enqueues a stage message on the stage's subject.
func (q *Queue) Publish(ctx context.Context, msg queue.StageMessage) error {
	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		return queue.ErrQueueClosed
	}

	subject := subjectPrefix + msg.Stage.String()
	_, err := q.js.Publish(ctx, subject, queue.EncodeStageMessage(msg))
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Consume starts delivering stage messages to handler. Handler calls run
// on the worker pool; the message is acknowledged only after the handler
// returns nil.
func (q *Queue) Consume(ctx context.Context, handler queue.Handler) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return queue.ErrQueueClosed
	}
	if q.consumeCtx != nil {
		return queue.ErrAlreadyConsuming
	}

	consumer, err := q.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       consumerName,
		FilterSubject: subjectFilter,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       q.ackWait,
		MaxDeliver:    q.maxDeliver,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(m jetstream.Msg) {
		submitErr := q.workers.Submit(func() {
			q.dispatch(ctx, m, handler)
		})
		if submitErr != nil {
			q.logger.Error("failed to submit message to worker pool", "err", submitErr)
			m.Nak()
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}

	q.consumeCtx = consumeCtx
	return nil
}

func (q *Queue) dispatch(ctx context.Context, m jetstream.Msg, handler queue.Handler) {
	msg, err := queue.DecodeStageMessage(m.Data())
	if err != nil {
		// Undecodable messages can never succeed; drop them.
		q.logger.Error("failed to decode stage message", "err", err)
		m.Term()
		return
	}

	if meta, metaErr := m.Metadata(); metaErr == nil {
		msg.Attempt = int(meta.NumDelivered) - 1
	}

	err = handler(ctx, msg)
	switch {
	case err == nil:
		if ackErr := m.Ack(); ackErr != nil {
			q.logger.Error("failed to ack message", "task", msg.TaskId, "err", ackErr)
		}
	case queue.IsPermanent(err):
		q.logger.Warn("terminating message", "task", msg.TaskId, "stage", msg.Stage.String(), "err", err)
		m.Term()
	default:
		q.logger.Warn("nacking message for redelivery", "task", msg.TaskId, "stage", msg.Stage.String(), "err", err)
		m.NakWithDelay(redeliverDelay)
	}
}

// Close stops consumption, drains the connection and releases the worker
// pool.
func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true

	if q.consumeCtx != nil {
		q.consumeCtx.Stop()
		q.consumeCtx = nil
	}
	q.workers.Release()
	return q.conn.Drain()
}
