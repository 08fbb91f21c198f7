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


package memory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/openharbor/vecflow/queue"
)

const (
	defaultMaxDeliver = 3
	defaultWorkers    = 4
	defaultBuffer     = 1024
)

type delivery struct {
	msg      queue.StageMessage
	attempts int
}

// Queue is an in-process queue.TaskQueue with redelivery semantics,
// intended for tests and local development. Messages that fail are
// redelivered up to a bounded attempt count, mirroring the broker's
// MaxDeliver behavior.
type Queue struct {
	deliveries chan delivery
	workers    *ants.Pool
	maxDeliver int
	logger     *slog.Logger

	mu        sync.Mutex
	consuming bool
	closed    bool
	wg        sync.WaitGroup
}

// Option configures a Queue.
type Option func(*Queue)

// WithMaxDeliver bounds delivery attempts per message.
func WithMaxDeliver(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.maxDeliver = n
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

// New creates an in-process task queue.
func New(opts ...Option) (*Queue, error) {
	q := &Queue{
		deliveries: make(chan delivery, defaultBuffer),
		maxDeliver: defaultMaxDeliver,
		logger:     slog.Default().With("component", "memory-queue"),
	}
	for _, opt := range opts {
		opt(q)
	}

	pool, err := ants.NewPool(defaultWorkers)
	if err != nil {
		return nil, err
	}
	q.workers = pool
	return q, nil
}

// Publish enqueues a stage message.
func (q *Queue) Publish(ctx context.Context, msg queue.StageMessage) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return queue.ErrQueueClosed
	}
	q.wg.Add(1)
	q.mu.Unlock()

	select {
	case q.deliveries <- delivery{msg: msg, attempts: 0}:
		return nil
	case <-ctx.Done():
		q.wg.Done()
		return ctx.Err()
	}
}

// Consume starts a dispatch loop feeding the worker pool.
func (q *Queue) Consume(ctx context.Context, handler queue.Handler) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return queue.ErrQueueClosed
	}
	if q.consuming {
		q.mu.Unlock()
		return queue.ErrAlreadyConsuming
	}
	q.consuming = true
	q.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-q.deliveries:
				if !ok {
					return
				}
				if err := q.workers.Submit(func() {
					q.dispatch(ctx, d, handler)
				}); err != nil {
					q.logger.Error("failed to submit message to worker pool", "err", err)
					q.wg.Done()
				}
			}
		}
	}()
	return nil
}

func (q *Queue) dispatch(ctx context.Context, d delivery, handler queue.Handler) {
	msg := d.msg
	msg.Attempt = d.attempts

	err := handler(ctx, msg)
	if err == nil || queue.IsPermanent(err) {
		if err != nil {
			q.logger.Warn("dropping message", "task", msg.TaskId, "stage", msg.Stage.String(), "err", err)
		}
		q.wg.Done()
		return
	}

	if d.attempts+1 >= q.maxDeliver {
		q.logger.Warn("delivery attempts exhausted", "task", msg.TaskId, "stage", msg.Stage.String(), "err", err)
		q.wg.Done()
		return
	}

	q.mu.Lock()
	closed := q.closed
	q.mu.Unlock()
	if closed {
		q.wg.Done()
		return
	}
	q.deliveries <- delivery{msg: d.msg, attempts: d.attempts + 1}
}

// Drain blocks until every published message has been acknowledged,
// dropped or exhausted. Test helper.
func (q *Queue) Drain() {
	q.wg.Wait()
}

// Close stops the queue and releases the worker pool.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	q.workers.Release()
	return nil
}
