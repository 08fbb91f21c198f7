package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/storage"
)

// statusRetryPolicy bounds retries of status writes. A dropped status
// update would desynchronize externally visible progress from actual
// pipeline state, so persistence failures are retried before being
// surfaced.
var statusRetryPolicy = RetryPolicy{MaxAttempts: 3, Backoff: 100 * time.Millisecond}

// StatusTracker records lifecycle transitions for work items. Writes go
// through the rank-monotonic status store, so redelivered or out-of-order
// advances cannot rewind visible progress.
type StatusTracker struct {
	statuses storage.TaskStatusStore
	logger   *slog.Logger
}

// NewStatusTracker creates a tracker over the given status store.
func NewStatusTracker(statuses storage.TaskStatusStore, logger *slog.Logger) (*StatusTracker, error) {
	if statuses == nil {
		return nil, ErrStatusStoreRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &StatusTracker{statuses: statuses, logger: logger}, nil
}

// Advance upserts the status record for taskId. Idempotent: repeating an
// advance leaves the record unchanged after the first call's effect.
// Returns core.ErrStatusPersistence after exhausting write retries.
func (t *StatusTracker) Advance(ctx context.Context, taskId string, status core.TaskStatus, progress string) error {
	err := statusRetryPolicy.Run(ctx, t.logger, func() error {
		return t.statuses.UpsertStatus(ctx, taskId, status, progress)
	})
	if err != nil {
		return fmt.Errorf("%w: advancing %s to %s: %v", core.ErrStatusPersistence, taskId, status, err)
	}
	return nil
}

// Get returns the status record for taskId, or storage.ErrNotFound.
func (t *StatusTracker) Get(ctx context.Context, taskId string) (*core.TaskStatusRecord, error) {
	return t.statuses.GetStatus(ctx, taskId)
}

// Terminal reports whether the task already reached a terminal status.
// An unknown task is not terminal.
func (t *StatusTracker) Terminal(ctx context.Context, taskId string) (bool, error) {
	record, err := t.statuses.GetStatus(ctx, taskId)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return record.Status.Terminal(), nil
}
