package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/openharbor/vecflow/core"
)

// WorkItemStore persists WorkItems so a redelivered stage message can be
// re-hydrated on any worker. Implementations must be thread-safe.
type WorkItemStore interface {
	// PutWorkItem inserts or replaces a work item.
	PutWorkItem(ctx context.Context, item *core.WorkItem) error

	// GetWorkItem retrieves a work item by ID.
	// Returns ErrNotFound if the item doesn't exist.
	GetWorkItem(ctx context.Context, id core.ID) (*core.WorkItem, error)

	// DeleteWorkItem removes a work item by ID. Deleting a missing item
	// is not an error.
	DeleteWorkItem(ctx context.Context, id core.ID) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// TaskStatusStore persists TaskStatusRecords, the externally visible
// status projection. Implementations must be thread-safe.
type TaskStatusStore interface {
	// UpsertStatus creates or updates the record for taskId. The write is
	// a targeted field update: status, progress and updatedAt change,
	// createdAt is preserved. Updates are rank-monotonic: a lower-ranked
	// status never overwrites a higher-ranked one, and nothing overwrites
	// a terminal status. Out-of-rank writes are silently dropped so the
	// operation is idempotent under queue redelivery.
	UpsertStatus(ctx context.Context, taskId string, status core.TaskStatus, progress string) error

	// GetStatus retrieves the status record for taskId.
	// Returns ErrNotFound if no record exists.
	GetStatus(ctx context.Context, taskId string) (*core.TaskStatusRecord, error)

	// Close closes the storage backend and releases resources.
	Close() error
}

// CounterKey identifies one usage counter namespace. Its string form,
// "usage:<functionality>:<company>:<provider>:<model>", is read directly
// by ops tooling and is part of the external contract.
type CounterKey struct {
	Functionality string
	Company       string
	Provider      string
	Model         string
}

// String renders the contract key format.
func (k CounterKey) String() string {
	return fmt.Sprintf("usage:%s:%s:%s:%s", k.Functionality, k.Company, k.Provider, k.Model)
}

// ParseCounterKey parses the contract key format back into a CounterKey.
func ParseCounterKey(s string) (CounterKey, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 5 || parts[0] != "usage" {
		return CounterKey{}, fmt.Errorf("%w: %q", ErrInvalidCounterKey, s)
	}
	return CounterKey{
		Functionality: parts[1],
		Company:       parts[2],
		Provider:      parts[3],
		Model:         parts[4],
	}, nil
}

// UsageCounterStore is the shared, multiply-written usage counter keyed by
// CounterKey with one score per credential. All mutations are atomic at
// the store level; callers never read-modify-write in application code.
// Implementations must be thread-safe.
type UsageCounterStore interface {
	// EnsureCredential adds a zero score entry for credential under key if
	// none exists. Existing scores are never overwritten, so the operation
	// is idempotent and additive-only.
	EnsureCredential(ctx context.Context, key CounterKey, credential string) error

	// IncrementScore atomically adds delta to the credential's score and
	// returns the new value. A missing entry starts from zero.
	IncrementScore(ctx context.Context, key CounterKey, credential string, delta int64) (int64, error)

	// AcquireLeastUsed atomically picks the candidate with the lowest
	// score (ties broken by candidate order), increments it by delta and
	// returns it. Candidates without a score entry count as zero. Only the
	// given candidates are considered, so membership is re-validated at
	// selection time. Returns ErrNotFound if candidates is empty.
	AcquireLeastUsed(ctx context.Context, key CounterKey, candidates []string, delta int64) (string, error)

	// Scores returns the current credential scores under key. Returns an
	// empty map for an uninitialized key.
	Scores(ctx context.Context, key CounterKey) (map[string]int64, error)

	// RemoveCredential deletes the score entry for credential under key.
	// Removing a missing entry is not an error.
	RemoveCredential(ctx context.Context, key CounterKey, credential string) error

	// DeleteCounter removes the whole counter namespace for key.
	DeleteCounter(ctx context.Context, key CounterKey) error

	// CounterKeys lists the counter namespaces currently stored for a
	// (functionality, company) pair. Used by the reset job's prune pass.
	CounterKeys(ctx context.Context, functionality, company string) ([]CounterKey, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
