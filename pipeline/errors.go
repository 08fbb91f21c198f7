package pipeline

import "errors"

var (
	// ErrWorkItemStoreRequired indicates a nil work item store was provided.
	ErrWorkItemStoreRequired = errors.New("work item store is required")

	// ErrStatusStoreRequired indicates a nil status store was provided.
	ErrStatusStoreRequired = errors.New("status store is required")

	// ErrQueueRequired indicates a nil task queue was provided.
	ErrQueueRequired = errors.New("task queue is required")

	// ErrObjectStoreRequired indicates a nil object store was provided.
	ErrObjectStoreRequired = errors.New("object store is required")

	// ErrStageRequired indicates a nil stage was provided.
	ErrStageRequired = errors.New("all four stages are required")

	// ErrInvalidMaxAttempts indicates a retry policy with a non-positive
	// attempt budget.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than zero")
)
