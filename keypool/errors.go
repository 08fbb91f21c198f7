package keypool

import "errors"

var (
	// ErrPoolSourceRequired indicates a nil pool source was provided.
	ErrPoolSourceRequired = errors.New("pool source is required")

	// ErrCounterStoreRequired indicates a nil counter store was provided.
	ErrCounterStoreRequired = errors.New("counter store is required")

	// ErrScheduleRequired indicates an empty cron schedule was provided.
	ErrScheduleRequired = errors.New("schedule is required")
)
