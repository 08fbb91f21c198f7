package core

import "fmt"

// Validate checks that a WorkItem is well-formed before it enters the
// pipeline. The tag is opaque and deliberately unchecked.
func (w *WorkItem) Validate() error {
	if w.Source.URI == "" {
		return fmt.Errorf("%w: %w", ErrInvalidWorkItem, ErrEmptySourceRef)
	}
	if w.TaskId == "" {
		return fmt.Errorf("%w: task id is required", ErrInvalidWorkItem)
	}
	if w.Stage < StageExtract || w.Stage > StageInsert {
		return fmt.Errorf("%w: %w", ErrInvalidWorkItem, ErrInvalidStage)
	}
	if w.Attempt < 0 {
		return fmt.Errorf("%w: attempt cannot be negative", ErrInvalidWorkItem)
	}
	return nil
}

// Valid reports whether s is one of the contract status values.
func (s TaskStatus) Valid() bool {
	return s.Rank() >= 0
}
