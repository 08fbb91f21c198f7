package queue

import "errors"

var (
	// ErrQueueClosed is returned when publishing to a closed queue.
	ErrQueueClosed = errors.New("queue is closed")

	// ErrAlreadyConsuming is returned when Consume is called twice.
	ErrAlreadyConsuming = errors.New("queue is already consuming")

	// ErrInvalidSubject is returned for a message with an unknown stage.
	ErrInvalidSubject = errors.New("invalid stage subject")
)
