// Package objectstore abstracts the blob store holding source documents
// and inter-stage payloads. Stage outputs are written here and queue
// messages carry only the object key.
package objectstore

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// Store reads and writes blobs by key. Implementations must be
// thread-safe.
type Store interface {
	// Put writes data under key, replacing any existing object.
	Put(ctx context.Context, key string, data []byte) error

	// Get reads the object stored under key.
	// Returns ErrNotFound if the object doesn't exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the object under key. Deleting a missing object is
	// not an error.
	Delete(ctx context.Context, key string) error

	// Close releases client resources.
	Close() error
}
