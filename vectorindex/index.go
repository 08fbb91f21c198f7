// Package vectorindex defines the vector index the insert stage writes
// into. Collections are namespaces derived from the work item's tag.
package vectorindex

import (
	"context"
	"errors"

	"github.com/openharbor/vecflow/core"
)

// ErrDimensionMismatch indicates a point's vector length does not match
// the collection's configured dimensionality.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Index is the vector index client capability the pipeline needs.
// Implementations must be thread-safe.
type Index interface {
	// EnsureCollection creates the collection if it does not exist.
	// Idempotent.
	EnsureCollection(ctx context.Context, collection string, dimensions int) error

	// Upsert inserts or replaces points in the collection.
	Upsert(ctx context.Context, collection string, points []core.Point) error

	// Close releases the underlying connection.
	Close() error
}
