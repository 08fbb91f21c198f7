package mock

import (
	"context"
	"sync"

	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/vectorindex"
)

// MockIndex is a test double for vectorindex.Index. It records upserted
// points per collection and allows error injection via function fields.
type MockIndex struct {
	// UpsertFunc is called by Upsert if set.
	UpsertFunc func(ctx context.Context, collection string, points []core.Point) error

	mu          sync.Mutex
	collections map[string][]core.Point
}

var _ vectorindex.Index = (*MockIndex)(nil)

// NewMockIndex creates an empty recording index.
func NewMockIndex() *MockIndex {
	return &MockIndex{collections: make(map[string][]core.Point)}
}

// EnsureCollection registers the collection.
func (m *MockIndex) EnsureCollection(ctx context.Context, collection string, dimensions int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection]; !ok {
		m.collections[collection] = nil
	}
	return nil
}

// Upsert records the points, or delegates to UpsertFunc if set.
func (m *MockIndex) Upsert(ctx context.Context, collection string, points []core.Point) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, collection, points)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = append(m.collections[collection], points...)
	return nil
}

// Points returns the points recorded for a collection.
func (m *MockIndex) Points(collection string) []core.Point {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Point, len(m.collections[collection]))
	copy(out, m.collections[collection])
	return out
}

// Close implements vectorindex.Index.
func (m *MockIndex) Close() error {
	return nil
}
