package mock

import (
	"context"
	"sync"

	"github.com/openharbor/vecflow/extract"
)

// MockExtractor is a test double for extract.Extractor.
// It allows custom behavior injection via function fields.
type MockExtractor struct {
	// ExtractFunc is called by Extract if set.
	// If nil, returns the document bytes as text.
	ExtractFunc func(ctx context.Context, data []byte, pageWise bool) (*extract.Extraction, error)

	mu        sync.Mutex
	callCount int
}

var _ extract.Extractor = (*MockExtractor)(nil)

// NewMockExtractor creates a mock extractor with pass-through behavior.
func NewMockExtractor() *MockExtractor {
	return &MockExtractor{}
}

// Extract returns the raw bytes as text unless ExtractFunc is set.
func (m *MockExtractor) Extract(ctx context.Context, data []byte, pageWise bool) (*extract.Extraction, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, data, pageWise)
	}
	return &extract.Extraction{Text: string(data)}, nil
}

// CallCount returns the number of times Extract was called.
func (m *MockExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
