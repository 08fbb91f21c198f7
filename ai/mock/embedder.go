package mock

import (
	"context"
	"hash/fnv"
	"sync"

	"github.com/openharbor/vecflow/ai"
)

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields.
type MockEmbedder struct {
	// EmbedTextsFunc is called by EmbedTexts if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu        sync.Mutex
	callCount int
}

var _ ai.Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder with default deterministic behavior.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = generateDeterministicVector(text, 384)
	}
	return embeddings, nil
}

// CallCount returns the number of times EmbedTexts was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// MockSource is a test double for ai.EmbedderSource. It records which
// credentials were requested.
type MockSource struct {
	Embedded *MockEmbedder

	mu          sync.Mutex
	credentials []string
}

var _ ai.EmbedderSource = (*MockSource)(nil)

// NewMockSource creates a source handing out the given mock embedder for
// every credential.
func NewMockSource(embedder *MockEmbedder) *MockSource {
	if embedder == nil {
		embedder = NewMockEmbedder()
	}
	return &MockSource{Embedded: embedder}
}

// Embedder records the credential and returns the shared mock embedder.
func (s *MockSource) Embedder(credential string) (ai.Embedder, error) {
	s.mu.Lock()
	s.credentials = append(s.credentials, credential)
	s.mu.Unlock()
	return s.Embedded, nil
}

// Credentials returns the credentials requested so far.
func (s *MockSource) Credentials() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.credentials))
	copy(out, s.credentials)
	return out
}

// Close implements ai.EmbedderSource.
func (s *MockSource) Close() error {
	return nil
}

// generateDeterministicVector creates a deterministic embedding vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func generateDeterministicVector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000) / 1000.0
	}

	var sumSquares float32
	for _, v := range vector {
		sumSquares += v * v
	}
	if sumSquares > 0 {
		norm := float32(1.0) / sumSquares
		for i := range vector {
			vector[i] *= norm
		}
	}

	return vector
}
