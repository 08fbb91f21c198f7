package ai

import "context"

// Embedder generates vector embeddings from text chunks.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedTexts generates vector embeddings for multiple text strings in
	// a batch. The returned slice contains embeddings in the same order
	// as the input texts and is always the same length on success.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderSource hands out an Embedder bound to a specific provider
// credential. The embed stage picks the credential through the usage
// scheduler, then fetches the matching client here.
type EmbedderSource interface {
	// Embedder returns a ready-to-use embedder authenticated with the
	// given credential. Implementations cache clients per credential.
	Embedder(credential string) (Embedder, error)

	// Close releases all cached clients.
	Close() error
}
