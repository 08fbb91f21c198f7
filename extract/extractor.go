package extract

import (
	"context"
	"fmt"
	"strings"
)

// Extraction is the result of resolving a source document into text.
// Pages is populated only for page-wise extraction.
type Extraction struct {
	Text  string
	Pages []string
}

// Extractor resolves raw document bytes into text.
// Implementations must be thread-safe for concurrent use.
type Extractor interface {
	// Extract parses the document and returns its text. When pageWise is
	// true the result carries per-page texts in addition to the joined
	// text.
	Extract(ctx context.Context, data []byte, pageWise bool) (*Extraction, error)
}

// Registry maps declared content types to extractors. It is constructed
// once at process start and injected into the extract stage.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates a registry with the built-in text and HTML
// extractors registered.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	r.Register("text", NewTextExtractor())
	r.Register("txt", NewTextExtractor())
	r.Register("markdown", NewTextExtractor())
	r.Register("html", NewHTMLExtractor())
	return r
}

// Register adds an extractor for a declared content type, replacing any
// previous registration.
func (r *Registry) Register(declaredType string, e Extractor) {
	r.extractors[strings.ToLower(declaredType)] = e
}

// For returns the extractor for a declared content type.
// Returns ErrUnsupportedType for unregistered types; that error is
// permanent, since retrying cannot make an unknown type parseable.
func (r *Registry) For(declaredType string) (Extractor, error) {
	e, ok := r.extractors[strings.ToLower(declaredType)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, declaredType)
	}
	return e, nil
}
