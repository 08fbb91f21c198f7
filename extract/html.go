package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
)

// HTMLExtractor extracts the visible text of HTML documents.
type HTMLExtractor struct{}

var _ Extractor = (*HTMLExtractor)(nil)

// NewHTMLExtractor creates an HTML extractor.
func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

// Extract loads the document through the HTML loader, which strips
// markup and returns visible text.
func (e *HTMLExtractor) Extract(ctx context.Context, data []byte, pageWise bool) (*Extraction, error) {
	docs, err := documentloaders.NewHTML(bytes.NewReader(data)).Load(ctx)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for i, doc := range docs {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(doc.PageContent)
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyDocument
	}

	result := &Extraction{Text: text}
	if pageWise {
		result.Pages = splitPages(text)
	}
	return result, nil
}
