// Copyright 2026 Open Harbor
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package extract

import (
	"bytes"
	"context"
	"strings"

	"github.com/tmc/langchaingo/documentloaders"
)

// TextExtractor extracts plain text documents. Page-wise extraction
// splits on form-feed page breaks.
type TextExtractor struct{}

var _ Extractor = (*TextExtractor)(nil)

// NewTextExtractor creates a plain text extractor.
func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

// Extract loads the document as plain text.
func (e *TextExtractor) Extract(ctx context.Context, data []byte, pageWise bool) (*Extraction, error) {
	docs, err := documentloaders.NewText(bytes.NewReader(data)).Load(ctx)
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

// splitPages splits text on form-feed page breaks, dropping empty pages.
func splitPages(text string) []string {
	raw := strings.Split(text, "\f")
	pages := make([]string, 0, len(raw))
	for _, page := range raw {
		if strings.TrimSpace(page) == "" {
			continue
		}
		pages = append(pages, page)
	}
	return pages
}
