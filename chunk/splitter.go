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


// Package chunk splits extracted text into embeddable chunks.
//
// Splitting is pure and deterministic: the same text always yields the
// same chunks. A failure here indicates a programming or data invariant
// violation and is never retried.
package chunk

import (
	"fmt"
	"strings"

	"github.com/openharbor/vecflow/core"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 100
)

// Splitter splits text into chunks.
type Splitter interface {
	// Split returns the chunks of text, in document order.
	Split(text string) ([]string, error)
}

// RecursiveSplitter splits on paragraph, sentence and word boundaries in
// that order of preference.
type RecursiveSplitter struct {
	splitter textsplitter.RecursiveCharacter
}

var _ Splitter = (*RecursiveSplitter)(nil)

// Option configures a RecursiveSplitter.
type Option func(*options)

type options struct {
	chunkSize    int
	chunkOverlap int
}

// WithChunkSize sets the target chunk size in characters.
func WithChunkSize(size int) Option {
	return func(o *options) {
		if size > 0 {
			o.chunkSize = size
		}
	}
}

// WithChunkOverlap sets the overlap between adjacent chunks.
func WithChunkOverlap(overlap int) Option {
	return func(o *options) {
		if overlap >= 0 {
			o.chunkOverlap = overlap
		}
	}
}

// NewRecursiveSplitter creates a splitter with the given options.
func NewRecursiveSplitter(opts ...Option) *RecursiveSplitter {
	o := &options{
		chunkSize:    defaultChunkSize,
		chunkOverlap: defaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &RecursiveSplitter{
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(o.chunkSize),
			textsplitter.WithChunkOverlap(o.chunkOverlap),
		),
	}
}

// Split splits text into chunks. Empty input or empty output violates the
// chunking invariant: extraction already guarantees non-empty text, so
// either means a defect upstream.
func (s *RecursiveSplitter) Split(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty input text", core.ErrChunkingInvariant)
	}

	chunks, err := s.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrChunkingInvariant, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: splitter produced no chunks", core.ErrChunkingInvariant)
	}
	return chunks, nil
}
