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


package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openharbor/vecflow/ai"
	"github.com/openharbor/vecflow/chunk"
	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/extract"
	"github.com/openharbor/vecflow/keypool"
	"github.com/openharbor/vecflow/objectstore"
	"github.com/openharbor/vecflow/vectorindex"
)

// collaboratorTimeout bounds each network call to an external
// collaborator. The stage retry policy applies to timeouts like any
// other retryable error.
const collaboratorTimeout = 30 * time.Second

// embeddingFunctionality is the credential selector functionality under
// which embed-stage usage is counted.
const embeddingFunctionality = "EMBEDDING"

// Object keys for inter-stage payloads, one prefix per task.
func extractedKey(taskId string) string { return "tasks/" + taskId + "/extracted" }
func chunksKey(taskId string) string    { return "tasks/" + taskId + "/chunks" }
func vectorsKey(taskId string) string   { return "tasks/" + taskId + "/vectors" }

func encodeChunkSet(set core.ChunkSet) []byte {
	buf := make([]byte, core.ChunkSetMUS.Size(set))
	core.ChunkSetMUS.Marshal(set, buf)
	return buf
}

func decodeChunkSet(data []byte) (core.ChunkSet, error) {
	set, _, err := core.ChunkSetMUS.Unmarshal(data)
	return set, err
}

func encodeVectorSet(set core.VectorSet) []byte {
	buf := make([]byte, core.VectorSetMUS.Size(set))
	core.VectorSetMUS.Marshal(set, buf)
	return buf
}

func decodeVectorSet(data []byte) (core.VectorSet, error) {
	set, _, err := core.VectorSetMUS.Unmarshal(data)
	return set, err
}

// ExtractStage resolves a source reference into text. The output is
// stored as a ChunkSet holding one element per page for page-wise
// extraction, or a single element otherwise.
type ExtractStage struct {
	objects  objectstore.Store
	registry *extract.Registry
	client   *http.Client
}

// NewExtractStage creates the extract stage.
func NewExtractStage(objects objectstore.Store, registry *extract.Registry) *ExtractStage {
	return &ExtractStage{
		objects:  objects,
		registry: registry,
		client:   &http.Client{Timeout: collaboratorTimeout},
	}
}

// Run fetches, parses and stores the document text. Returns the object
// key of the stored output.
func (s *ExtractStage) Run(ctx context.Context, item *core.WorkItem) (string, error) {
	extractor, err := s.registry.For(item.Source.DeclaredType)
	if err != nil {
		// Retrying cannot make an unknown type parseable.
		return "", NonRetryable(fmt.Errorf("%w: %v", core.ErrExtraction, err))
	}

	data, err := s.fetch(ctx, item.Source.URI)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrExtraction, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()

	extraction, err := extractor.Extract(callCtx, data, item.Source.PageWise)
	if err != nil {
		if errors.Is(err, extract.ErrEmptyDocument) {
			return "", NonRetryable(fmt.Errorf("%w: %v", core.ErrExtraction, err))
		}
		return "", fmt.Errorf("%w: %v", core.ErrExtraction, err)
	}

	set := core.ChunkSet{Chunks: []string{extraction.Text}}
	if item.Source.PageWise && len(extraction.Pages) > 0 {
		set.Chunks = extraction.Pages
	}

	key := extractedKey(item.TaskId)
	if err := s.objects.Put(ctx, key, encodeChunkSet(set)); err != nil {
		return "", fmt.Errorf("%w: storing extracted text: %v", core.ErrExtraction, err)
	}
	return key, nil
}

// fetch resolves a source URI. HTTP and HTTPS URIs are fetched from the
// network; anything else is treated as an object store key.
func (s *ExtractStage) fetch(ctx context.Context, uri string) ([]byte, error) {
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		data, err := s.objects.Get(ctx, uri)
		if errors.Is(err, objectstore.ErrNotFound) {
			return nil, err
		}
		return data, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %q: status %d", uri, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ChunkStage splits extracted text into embeddable chunks. Splitting is
// deterministic, so this stage is never retried.
type ChunkStage struct {
	objects  objectstore.Store
	splitter chunk.Splitter
}

// NewChunkStage creates the chunk stage.
func NewChunkStage(objects objectstore.Store, splitter chunk.Splitter) *ChunkStage {
	return &ChunkStage{objects: objects, splitter: splitter}
}

// Run splits each extracted text unit and stores the flattened chunk
// list. Returns the object key of the stored output.
func (s *ChunkStage) Run(ctx context.Context, item *core.WorkItem, payloadKey string) (string, error) {
	data, err := s.objects.Get(ctx, payloadKey)
	if err != nil {
		return "", fmt.Errorf("%w: loading extracted text: %v", core.ErrChunkingInvariant, err)
	}
	set, err := decodeChunkSet(data)
	if err != nil {
		return "", NonRetryable(fmt.Errorf("%w: %v", core.ErrChunkingInvariant, err))
	}

	var chunks []string
	for _, text := range set.Chunks {
		split, err := s.splitter.Split(text)
		if err != nil {
			return "", NonRetryable(err)
		}
		chunks = append(chunks, split...)
	}

	key := chunksKey(item.TaskId)
	if err := s.objects.Put(ctx, key, encodeChunkSet(core.ChunkSet{Chunks: chunks})); err != nil {
		return "", fmt.Errorf("%w: storing chunks: %v", core.ErrChunkingInvariant, err)
	}
	return key, nil
}

// EmbedStage computes one vector per chunk. Each run picks the least
// used provider credential for the tenant before calling out.
type EmbedStage struct {
	objects  objectstore.Store
	selector keypool.Selector
	source   ai.EmbedderSource
	provider string
	model    string
}

// NewEmbedStage creates the embed stage. Provider and model name the
// upstream embedding endpoint the credential pool is configured for.
func NewEmbedStage(objects objectstore.Store, selector keypool.Selector, source ai.EmbedderSource, provider, model string) *EmbedStage {
	return &EmbedStage{
		objects:  objects,
		selector: selector,
		source:   source,
		provider: provider,
		model:    model,
	}
}

// Run embeds the task's chunks and stores the paired vectors. Returns
// the object key of the stored output.
func (s *EmbedStage) Run(ctx context.Context, item *core.WorkItem, payloadKey string) (string, error) {
	data, err := s.objects.Get(ctx, payloadKey)
	if err != nil {
		return "", fmt.Errorf("%w: loading chunks: %v", core.ErrEmbedding, err)
	}
	set, err := decodeChunkSet(data)
	if err != nil {
		return "", NonRetryable(fmt.Errorf("%w: %v", core.ErrEmbedding, err))
	}

	selection, err := s.selector.Select(ctx, item.Company, embeddingFunctionality, s.provider, s.model)
	if err != nil {
		if errors.Is(err, core.ErrNoEligibleCredential) || errors.Is(err, core.ErrPoolConfiguration) {
			return "", NonRetryable(fmt.Errorf("%w: %v", core.ErrEmbedding, err))
		}
		return "", fmt.Errorf("%w: %v", core.ErrEmbedding, err)
	}

	embedder, err := s.source.Embedder(selection.Credential)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrEmbedding, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()

	vectors, err := embedder.EmbedTexts(callCtx, set.Chunks)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrEmbedding, err)
	}
	if len(vectors) != len(set.Chunks) {
		// A count mismatch is a broken provider response, not a
		// transient failure.
		return "", NonRetryable(fmt.Errorf("%w: got %d vectors for %d chunks",
			core.ErrEmbedding, len(vectors), len(set.Chunks)))
	}

	key := vectorsKey(item.TaskId)
	payload := encodeVectorSet(core.VectorSet{Chunks: set.Chunks, Vectors: vectors})
	if err := s.objects.Put(ctx, key, payload); err != nil {
		return "", fmt.Errorf("%w: storing vectors: %v", core.ErrEmbedding, err)
	}
	return key, nil
}

// InsertStage upserts vectors into the index. The work item's tag
// selects the destination collection.
type InsertStage struct {
	objects objectstore.Store
	index   vectorindex.Index
}

// NewInsertStage creates the insert stage.
func NewInsertStage(objects objectstore.Store, index vectorindex.Index) *InsertStage {
	return &InsertStage{objects: objects, index: index}
}

// Run upserts the task's vectors. Point IDs are content-derived within
// the task, so a redelivered insert overwrites its own points instead of
// duplicating them. Returns an empty key; insert is the last stage.
func (s *InsertStage) Run(ctx context.Context, item *core.WorkItem, payloadKey string) (string, error) {
	data, err := s.objects.Get(ctx, payloadKey)
	if err != nil {
		return "", fmt.Errorf("%w: loading vectors: %v", core.ErrInsertion, err)
	}
	set, err := decodeVectorSet(data)
	if err != nil {
		return "", NonRetryable(fmt.Errorf("%w: %v", core.ErrInsertion, err))
	}
	if len(set.Vectors) == 0 {
		return "", NonRetryable(fmt.Errorf("%w: empty vector set", core.ErrInsertion))
	}

	points := make([]core.Point, len(set.Vectors))
	for i, vector := range set.Vectors {
		id := core.IDFromContent(item.TaskId + "\x00" + set.Chunks[i])
		points[i] = core.Point{
			Id:      strconv.FormatUint(uint64(id), 16),
			Vector:  vector,
			Payload: set.Chunks[i],
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, collaboratorTimeout)
	defer cancel()

	if err := s.index.EnsureCollection(callCtx, item.Tag, len(set.Vectors[0])); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrInsertion, err)
	}
	if err := s.index.Upsert(callCtx, item.Tag, points); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrInsertion, err)
	}
	return "", nil
}
