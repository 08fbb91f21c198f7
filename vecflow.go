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


// Package vecflow wires the ingestion pipeline and the credential
// scheduler into one system handle. External collaborators with their
// own connection lifecycles (object store, task queue, vector index)
// are injected; stores backed by the local database are constructed
// here.
package vecflow

import (
	"context"
	"log/slog"

	"github.com/openharbor/vecflow/ai"
	"github.com/openharbor/vecflow/ai/openai"
	"github.com/openharbor/vecflow/chunk"
	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/extract"
	"github.com/openharbor/vecflow/keypool"
	"github.com/openharbor/vecflow/objectstore"
	"github.com/openharbor/vecflow/pipeline"
	"github.com/openharbor/vecflow/queue"
	"github.com/openharbor/vecflow/storage"
	"github.com/openharbor/vecflow/storage/badger"
	"github.com/openharbor/vecflow/vectorindex"
)

// System owns the local stores and the credential scheduler, and
// constructs pipeline components over the injected collaborators.
// The injected object store, queue and index are closed by the caller,
// not by System.Close.
type System struct {
	backend   *badger.Backend
	items     storage.WorkItemStore
	statuses  storage.TaskStatusStore
	counters  storage.UsageCounterStore
	objects   objectstore.Store
	queue     queue.TaskQueue
	index     vectorindex.Index
	source    keypool.PoolSource
	selector  keypool.Selector
	embedders ai.EmbedderSource
	aiConfig  *ai.Config
	logger    *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig *ai.Config
	logger   *slog.Logger
	inMemory bool
}

// WithAIConfig sets the embedding service configuration.
func WithAIConfig(config *ai.Config) SystemOption {
	return func(o *systemOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithInMemoryStorage keeps the local database in memory instead of on
// disk. Intended for local smoke runs and tests.
func WithInMemoryStorage() SystemOption {
	return func(o *systemOptions) {
		o.inMemory = true
	}
}

// WithSystemLogger sets a custom logger.
// Default is slog.Default().
func WithSystemLogger(logger *slog.Logger) SystemOption {
	return func(o *systemOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewSystem opens the local database at dbPath and wires the system over
// the injected collaborators. The pool must already be validated.
func NewSystem(
	dbPath string,
	objects objectstore.Store,
	taskQueue queue.TaskQueue,
	index vectorindex.Index,
	pool *keypool.Pool,
	opts ...SystemOption,
) (*System, error) {
	options := &systemOptions{
		aiConfig: ai.DefaultConfig(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(dbPath, options.inMemory)
	if err != nil {
		return nil, err
	}

	items, err := badger.NewWorkItemStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	statuses, err := badger.NewTaskStatusStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	counters, err := badger.NewUsageCounterStore(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	source := keypool.NewStaticSource(pool)
	selector, err := keypool.NewSelector(source, counters,
		keypool.WithSelectorLogger(options.logger))
	if err != nil {
		backend.Close()
		return nil, err
	}

	embedders, err := openai.NewClientCache(options.aiConfig)
	if err != nil {
		backend.Close()
		return nil, err
	}

	return &System{
		backend:   backend,
		items:     items,
		statuses:  statuses,
		counters:  counters,
		objects:   objects,
		queue:     taskQueue,
		index:     index,
		source:    source,
		selector:  selector,
		embedders: embedders,
		aiConfig:  options.aiConfig,
		logger:    options.logger,
	}, nil
}

// Close releases the embedder clients and the local database.
func (s *System) Close() error {
	if err := s.embedders.Close(); err != nil {
		s.logger.Error("error closing embedder cache", "err", err)
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// NewOrchestrator builds a pipeline orchestrator with the built-in
// extractor registry and splitter.
func (s *System) NewOrchestrator(opts ...pipeline.Option) (*pipeline.Orchestrator, error) {
	tracker, err := pipeline.NewStatusTracker(s.statuses, s.logger)
	if err != nil {
		return nil, err
	}

	stages := pipeline.Stages{
		Extract: pipeline.NewExtractStage(s.objects, extract.NewRegistry()),
		Chunk:   pipeline.NewChunkStage(s.objects, chunk.NewRecursiveSplitter()),
		Embed: pipeline.NewEmbedStage(s.objects, s.selector, s.embedders,
			s.aiConfig.Provider, s.aiConfig.EmbeddingModel),
		Insert: pipeline.NewInsertStage(s.objects, s.index),
	}

	opts = append([]pipeline.Option{pipeline.WithLogger(s.logger)}, opts...)
	return pipeline.NewOrchestrator(s.items, tracker, s.queue, s.objects, stages, opts...)
}

// NewResetScheduler builds the periodic usage reset scheduler for the
// given cron expression.
func (s *System) NewResetScheduler(schedule string) (*keypool.Scheduler, error) {
	job, err := keypool.NewResetJob(s.source, s.counters, s.logger)
	if err != nil {
		return nil, err
	}
	return keypool.NewScheduler(job, schedule, s.logger)
}

// RunReset executes one usage reset cycle immediately.
func (s *System) RunReset(ctx context.Context) error {
	job, err := keypool.NewResetJob(s.source, s.counters, s.logger)
	if err != nil {
		return err
	}
	return job.Run(ctx)
}

// Status returns the status record for a task handle.
func (s *System) Status(ctx context.Context, taskId string) (*core.TaskStatusRecord, error) {
	return s.statuses.GetStatus(ctx, taskId)
}

// Selector returns the credential selector, for callers routing
// requests outside the ingestion pipeline.
func (s *System) Selector() keypool.Selector {
	return s.selector
}

// UsageCounters returns the underlying usage counter store.
func (s *System) UsageCounters() storage.UsageCounterStore {
	return s.counters
}
