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
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/objectstore"
	"github.com/openharbor/vecflow/queue"
	"github.com/openharbor/vecflow/storage"
)

// Stages bundles the four stage runners.
type Stages struct {
	Extract *ExtractStage
	Chunk   *ChunkStage
	Embed   *EmbedStage
	Insert  *InsertStage
}

func (s Stages) validate() error {
	if s.Extract == nil || s.Chunk == nil || s.Embed == nil || s.Insert == nil {
		return ErrStageRequired
	}
	return nil
}

// Orchestrator drives work items through the pipeline. Submit creates
// the work item and dispatches the extract stage; Handle consumes stage
// messages from the queue, runs the stage under its retry policy and
// dispatches the next one.
type Orchestrator struct {
	items   storage.WorkItemStore
	tracker *StatusTracker
	queue   queue.TaskQueue
	objects objectstore.Store
	stages  Stages
	logger  *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator creates an orchestrator over the given stores, queue
// and stages.
func NewOrchestrator(
	items storage.WorkItemStore,
	tracker *StatusTracker,
	taskQueue queue.TaskQueue,
	objects objectstore.Store,
	stages Stages,
	opts ...Option,
) (*Orchestrator, error) {
	if items == nil {
		return nil, ErrWorkItemStoreRequired
	}
	if tracker == nil {
		return nil, ErrStatusStoreRequired
	}
	if taskQueue == nil {
		return nil, ErrQueueRequired
	}
	if objects == nil {
		return nil, ErrObjectStoreRequired
	}
	if err := stages.validate(); err != nil {
		return nil, err
	}

	o := &Orchestrator{
		items:   items,
		tracker: tracker,
		queue:   taskQueue,
		objects: objects,
		stages:  stages,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

// Submit creates a work item for the source, records it as QUEUED and
// dispatches the extract stage. Returns the task handle for status
// polling. Processing is asynchronous; Submit returns as soon as the
// dispatch is durable.
func (o *Orchestrator) Submit(ctx context.Context, source core.SourceRef, tag, company string) (string, error) {
	taskId := uuid.NewString()
	item := &core.WorkItem{
		Id:          core.IDFromContent(taskId + "\x00" + source.URI),
		TaskId:      taskId,
		Source:      source,
		Tag:         tag,
		Company:     company,
		Stage:       core.StageExtract,
		SubmittedAt: time.Now().UTC(),
	}
	if err := item.Validate(); err != nil {
		return "", err
	}

	if err := o.items.PutWorkItem(ctx, item); err != nil {
		return "", err
	}
	if err := o.tracker.Advance(ctx, taskId, core.StatusQueued, ""); err != nil {
		return "", err
	}

	msg := queue.StageMessage{
		WorkItemId: item.Id,
		TaskId:     taskId,
		Stage:      core.StageExtract,
	}
	if err := o.queue.Publish(ctx, msg); err != nil {
		return "", err
	}

	o.logger.Info("work item submitted",
		"taskId", taskId, "uri", source.URI, "tag", tag, "company", company)
	return taskId, nil
}

// Run consumes stage messages until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) error {
	return o.queue.Consume(ctx, o.Handle)
}

// Handle processes one stage message. Returning nil acknowledges it; a
// plain error triggers broker redelivery; a permanent error stops
// redelivery after a terminal failure has been durably recorded.
func (o *Orchestrator) Handle(ctx context.Context, msg queue.StageMessage) error {
	item, err := o.items.GetWorkItem(ctx, msg.WorkItemId)
	if errors.Is(err, storage.ErrNotFound) {
		// The item was already completed and cleaned up, or never
		// created. Redelivery cannot make it appear.
		o.logger.Warn("stage message for unknown work item",
			"taskId", msg.TaskId, "stage", msg.Stage.String())
		return queue.Permanent(err)
	}
	if err != nil {
		return err
	}

	// Redelivery after a terminal transition is a no-op.
	terminal, err := o.tracker.Terminal(ctx, item.TaskId)
	if err != nil {
		return err
	}
	if terminal {
		return nil
	}

	if err := o.tracker.Advance(ctx, item.TaskId, core.StatusForStage(msg.Stage), ""); err != nil {
		// The stage must not run with stale visible progress.
		return err
	}

	item.Stage = msg.Stage
	item.Attempt = msg.Attempt

	var nextKey string
	runErr := PolicyForStage(msg.Stage).Run(ctx, o.logger, func() error {
		var stageErr error
		nextKey, stageErr = o.runStage(ctx, item, msg.Stage, msg.PayloadKey)
		return stageErr
	})
	if runErr != nil {
		return o.fail(ctx, item, msg.Stage, runErr)
	}

	next := msg.Stage.Next()
	if next == 0 {
		return o.complete(ctx, item)
	}

	// The next dispatch must not outrun the durable record of this
	// stage's success.
	item.Stage = next
	item.Attempt = 0
	if err := o.items.PutWorkItem(ctx, item); err != nil {
		return err
	}

	return o.queue.Publish(ctx, queue.StageMessage{
		WorkItemId: item.Id,
		TaskId:     item.TaskId,
		Stage:      next,
		PayloadKey: nextKey,
	})
}

func (o *Orchestrator) runStage(ctx context.Context, item *core.WorkItem, stage core.Stage, payloadKey string) (string, error) {
	switch stage {
	case core.StageExtract:
		return o.stages.Extract.Run(ctx, item)
	case core.StageChunk:
		return o.stages.Chunk.Run(ctx, item, payloadKey)
	case core.StageEmbed:
		return o.stages.Embed.Run(ctx, item, payloadKey)
	case core.StageInsert:
		return o.stages.Insert.Run(ctx, item, payloadKey)
	default:
		return "", NonRetryable(fmt.Errorf("%w: %d", core.ErrInvalidStage, stage))
	}
}

// fail records the terminal failure with a stage-distinguishing note so
// operators can tell a failed insert from a failed embed. The FAILED
// write is never dropped: if it cannot be persisted the message is left
// for redelivery instead.
func (o *Orchestrator) fail(ctx context.Context, item *core.WorkItem, stage core.Stage, cause error) error {
	note := fmt.Sprintf("%s failed: %v", stage, cause)
	if err := o.tracker.Advance(ctx, item.TaskId, core.StatusFailed, note); err != nil {
		return err
	}

	o.logger.Error("pipeline run failed",
		"taskId", item.TaskId, "stage", stage.String(), "err", cause)
	return queue.Permanent(cause)
}

func (o *Orchestrator) complete(ctx context.Context, item *core.WorkItem) error {
	if err := o.tracker.Advance(ctx, item.TaskId, core.StatusCompleted, ""); err != nil {
		return err
	}

	// The status record outlives the run; the work item and the
	// inter-stage payloads do not.
	if err := o.items.DeleteWorkItem(ctx, item.Id); err != nil {
		o.logger.Warn("failed to delete completed work item",
			"taskId", item.TaskId, "err", err)
	}
	for _, key := range []string{extractedKey(item.TaskId), chunksKey(item.TaskId), vectorsKey(item.TaskId)} {
		if err := o.objects.Delete(ctx, key); err != nil {
			o.logger.Warn("failed to delete stage payload", "key", key, "err", err)
		}
	}

	o.logger.Info("work item completed", "taskId", item.TaskId)
	return nil
}
