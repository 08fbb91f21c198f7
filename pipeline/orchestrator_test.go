package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aimock "github.com/openharbor/vecflow/ai/mock"
	"github.com/openharbor/vecflow/chunk"
	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/extract"
	"github.com/openharbor/vecflow/keypool"
	"github.com/openharbor/vecflow/objectstore"
	"github.com/openharbor/vecflow/queue"
	"github.com/openharbor/vecflow/queue/memory"
	"github.com/openharbor/vecflow/storage"
	"github.com/openharbor/vecflow/storage/badger"
	vimock "github.com/openharbor/vecflow/vectorindex/mock"
)

const pipelinePoolYAML = `
companies:
  acme:
    EMBEDDING:
      openai:
        keys: [keyA, keyB]
        models: [test-embed]
`

type harness struct {
	orchestrator *Orchestrator
	items        storage.WorkItemStore
	statuses     storage.TaskStatusStore
	queue        *memory.Queue
	objects      *objectstore.MemoryStore
	embedder     *aimock.MockEmbedder
	source       *aimock.MockSource
	index        *vimock.MockIndex
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	items, statuses, counters, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	q, err := memory.New()
	require.NoError(t, err)
	t.Cleanup(func() { q.Close() })

	objects := objectstore.NewMemoryStore()

	pool, err := keypool.ParsePool([]byte(pipelinePoolYAML))
	require.NoError(t, err)
	selector, err := keypool.NewSelector(keypool.NewStaticSource(pool), counters)
	require.NoError(t, err)

	embedder := aimock.NewMockEmbedder()
	source := aimock.NewMockSource(embedder)
	index := vimock.NewMockIndex()

	tracker, err := NewStatusTracker(statuses, nil)
	require.NoError(t, err)

	orchestrator, err := NewOrchestrator(items, tracker, q, objects, Stages{
		Extract: NewExtractStage(objects, extract.NewRegistry()),
		Chunk:   NewChunkStage(objects, chunk.NewRecursiveSplitter()),
		Embed:   NewEmbedStage(objects, selector, source, "openai", "test-embed"),
		Insert:  NewInsertStage(objects, index),
	})
	require.NoError(t, err)

	return &harness{
		orchestrator: orchestrator,
		items:        items,
		statuses:     statuses,
		queue:        q,
		objects:      objects,
		embedder:     embedder,
		source:       source,
		index:        index,
	}
}

// run consumes until every dispatched stage message has settled.
func (h *harness) run(t *testing.T, ctx context.Context) {
	t.Helper()
	require.NoError(t, h.queue.Consume(ctx, h.orchestrator.Handle))
	h.queue.Drain()
}

func TestOrchestrator_HappyPath(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, h.objects.Put(ctx, "docs/readme.txt",
		[]byte("The quick brown fox jumps over the lazy dog.")))

	taskId, err := h.orchestrator.Submit(ctx,
		core.SourceRef{URI: "docs/readme.txt", DeclaredType: "text"}, "docs", "acme")
	require.NoError(t, err)
	require.NotEmpty(t, taskId)

	h.run(t, ctx)

	record, err := h.statuses.GetStatus(ctx, taskId)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, record.Status)

	points := h.index.Points("docs")
	require.NotEmpty(t, points, "vectors must land in the tag's collection")
	assert.Len(t, points[0].Vector, 384)
	assert.Contains(t, points[0].Payload, "quick brown fox")

	// The credential came from the usage scheduler.
	assert.Equal(t, []string{"keyA"}, h.source.Credentials())

	// Completion cleans up the work item and the inter-stage payloads;
	// only the source document remains.
	assert.Equal(t, 1, h.objects.Len())
}

func TestOrchestrator_UnresolvableSourceFailsWithoutDownstream(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	taskId, err := h.orchestrator.Submit(ctx,
		core.SourceRef{URI: "docs/missing.txt", DeclaredType: "text"}, "docs", "acme")
	require.NoError(t, err)

	h.run(t, ctx)

	record, err := h.statuses.GetStatus(ctx, taskId)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, record.Status)
	assert.Contains(t, record.Progress, "extract failed")

	assert.Zero(t, h.embedder.CallCount(), "no downstream stage may run after a terminal failure")
	assert.Empty(t, h.index.Points("docs"))
}

func TestOrchestrator_UnsupportedTypeFailsImmediately(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, h.objects.Put(ctx, "docs/scan.docx", []byte("binary")))

	taskId, err := h.orchestrator.Submit(ctx,
		core.SourceRef{URI: "docs/scan.docx", DeclaredType: "docx"}, "docs", "acme")
	require.NoError(t, err)

	h.run(t, ctx)

	record, err := h.statuses.GetStatus(ctx, taskId)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, record.Status)
	assert.Contains(t, record.Progress, "extract failed")
}

func TestOrchestrator_EmbedCountMismatchFailsAtEmbed(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h.embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{0.1, 0.2}}, nil // always one vector, whatever the input
	}

	require.NoError(t, h.objects.Put(ctx, "docs/readme.txt", []byte("some text to embed")))

	taskId, err := h.orchestrator.Submit(ctx,
		core.SourceRef{URI: "docs/readme.txt", DeclaredType: "text"}, "docs", "acme")
	require.NoError(t, err)

	h.run(t, ctx)

	record, err := h.statuses.GetStatus(ctx, taskId)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, record.Status)
	assert.Contains(t, record.Progress, "embed failed",
		"a failed embed must be distinguishable from a failed insert")
	assert.Empty(t, h.index.Points("docs"), "nothing may be written for a failed item")
}

func TestOrchestrator_NoEligibleCredentialFailsEmbed(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, h.objects.Put(ctx, "docs/readme.txt", []byte("some text to embed")))

	// globex has no pool entry at all.
	taskId, err := h.orchestrator.Submit(ctx,
		core.SourceRef{URI: "docs/readme.txt", DeclaredType: "text"}, "docs", "globex")
	require.NoError(t, err)

	h.run(t, ctx)

	record, err := h.statuses.GetStatus(ctx, taskId)
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, record.Status)
	assert.Contains(t, record.Progress, "embed failed")
}

func TestOrchestrator_SubmitValidatesSource(t *testing.T) {
	h := newHarness(t)

	_, err := h.orchestrator.Submit(context.Background(),
		core.SourceRef{URI: "", DeclaredType: "text"}, "docs", "acme")
	assert.ErrorIs(t, err, core.ErrEmptySourceRef)
}

func TestOrchestrator_RedeliveryAfterCompletionIsDropped(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, h.objects.Put(ctx, "docs/readme.txt", []byte("hello pipeline")))

	taskId, err := h.orchestrator.Submit(ctx,
		core.SourceRef{URI: "docs/readme.txt", DeclaredType: "text"}, "docs", "acme")
	require.NoError(t, err)

	h.run(t, ctx)

	record, err := h.statuses.GetStatus(ctx, taskId)
	require.NoError(t, err)
	require.Equal(t, core.StatusCompleted, record.Status)

	before := len(h.index.Points("docs"))

	// Late broker redelivery after completion: the work item is already
	// cleaned up, so the message must be dropped for good, not requeued.
	err = h.orchestrator.Handle(ctx, queue.StageMessage{
		WorkItemId: core.IDFromContent(taskId + "\x00" + "docs/readme.txt"),
		TaskId:     taskId,
		Stage:      core.StageInsert,
		PayloadKey: "tasks/" + taskId + "/vectors",
	})
	require.Error(t, err)
	assert.True(t, queue.IsPermanent(err), "redelivery must stop after cleanup")

	assert.Len(t, h.index.Points("docs"), before, "nothing may be written twice")

	status, err := h.statuses.GetStatus(ctx, taskId)
	require.NoError(t, err)
	assert.Equal(t, core.StatusCompleted, status.Status)
}
