package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/storage"
)

func TestTaskStatusStore_CreateAndGet(t *testing.T) {
	_, statuses, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, statuses.UpsertStatus(ctx, "task-1", core.StatusQueued, ""))

	record, err := statuses.GetStatus(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "task-1", record.TaskId)
	assert.Equal(t, core.StatusQueued, record.Status)
	assert.False(t, record.CreatedAt.IsZero())
}

func TestTaskStatusStore_GetMissing(t *testing.T) {
	_, statuses, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	_, err = statuses.GetStatus(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTaskStatusStore_AdvancePreservesCreatedAt(t *testing.T) {
	_, statuses, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, statuses.UpsertStatus(ctx, "task-1", core.StatusQueued, ""))
	first, err := statuses.GetStatus(ctx, "task-1")
	require.NoError(t, err)

	require.NoError(t, statuses.UpsertStatus(ctx, "task-1", core.StatusExtraction, ""))
	second, err := statuses.GetStatus(ctx, "task-1")
	require.NoError(t, err)

	assert.Equal(t, core.StatusExtraction, second.Status)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestTaskStatusStore_OutOfOrderWriteDropped(t *testing.T) {
	_, statuses, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, statuses.UpsertStatus(ctx, "task-1", core.StatusEmbedding, ""))

	// A redelivered extract message arrives after embed already started.
	require.NoError(t, statuses.UpsertStatus(ctx, "task-1", core.StatusExtraction, ""))

	record, err := statuses.GetStatus(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusEmbedding, record.Status,
		"lower-ranked status must never rewind visible progress")
}

func TestTaskStatusStore_TerminalAbsorbs(t *testing.T) {
	_, statuses, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, statuses.UpsertStatus(ctx, "task-1", core.StatusFailed, "embed failed"))

	require.NoError(t, statuses.UpsertStatus(ctx, "task-1", core.StatusInsertion, ""))
	require.NoError(t, statuses.UpsertStatus(ctx, "task-1", core.StatusCompleted, ""))

	record, err := statuses.GetStatus(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, core.StatusFailed, record.Status)
	assert.Equal(t, "embed failed", record.Progress)
}

func TestTaskStatusStore_AdvanceIdempotent(t *testing.T) {
	_, statuses, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	require.NoError(t, statuses.UpsertStatus(ctx, "task-1", core.StatusCompleted, ""))
	first, err := statuses.GetStatus(ctx, "task-1")
	require.NoError(t, err)

	require.NoError(t, statuses.UpsertStatus(ctx, "task-1", core.StatusCompleted, ""))
	second, err := statuses.GetStatus(ctx, "task-1")
	require.NoError(t, err)

	assert.Equal(t, first, second, "repeated advance must leave the record unchanged")
}

func TestTaskStatusStore_RejectsInvalidInput(t *testing.T) {
	_, statuses, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	assert.Error(t, statuses.UpsertStatus(ctx, "", core.StatusQueued, ""))
	assert.ErrorIs(t, statuses.UpsertStatus(ctx, "task-1", core.TaskStatus("BOGUS"), ""), core.ErrInvalidStatus)
}
