package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openharbor/vecflow/core"
	"github.com/openharbor/vecflow/storage"
)

func testWorkItem() *core.WorkItem {
	return &core.WorkItem{
		Id:     core.IDFromContent("task-1\x00docs/readme.txt"),
		TaskId: "task-1",
		Source: core.SourceRef{
			URI:          "docs/readme.txt",
			DeclaredType: "text",
		},
		Tag:         "docs",
		Company:     "acme",
		Stage:       core.StageExtract,
		SubmittedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestWorkItemStore_PutGet(t *testing.T) {
	items, _, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	item := testWorkItem()

	require.NoError(t, items.PutWorkItem(ctx, item))

	got, err := items.GetWorkItem(ctx, item.Id)
	require.NoError(t, err)
	assert.Equal(t, item, got)
}

func TestWorkItemStore_GetMissing(t *testing.T) {
	items, _, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	_, err = items.GetWorkItem(context.Background(), core.ID(12345))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWorkItemStore_PutReplaces(t *testing.T) {
	items, _, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	item := testWorkItem()
	require.NoError(t, items.PutWorkItem(ctx, item))

	item.Stage = core.StageChunk
	item.Attempt = 0
	require.NoError(t, items.PutWorkItem(ctx, item))

	got, err := items.GetWorkItem(ctx, item.Id)
	require.NoError(t, err)
	assert.Equal(t, core.StageChunk, got.Stage)
}

func TestWorkItemStore_DeleteIdempotent(t *testing.T) {
	items, _, _, backend, err := NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	item := testWorkItem()
	require.NoError(t, items.PutWorkItem(ctx, item))

	require.NoError(t, items.DeleteWorkItem(ctx, item.Id))
	require.NoError(t, items.DeleteWorkItem(ctx, item.Id), "deleting a missing item is not an error")

	_, err = items.GetWorkItem(ctx, item.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
