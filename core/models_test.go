package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent_Deterministic(t *testing.T) {
	id1 := IDFromContent("the same content")
	id2 := IDFromContent("the same content")
	id3 := IDFromContent("different content")

	assert.Equal(t, id1, id2, "identical content must produce identical IDs")
	assert.NotEqual(t, id1, id3)
}

func TestStage_Next(t *testing.T) {
	assert.Equal(t, StageChunk, StageExtract.Next())
	assert.Equal(t, StageEmbed, StageChunk.Next())
	assert.Equal(t, StageInsert, StageEmbed.Next())
	assert.Equal(t, Stage(0), StageInsert.Next(), "insert is the last stage")
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "extract", StageExtract.String())
	assert.Equal(t, "chunk", StageChunk.String())
	assert.Equal(t, "embed", StageEmbed.String())
	assert.Equal(t, "insert", StageInsert.String())
	assert.Equal(t, "unknown", Stage(42).String())
}

func TestTaskStatus_RankOrdering(t *testing.T) {
	ordered := []TaskStatus{
		StatusQueued,
		StatusStarted,
		StatusExtraction,
		StatusChunking,
		StatusEmbedding,
		StatusInsertion,
		StatusCompleted,
		StatusFailed,
	}

	for i := 1; i < len(ordered); i++ {
		assert.Greater(t, ordered[i].Rank(), ordered[i-1].Rank(),
			"%s must rank above %s", ordered[i], ordered[i-1])
	}
	assert.Equal(t, -1, TaskStatus("BOGUS").Rank())
}

func TestTaskStatus_Terminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, StatusQueued.Terminal())
	assert.False(t, StatusInsertion.Terminal())
}

func TestStatusForStage(t *testing.T) {
	assert.Equal(t, StatusExtraction, StatusForStage(StageExtract))
	assert.Equal(t, StatusChunking, StatusForStage(StageChunk))
	assert.Equal(t, StatusEmbedding, StatusForStage(StageEmbed))
	assert.Equal(t, StatusInsertion, StatusForStage(StageInsert))
	assert.Equal(t, StatusStarted, StatusForStage(Stage(0)))
}

func TestWorkItem_Validate(t *testing.T) {
	valid := WorkItem{
		Id:     IDFromContent("doc"),
		TaskId: "task-1",
		Source: SourceRef{URI: "docs/readme.txt", DeclaredType: "text"},
		Stage:  StageExtract,
	}
	require.NoError(t, valid.Validate())

	noSource := valid
	noSource.Source.URI = ""
	assert.ErrorIs(t, noSource.Validate(), ErrEmptySourceRef)

	noTask := valid
	noTask.TaskId = ""
	assert.ErrorIs(t, noTask.Validate(), ErrInvalidWorkItem)

	badStage := valid
	badStage.Stage = Stage(99)
	assert.ErrorIs(t, badStage.Validate(), ErrInvalidStage)

	negAttempt := valid
	negAttempt.Attempt = -1
	assert.ErrorIs(t, negAttempt.Validate(), ErrInvalidWorkItem)
}
