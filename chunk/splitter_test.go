package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openharbor/vecflow/core"
)

func TestRecursiveSplitter_ShortTextSingleChunk(t *testing.T) {
	splitter := NewRecursiveSplitter()

	chunks, err := splitter.Split("a short paragraph that fits in one chunk")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestRecursiveSplitter_LongTextSplits(t *testing.T) {
	splitter := NewRecursiveSplitter(WithChunkSize(100), WithChunkOverlap(10))

	var sb strings.Builder
	for i := 0; i < 50; i++ {
		sb.WriteString("Sentence number with a handful of words in it.\n\n")
	}

	chunks, err := splitter.Split(sb.String())
	require.NoError(t, err)
	assert.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c))
	}
}

func TestRecursiveSplitter_Deterministic(t *testing.T) {
	splitter := NewRecursiveSplitter(WithChunkSize(50))
	text := strings.Repeat("the same input text over and over. ", 20)

	first, err := splitter.Split(text)
	require.NoError(t, err)
	second, err := splitter.Split(text)
	require.NoError(t, err)

	assert.Equal(t, first, second, "splitting must be deterministic")
}

func TestRecursiveSplitter_EmptyInput(t *testing.T) {
	splitter := NewRecursiveSplitter()

	_, err := splitter.Split("   \n\t ")
	assert.ErrorIs(t, err, core.ErrChunkingInvariant)
}
