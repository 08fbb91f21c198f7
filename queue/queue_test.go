package queue

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openharbor/vecflow/core"
)

func TestStageMessage_EncodeDecode(t *testing.T) {
	msg := StageMessage{
		WorkItemId: core.IDFromContent("doc"),
		TaskId:     "task-1",
		Stage:      core.StageEmbed,
		Attempt:    2,
		PayloadKey: "tasks/task-1/chunks",
	}

	decoded, err := DecodeStageMessage(EncodeStageMessage(msg))
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestDecodeStageMessage_Truncated(t *testing.T) {
	msg := StageMessage{WorkItemId: 1, TaskId: "task", Stage: core.StageExtract}
	data := EncodeStageMessage(msg)

	_, err := DecodeStageMessage(data[:2])
	assert.Error(t, err)
}

func TestPermanent(t *testing.T) {
	cause := errors.New("bad input")

	err := Permanent(cause)
	assert.True(t, IsPermanent(err))
	assert.ErrorIs(t, err, cause, "the cause must stay inspectable")

	assert.False(t, IsPermanent(cause))
	assert.False(t, IsPermanent(nil))
	assert.NoError(t, Permanent(nil))
}
