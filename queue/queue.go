package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/openharbor/vecflow/core"
)

// StageMessage is the wire contract for one stage dispatch. Large stage
// payloads live in the object store; the message carries only the key.
type StageMessage struct {
	WorkItemId core.ID
	TaskId     string
	Stage      core.Stage
	Attempt    int    // broker delivery attempt, informational
	PayloadKey string // object store key of the stage input, empty for extract
}

// Handler processes one stage message. Returning nil acknowledges the
// message; returning an error triggers redelivery unless the error is
// marked Permanent.
type Handler func(ctx context.Context, msg StageMessage) error

// TaskQueue is the distributed task queue the pipeline dispatches stage
// work onto. Implementations must redeliver unacknowledged messages and
// must acknowledge only after the handler returns nil (late ack).
type TaskQueue interface {
	// Publish enqueues a stage message.
	Publish(ctx context.Context, msg StageMessage) error

	// Consume starts delivering messages to handler until ctx is
	// cancelled or Close is called. Handler invocations may run
	// concurrently.
	Consume(ctx context.Context, handler Handler) error

	// Close stops consumption and releases broker resources.
	Close() error
}

// PermanentError marks a handler failure that must not be redelivered.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps an error to stop redelivery of the message.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent checks if an error is marked permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// StageMessageMUS serializes StageMessages.
var StageMessageMUS = stageMessageMUS{}

type stageMessageMUS struct{}

func (stageMessageMUS) Marshal(v StageMessage, bs []byte) (n int) {
	n = core.IDMUS.Marshal(v.WorkItemId, bs)
	n += ord.String.Marshal(v.TaskId, bs[n:])
	n += varint.Int.Marshal(int(v.Stage), bs[n:])
	n += varint.Int.Marshal(v.Attempt, bs[n:])
	n += ord.String.Marshal(v.PayloadKey, bs[n:])
	return n
}

func (stageMessageMUS) Unmarshal(bs []byte) (v StageMessage, n int, err error) {
	var n1 int
	if v.WorkItemId, n, err = core.IDMUS.Unmarshal(bs); err != nil {
		return v, n, err
	}
	if v.TaskId, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	var stage int
	if stage, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	v.Stage = core.Stage(stage)
	n += n1
	if v.Attempt, n1, err = varint.Int.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	if v.PayloadKey, n1, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return v, n + n1, err
	}
	n += n1
	return v, n, nil
}

func (stageMessageMUS) Size(v StageMessage) (size int) {
	size = core.IDMUS.Size(v.WorkItemId)
	size += ord.String.Size(v.TaskId)
	size += varint.Int.Size(int(v.Stage))
	size += varint.Int.Size(v.Attempt)
	size += ord.String.Size(v.PayloadKey)
	return size
}

// EncodeStageMessage serializes a stage message to bytes.
func EncodeStageMessage(msg StageMessage) []byte {
	buf := make([]byte, StageMessageMUS.Size(msg))
	StageMessageMUS.Marshal(msg, buf)
	return buf
}

// DecodeStageMessage deserializes a stage message from bytes.
func DecodeStageMessage(data []byte) (StageMessage, error) {
	msg, _, err := StageMessageMUS.Unmarshal(data)
	return msg, err
}
