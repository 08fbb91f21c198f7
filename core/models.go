package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing so that resubmitting the
// same source under the same task yields the same identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Stage identifies one step of the ingestion pipeline.
type Stage int

const (
	// StageExtract resolves a source reference into raw text.
	StageExtract Stage = iota + 1
	// StageChunk splits extracted text into embeddable chunks.
	StageChunk
	// StageEmbed computes one vector per chunk.
	StageEmbed
	// StageInsert upserts vectors into the vector index.
	StageInsert
)

// String returns the lowercase stage name used in queue subjects and logs.
func (s Stage) String() string {
	switch s {
	case StageExtract:
		return "extract"
	case StageChunk:
		return "chunk"
	case StageEmbed:
		return "embed"
	case StageInsert:
		return "insert"
	default:
		return "unknown"
	}
}

// Next returns the stage that follows s in the pipeline.
// Returns 0 for StageInsert, which is the last stage.
func (s Stage) Next() Stage {
	if s < StageExtract || s >= StageInsert {
		return 0
	}
	return s + 1
}

// TaskStatus is the externally visible lifecycle status of a task.
// The string values are part of the status-polling contract and must not
// be renamed without a migration.
type TaskStatus string

const (
	StatusQueued     TaskStatus = "QUEUED"
	StatusStarted    TaskStatus = "STARTED"
	StatusExtraction TaskStatus = "EXTRACTION"
	StatusChunking   TaskStatus = "CHUNKING"
	StatusEmbedding  TaskStatus = "EMBEDDING"
	StatusInsertion  TaskStatus = "INSERTION"
	StatusCompleted  TaskStatus = "COMPLETED"
	StatusFailed     TaskStatus = "FAILED"
)

// Rank orders statuses by pipeline progress. A status write with a lower
// rank never overwrites one with a higher rank, which keeps redelivered
// or out-of-order updates from rewinding externally visible progress.
func (s TaskStatus) Rank() int {
	switch s {
	case StatusQueued:
		return 0
	case StatusStarted:
		return 1
	case StatusExtraction:
		return 2
	case StatusChunking:
		return 3
	case StatusEmbedding:
		return 4
	case StatusInsertion:
		return 5
	case StatusCompleted:
		return 6
	case StatusFailed:
		return 7
	default:
		return -1
	}
}

// Terminal reports whether no further transitions are permitted.
func (s TaskStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StatusForStage returns the status written when a stage begins running.
func StatusForStage(s Stage) TaskStatus {
	switch s {
	case StageExtract:
		return StatusExtraction
	case StageChunk:
		return StatusChunking
	case StageEmbed:
		return StatusEmbedding
	case StageInsert:
		return StatusInsertion
	default:
		return StatusStarted
	}
}

// SourceRef locates a document to ingest.
type SourceRef struct {
	URI          string // object key or URL of the document
	DeclaredType string // declared content type, e.g. "text", "html"
	PageWise     bool   // extract page-by-page instead of as one text
}

// WorkItem represents one ingestion submission as it moves through the
// pipeline. It is exclusively owned by the orchestrator; the status store
// holds only a denormalized projection.
type WorkItem struct {
	Id          ID
	TaskId      string // external task handle
	Source      SourceRef
	Tag         string // routing label, selects the destination collection
	Company     string // tenant owning the submission
	Stage       Stage
	Attempt     int // retry counter for the current stage
	SubmittedAt time.Time
}

// TaskStatusRecord is the persisted status projection for a task.
type TaskStatusRecord struct {
	TaskId    string
	Status    TaskStatus
	Progress  string // free-form sub-label for operators
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChunkSet is the output of the chunk stage, stored in the object store
// between stages.
type ChunkSet struct {
	Chunks []string
}

// VectorSet pairs chunks with their embeddings, 1:1 by index.
type VectorSet struct {
	Chunks  []string
	Vectors [][]float32
}

// Point is one vector-index entry produced by the embed stage.
type Point struct {
	Id      string
	Vector  []float32
	Payload string
}
