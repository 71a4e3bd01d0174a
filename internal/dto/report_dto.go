package dto

import (
	"time"

	"github.com/google/uuid"

	"ai-research-desk/internal/entity"
)

// Producer-to-orchestrator payloads on the inbound topic. Every report that
// carries a task result is stamped with the generation id of the task that
// produced it; the orchestrator drops reports whose generation no longer
// matches the active task.

type InferenceReportKind string

const (
	InferenceDelta     InferenceReportKind = "delta"
	InferenceCompleted InferenceReportKind = "completed"
	InferenceFailed    InferenceReportKind = "failed"
)

type InferenceReport struct {
	SessionId  uuid.UUID           `json:"session_id"`
	Generation uint64              `json:"generation"`
	Kind       InferenceReportKind `json:"kind"`
	Delta      string              `json:"delta,omitempty"`
	Content    string              `json:"content,omitempty"` // full text on completed
	Reason     string              `json:"reason,omitempty"`  // on failed
}

type RetrievedChunkDTO struct {
	Id           uuid.UUID `json:"id"`
	DocumentPath string    `json:"document_path"`
	Offset       int       `json:"offset"`
	Text         string    `json:"text"`
	Score        float64   `json:"score"`
}

type RetrievalReport struct {
	SessionId  uuid.UUID           `json:"session_id"`
	Generation uint64              `json:"generation"`
	Chunks     []RetrievedChunkDTO `json:"chunks,omitempty"`
	Error      string              `json:"error,omitempty"` // timeout or backend failure; degrades to empty context
}

type TelemetryReport struct {
	Available bool                     `json:"available"`
	Reason    string                   `json:"reason,omitempty"`
	Samples   []entity.TelemetrySample `json:"samples,omitempty"`
	At        time.Time                `json:"at"`
}

type IngestionReport struct {
	SessionId  uuid.UUID `json:"session_id,omitempty"` // session that initiated the scan, if any
	Generation uint64    `json:"generation,omitempty"` // set on the final (scan-done) report
	Path       string    `json:"path,omitempty"`
	Hash       string    `json:"hash,omitempty"`
	Status     string    `json:"status"` // SCANNING | INDEXED | FAILED | UNCHANGED | COMPLETED
	Reason     string    `json:"reason,omitempty"`
	ChunkCount int       `json:"chunk_count,omitempty"`
	Final      bool      `json:"final,omitempty"` // true on the scan-done report
}

// Ingestion report statuses. COMPLETED marks the end of a whole scan, not a
// per-document transition.
const (
	IngestionStatusScanning  = "SCANNING"
	IngestionStatusIndexed   = "INDEXED"
	IngestionStatusFailed    = "FAILED"
	IngestionStatusUnchanged = "UNCHANGED"
	IngestionStatusCompleted = "COMPLETED"
)
