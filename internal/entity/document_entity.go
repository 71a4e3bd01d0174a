package entity

import (
	"time"

	"github.com/google/uuid"
)

type IngestionStatus string

const (
	IngestionPending  IngestionStatus = "PENDING"
	IngestionScanning IngestionStatus = "SCANNING"
	IngestionIndexed  IngestionStatus = "INDEXED"
	IngestionFailed   IngestionStatus = "FAILED"
)

// Document is a source file in the research library. The content hash lets a
// rescan skip files that have not changed.
type Document struct {
	Id         uuid.UUID       `json:"id"`
	Path       string          `json:"path"`
	Hash       string          `json:"hash"`
	Status     IngestionStatus `json:"status"`
	Reason     string          `json:"reason,omitempty"`
	ChunkCount int             `json:"chunk_count"`
	CreatedAt  time.Time       `json:"created_at"`
	IndexedAt  *time.Time      `json:"indexed_at,omitempty"`
}

func NewDocument(path string) *Document {
	return &Document{
		Id:        uuid.New(),
		Path:      path,
		Status:    IngestionPending,
		CreatedAt: time.Now(),
	}
}

// Chunk is a bounded span of document text plus its retrieval key. Owned by
// the retrieval index; messages reference chunks by id only.
type Chunk struct {
	Id           uuid.UUID `json:"id"`
	DocumentId   uuid.UUID `json:"document_id"`
	DocumentPath string    `json:"document_path"`
	Offset       int       `json:"offset"` // rune offset within the document
	Text         string    `json:"text"`
	Embedding    []float32 `json:"-"`
}
