package dto

import (
	"time"

	"github.com/google/uuid"
)

// REST surface DTOs. Mutating endpoints translate to Commands; reads are
// snapshots taken off the orchestrator.

type CreateSessionRequest struct {
	Model string `json:"model,omitempty"`
}

type CreateSessionResponse struct {
	Id    uuid.UUID `json:"id"`
	Model string    `json:"model"`
}

type SendChatRequest struct {
	SessionId uuid.UUID `json:"session_id" validate:"required"`
	Chat      string    `json:"chat" validate:"required"`
	Model     string    `json:"model,omitempty"`
}

type CancelRequest struct {
	SessionId uuid.UUID `json:"session_id" validate:"required"`
}

type RetryRequest struct {
	SessionId uuid.UUID `json:"session_id" validate:"required"`
}

type AddDocumentRequest struct {
	SessionId uuid.UUID `json:"session_id,omitempty"`
	Path      string    `json:"path,omitempty"` // empty rescans the configured research dir
}

type SessionSummaryResponse struct {
	Id        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Model     string    `json:"model"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SessionHistoryResponse struct {
	Id        uuid.UUID    `json:"id"`
	Title     string       `json:"title"`
	Model     string       `json:"model"`
	State     string       `json:"state"`
	LastError string       `json:"last_error,omitempty"`
	Messages  []MessageDTO `json:"messages"`
}

type DocumentResponse struct {
	Id         uuid.UUID  `json:"id"`
	Path       string     `json:"path"`
	Status     string     `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	ChunkCount int        `json:"chunk_count"`
	IndexedAt  *time.Time `json:"indexed_at,omitempty"`
}
