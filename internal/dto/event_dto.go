package dto

import (
	"time"

	"github.com/google/uuid"

	"ai-research-desk/internal/entity"
)

type EventType string

const (
	EventMessageDelta      EventType = "message_delta"
	EventMessageComplete   EventType = "message_complete"
	EventStateChanged      EventType = "state_changed"
	EventTelemetryUpdated  EventType = "telemetry_updated"
	EventIngestionProgress EventType = "ingestion_progress"
	EventErrorRaised       EventType = "error_raised"
)

// Event is the orchestrator-to-UI envelope, fanned out by the websocket hub
// in publish order. Only the fields relevant to Type are set.
type Event struct {
	Type       EventType `json:"type"`
	SessionId  uuid.UUID `json:"session_id,omitempty"`
	Generation uint64    `json:"generation,omitempty"`
	At         time.Time `json:"at"`

	// state_changed
	State string `json:"state,omitempty"`

	// message_delta
	Delta string `json:"delta,omitempty"`

	// message_complete
	Message *MessageDTO `json:"message,omitempty"`

	// telemetry_updated
	Telemetry            []entity.TelemetrySample `json:"telemetry,omitempty"`
	TelemetryUnavailable bool                     `json:"telemetry_unavailable,omitempty"`

	// ingestion_progress
	Ingestion *IngestionProgressDTO `json:"ingestion,omitempty"`

	// error_raised / telemetry_unavailable reason
	Error string `json:"error,omitempty"`
}

type MessageDTO struct {
	Id         uuid.UUID   `json:"id"`
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	Incomplete bool        `json:"incomplete"`
	ChunkIds   []uuid.UUID `json:"chunk_ids,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

type IngestionProgressDTO struct {
	DocumentId uuid.UUID `json:"document_id,omitempty"`
	Path       string    `json:"path"`
	Status     string    `json:"status"` // SCANNING | INDEXED | FAILED | UNCHANGED | COMPLETED
	Reason     string    `json:"reason,omitempty"`
	ChunkCount int       `json:"chunk_count,omitempty"`
}

func MessageToDTO(msg *entity.Message) *MessageDTO {
	if msg == nil {
		return nil
	}
	return &MessageDTO{
		Id:         msg.Id,
		Role:       msg.Role,
		Content:    msg.Content,
		Incomplete: msg.Incomplete,
		ChunkIds:   msg.ChunkIds,
		CreatedAt:  msg.CreatedAt,
	}
}
