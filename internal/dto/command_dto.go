package dto

import "github.com/google/uuid"

type CommandType string

const (
	CommandSubmit      CommandType = "submit"
	CommandCancel      CommandType = "cancel"
	CommandAddDocument CommandType = "add_document"
	CommandRetry       CommandType = "retry"
)

// Command is the foreground-to-orchestrator envelope. Arrives over the
// websocket or the mirrored REST endpoints and is published to the inbound
// topic after validation.
type Command struct {
	Type      CommandType `json:"type" validate:"required,oneof=submit cancel add_document retry"`
	SessionId uuid.UUID   `json:"session_id,omitempty"`
	Text      string      `json:"text,omitempty"`
	Path      string      `json:"path,omitempty"`  // add_document; empty means rescan the research dir
	Model     string      `json:"model,omitempty"` // optional per-submit model override
}
