package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskKind string

const (
	TaskInference TaskKind = "INFERENCE"
	TaskRetrieval TaskKind = "RETRIEVAL"
	TaskScan      TaskKind = "SCAN"
)

// Task is a handle to an in-flight cancellable operation. The generation id
// is monotonic per orchestrator; results stamped with an older generation
// are discarded, which is what keeps a superseded request from corrupting
// later state.
type Task struct {
	Generation uint64
	Kind       TaskKind
	SessionId  uuid.UUID
	Cancel     context.CancelFunc
	StartedAt  time.Time
}

func NewTask(generation uint64, kind TaskKind, sessionId uuid.UUID, cancel context.CancelFunc) *Task {
	return &Task{
		Generation: generation,
		Kind:       kind,
		SessionId:  sessionId,
		Cancel:     cancel,
		StartedAt:  time.Now(),
	}
}
