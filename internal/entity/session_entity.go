package entity

import (
	"time"

	"github.com/google/uuid"

	"ai-research-desk/internal/constant"
)

// Message is one conversation turn. Content may grow while the assistant is
// streaming; once Incomplete is cleared the message is never mutated again.
type Message struct {
	Id         uuid.UUID   `json:"id"`
	Role       string      `json:"role"`
	Content    string      `json:"content"`
	Incomplete bool        `json:"incomplete"`
	ChunkIds   []uuid.UUID `json:"chunk_ids,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Session is one conversation. Owned exclusively by the orchestrator; all
// mutation happens on its event loop.
type Session struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Model     string     `json:"model"`
	State     string     `json:"state"` // constant.ConversationState*
	LastError string     `json:"last_error,omitempty"`
	Messages  []*Message `json:"messages"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func NewSession(model string) *Session {
	now := time.Now()
	return &Session{
		Id:        uuid.New(),
		Model:     model,
		State:     constant.ConversationStateIdle,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LastMessage returns the newest message or nil.
func (s *Session) LastMessage() *Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// OpenAssistantMessage returns the newest message if it is an assistant turn
// still being streamed.
func (s *Session) OpenAssistantMessage() *Message {
	last := s.LastMessage()
	if last != nil && last.Role == constant.ChatMessageRoleAssistant && last.Incomplete {
		return last
	}
	return nil
}

func (s *Session) AppendMessage(role, content string, chunkIds []uuid.UUID) *Message {
	msg := &Message{
		Id:        uuid.New(),
		Role:      role,
		Content:   content,
		ChunkIds:  chunkIds,
		CreatedAt: time.Now(),
	}
	s.Messages = append(s.Messages, msg)
	s.UpdatedAt = msg.CreatedAt
	return s.Messages[len(s.Messages)-1]
}
