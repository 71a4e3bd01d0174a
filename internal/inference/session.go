package inference

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"ai-research-desk/internal/dto"
	"ai-research-desk/internal/pkg/logger"
	"ai-research-desk/pkg/llm"
)

type State string

const (
	StateIdle      State = "IDLE"
	StateSending   State = "SENDING"
	StateStreaming State = "STREAMING"
	StateCompleted State = "COMPLETED"
	StateCancelled State = "CANCELLED"
	StateFailed    State = "FAILED"
)

// ErrCancelled aborts the backend stream when Cancel is called.
var ErrCancelled = errors.New("inference cancelled")

// InferencePublisher delivers session reports to the orchestrator's inbound
// channel.
type InferencePublisher interface {
	PublishInference(report dto.InferenceReport) error
}

// Session owns one request/response exchange with the model backend.
//
//	Idle -> Sending -> Streaming -> Completed
//	any state       -> Cancelled
//	Sending|Streaming -> Failed(reason)
//
// Deltas are forwarded in receipt order under one goroutine, so a later
// partial can never overtake an earlier one. After Cancel, no further
// reports are published for this generation.
type Session struct {
	sessionId  uuid.UUID
	generation uint64
	provider   llm.LLMProvider
	publisher  InferencePublisher
	logger     logger.ILogger

	mu     sync.Mutex
	state  State
	reason string
	cancel context.CancelFunc
}

func NewSession(sessionId uuid.UUID, generation uint64, provider llm.LLMProvider, publisher InferencePublisher, log logger.ILogger) *Session {
	return &Session{
		sessionId:  sessionId,
		generation: generation,
		provider:   provider,
		publisher:  publisher,
		logger:     log,
		state:      StateIdle,
	}
}

func (s *Session) Generation() uint64 { return s.generation }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FailureReason returns the transport error after a Failed transition.
func (s *Session) FailureReason() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *Session) Terminal() bool {
	switch s.State() {
	case StateCompleted, StateCancelled, StateFailed:
		return true
	}
	return false
}

// Start dispatches the request and streams the response in a new goroutine.
// It is a no-op unless the session is Idle.
func (s *Session) Start(ctx context.Context, history []llm.Message, opts ...llm.Option) error {
	s.mu.Lock()
	if s.state != StateIdle {
		s.mu.Unlock()
		return errors.New("inference session already started")
	}
	streamCtx, cancel := context.WithCancel(ctx)
	s.state = StateSending
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(streamCtx, cancel, history, opts...)
	return nil
}

// Cancel moves the session to Cancelled and tears down the backend
// connection. Idempotent; a no-op on terminal sessions.
func (s *Session) Cancel() {
	s.mu.Lock()
	if s.state == StateCompleted || s.state == StateCancelled || s.state == StateFailed {
		s.mu.Unlock()
		return
	}
	s.state = StateCancelled
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *Session) run(ctx context.Context, cancel context.CancelFunc, history []llm.Message, opts ...llm.Option) {
	// The stream context must not outlive the exchange.
	defer cancel()

	content, err := s.provider.ChatStream(ctx, history, s.onDelta, opts...)

	s.mu.Lock()
	if s.state == StateCancelled {
		// Cooperative stop: the partial already forwarded stays with the
		// orchestrator, and nothing further is published for this generation.
		s.mu.Unlock()
		s.logger.Debug("Inference", "Stream ended after cancel", map[string]interface{}{
			"session_id": s.sessionId, "generation": s.generation,
		})
		return
	}

	if err != nil {
		s.state = StateFailed
		s.reason = err.Error()
		s.mu.Unlock()
		s.report(dto.InferenceReport{
			SessionId:  s.sessionId,
			Generation: s.generation,
			Kind:       dto.InferenceFailed,
			Reason:     err.Error(),
		})
		return
	}

	s.state = StateCompleted
	s.mu.Unlock()
	s.report(dto.InferenceReport{
		SessionId:  s.sessionId,
		Generation: s.generation,
		Kind:       dto.InferenceCompleted,
		Content:    content,
	})
}

func (s *Session) onDelta(delta string) error {
	s.mu.Lock()
	switch s.state {
	case StateCancelled:
		s.mu.Unlock()
		return ErrCancelled
	case StateSending:
		// First token received.
		s.state = StateStreaming
	}
	s.mu.Unlock()

	s.report(dto.InferenceReport{
		SessionId:  s.sessionId,
		Generation: s.generation,
		Kind:       dto.InferenceDelta,
		Delta:      delta,
	})
	return nil
}

func (s *Session) report(r dto.InferenceReport) {
	if err := s.publisher.PublishInference(r); err != nil {
		s.logger.Warn("Inference", "Failed to publish report", map[string]interface{}{
			"session_id": s.sessionId,
			"error":      err.Error(),
		})
	}
}
