package inference

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-research-desk/internal/dto"
	"ai-research-desk/internal/pkg/logger"
	"ai-research-desk/pkg/llm"
)

type collectReports struct {
	mu      sync.Mutex
	reports []dto.InferenceReport
}

func (c *collectReports) PublishInference(r dto.InferenceReport) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, r)
	return nil
}

func (c *collectReports) snapshot() []dto.InferenceReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]dto.InferenceReport, len(c.reports))
	copy(out, c.reports)
	return out
}

// scriptedProvider feeds a fixed sequence of deltas through the handler,
// optionally blocking on a gate between tokens so tests can cancel mid-stream.
type scriptedProvider struct {
	deltas []string
	err    error
	gate   chan struct{} // if set, one receive per delta

	mu        sync.Mutex
	streamCtx context.Context
}

func (p *scriptedProvider) seenCtx() context.Context {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streamCtx
}

func (p *scriptedProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", errors.New("not implemented")
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", errors.New("not implemented")
}

func (p *scriptedProvider) ChatStream(ctx context.Context, history []llm.Message, handler llm.StreamHandler, options ...llm.Option) (string, error) {
	p.mu.Lock()
	p.streamCtx = ctx
	p.mu.Unlock()

	var full strings.Builder
	for _, d := range p.deltas {
		if p.gate != nil {
			select {
			case <-p.gate:
			case <-ctx.Done():
				return full.String(), ctx.Err()
			}
		}
		if err := handler(d); err != nil {
			return full.String(), err
		}
		full.WriteString(d)
	}
	if p.err != nil {
		return full.String(), p.err
	}
	return full.String(), nil
}

func waitTerminal(t *testing.T, s *Session) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Terminal() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("session never reached a terminal state, got %s", s.State())
}

func TestSessionStreamsToCompletion(t *testing.T) {
	provider := &scriptedProvider{deltas: []string{"Hello", ", ", "world"}}
	pub := &collectReports{}
	s := NewSession(uuid.New(), 7, provider, pub, logger.NewNopLogger())

	require.NoError(t, s.Start(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}))
	waitTerminal(t, s)

	assert.Equal(t, StateCompleted, s.State())

	reports := pub.snapshot()
	require.Len(t, reports, 4)
	for i, want := range []string{"Hello", ", ", "world"} {
		assert.Equal(t, dto.InferenceDelta, reports[i].Kind)
		assert.Equal(t, want, reports[i].Delta)
		assert.Equal(t, uint64(7), reports[i].Generation)
	}
	final := reports[3]
	assert.Equal(t, dto.InferenceCompleted, final.Kind)
	assert.Equal(t, "Hello, world", final.Content)
}

func TestSessionStartTwiceRejected(t *testing.T) {
	provider := &scriptedProvider{deltas: []string{"x"}}
	s := NewSession(uuid.New(), 1, provider, &collectReports{}, logger.NewNopLogger())

	require.NoError(t, s.Start(context.Background(), nil))
	assert.Error(t, s.Start(context.Background(), nil))
	waitTerminal(t, s)
}

func TestSessionFailurePublishesReason(t *testing.T) {
	provider := &scriptedProvider{
		deltas: []string{"par", "tial"},
		err:    errors.New("connection refused"),
	}
	pub := &collectReports{}
	s := NewSession(uuid.New(), 3, provider, pub, logger.NewNopLogger())

	require.NoError(t, s.Start(context.Background(), nil))
	waitTerminal(t, s)

	assert.Equal(t, StateFailed, s.State())
	assert.Equal(t, "connection refused", s.FailureReason())

	reports := pub.snapshot()
	require.NotEmpty(t, reports)
	last := reports[len(reports)-1]
	assert.Equal(t, dto.InferenceFailed, last.Kind)
	assert.Equal(t, "connection refused", last.Reason)
}

func TestCancelMidStreamStopsReports(t *testing.T) {
	gate := make(chan struct{})
	provider := &scriptedProvider{
		deltas: []string{"one", "two", "three"},
		gate:   gate,
	}
	pub := &collectReports{}
	s := NewSession(uuid.New(), 5, provider, pub, logger.NewNopLogger())

	require.NoError(t, s.Start(context.Background(), nil))

	// Let one token through, then cancel before releasing the rest.
	gate <- struct{}{}
	for len(pub.snapshot()) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	s.Cancel()
	close(gate)
	waitTerminal(t, s)

	assert.Equal(t, StateCancelled, s.State())

	reports := pub.snapshot()
	require.Len(t, reports, 1, "nothing may be published after cancel")
	assert.Equal(t, dto.InferenceDelta, reports[0].Kind)
	assert.Equal(t, "one", reports[0].Delta)
}

func TestCompletionReleasesStreamContext(t *testing.T) {
	provider := &scriptedProvider{deltas: []string{"done"}}
	s := NewSession(uuid.New(), 4, provider, &collectReports{}, logger.NewNopLogger())

	require.NoError(t, s.Start(context.Background(), nil))
	waitTerminal(t, s)
	require.Equal(t, StateCompleted, s.State())

	// The per-exchange context must die with the exchange, or every
	// completed prompt leaks a child of the process context.
	require.Eventually(t, func() bool {
		ctx := provider.seenCtx()
		return ctx != nil && ctx.Err() != nil
	}, 2*time.Second, 5*time.Millisecond, "stream context still live after completion")
}

func TestCancelIdempotentAndNoOpWhenTerminal(t *testing.T) {
	provider := &scriptedProvider{deltas: []string{"done"}}
	s := NewSession(uuid.New(), 2, provider, &collectReports{}, logger.NewNopLogger())

	require.NoError(t, s.Start(context.Background(), nil))
	waitTerminal(t, s)
	require.Equal(t, StateCompleted, s.State())

	s.Cancel()
	s.Cancel()
	assert.Equal(t, StateCompleted, s.State())
}
