package search

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"ai-research-desk/internal/entity"
	"ai-research-desk/internal/pkg/logger"
	"ai-research-desk/pkg/embedding"
	"ai-research-desk/pkg/rag/index"
)

type fixedEmbedder struct {
	vec  []float32
	fail bool
}

func (e *fixedEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if e.fail {
		return nil, errors.New("backend down")
	}
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: e.vec},
	}, nil
}

func TestExecuteEmptyIndexReturnsNoErrorNoResults(t *testing.T) {
	s := NewSearcher(&fixedEmbedder{fail: true}, index.New(), logger.NewNopLogger())

	// Even a broken embedding backend must not surface: the empty index
	// short-circuits before any backend call.
	results, err := s.Execute(context.Background(), "anything", DefaultConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("got %d results, want 0", len(results))
	}
}

func TestExecuteFiltersByThreshold(t *testing.T) {
	ix := index.New()
	ix.Replace("a.txt", "h", []*entity.Chunk{
		{Id: uuid.New(), DocumentPath: "a.txt", Offset: 0, Text: "match", Embedding: []float32{1, 0}},
		{Id: uuid.New(), DocumentPath: "a.txt", Offset: 10, Text: "miss", Embedding: []float32{0, 1}},
	})

	s := NewSearcher(&fixedEmbedder{vec: []float32{1, 0}}, ix, logger.NewNopLogger())
	results, err := s.Execute(context.Background(), "bjt", Config{Threshold: 0.5, TopK: 5})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Chunk.Text != "match" {
		t.Fatalf("results = %+v, want only the matching chunk", results)
	}
}

func TestExecutePropagatesEmbeddingFailure(t *testing.T) {
	ix := index.New()
	ix.Replace("a.txt", "h", []*entity.Chunk{
		{Id: uuid.New(), DocumentPath: "a.txt", Embedding: []float32{1, 0}},
	})

	s := NewSearcher(&fixedEmbedder{fail: true}, ix, logger.NewNopLogger())
	if _, err := s.Execute(context.Background(), "bjt", DefaultConfig()); err == nil {
		t.Fatal("expected error from embedding backend")
	}
}

func TestExecuteHonorsCancelledContext(t *testing.T) {
	ix := index.New()
	ix.Replace("a.txt", "h", []*entity.Chunk{
		{Id: uuid.New(), DocumentPath: "a.txt", Embedding: []float32{1, 0}},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewSearcher(&fixedEmbedder{vec: []float32{1, 0}}, ix, logger.NewNopLogger())
	if _, err := s.Execute(ctx, "bjt", DefaultConfig()); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
