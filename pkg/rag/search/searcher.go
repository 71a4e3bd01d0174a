package search

import (
	"context"
	"fmt"

	"ai-research-desk/internal/pkg/logger"
	"ai-research-desk/pkg/embedding"
	"ai-research-desk/pkg/rag/index"
)

// Searcher handles query embedding and similarity search over the chunk index.
type Searcher struct {
	embeddingProvider embedding.EmbeddingProvider
	index             *index.Index
	logger            logger.ILogger
}

func NewSearcher(embeddingProvider embedding.EmbeddingProvider, ix *index.Index, log logger.ILogger) *Searcher {
	return &Searcher{
		embeddingProvider: embeddingProvider,
		index:             ix,
		logger:            log,
	}
}

// IndexedChunks reports how many chunks are currently searchable.
func (s *Searcher) IndexedChunks() int {
	return s.index.ChunkCount()
}

// Config encapsulates search parameters
type Config struct {
	Threshold float64
	TopK      int
}

// DefaultConfig returns default search configuration
func DefaultConfig() Config {
	return Config{
		Threshold: 0.35,
		TopK:      5,
	}
}

// Execute embeds the query and returns up to TopK chunks above the score
// threshold, best first. An empty or unbuilt index returns an empty result,
// never an error.
func (s *Searcher) Execute(ctx context.Context, query string, config Config) ([]index.Result, error) {
	if s.index.ChunkCount() == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embeddingRes, err := s.embeddingProvider.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := s.index.Search(embeddingRes.Embedding.Values, config.TopK)

	filtered := results[:0]
	for _, res := range results {
		if res.Score >= config.Threshold {
			filtered = append(filtered, res)
		}
	}

	s.logger.Debug("Searcher", "Similarity search finished", map[string]interface{}{
		"raw":      len(results),
		"filtered": len(filtered),
	})

	return filtered, nil
}
