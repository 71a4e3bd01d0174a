package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"ai-research-desk/internal/dto"
	"ai-research-desk/internal/entity"
	"ai-research-desk/internal/pkg/logger"
	"ai-research-desk/pkg/embedding"
	"ai-research-desk/pkg/rag/index"
	"ai-research-desk/pkg/utils"
)

// IngestionPublisher delivers per-document progress to the orchestrator's
// inbound channel.
type IngestionPublisher interface {
	PublishIngestion(report dto.IngestionReport) error
}

// Scanner ingests documents: resolve, hash-compare, split, embed, swap the
// chunk set into the index. Failures are absorbed per document and reported
// as events; a bad file never aborts the rest of the scan.
type Scanner struct {
	source            Source
	embeddingProvider embedding.EmbeddingProvider
	index             *index.Index
	publisher         IngestionPublisher
	logger            logger.ILogger

	chunkSize    int
	chunkOverlap int

	// embedCache memoizes chunk embeddings by content hash, so re-indexing a
	// document whose text moved around does not re-embed unchanged chunks.
	embedCache *cache.Cache
}

func NewScanner(
	source Source,
	embeddingProvider embedding.EmbeddingProvider,
	ix *index.Index,
	publisher IngestionPublisher,
	log logger.ILogger,
	chunkSize, chunkOverlap int,
) *Scanner {
	return &Scanner{
		source:            source,
		embeddingProvider: embeddingProvider,
		index:             ix,
		publisher:         publisher,
		logger:            log,
		chunkSize:         chunkSize,
		chunkOverlap:      chunkOverlap,
		embedCache:        cache.New(1*time.Hour, 10*time.Minute),
	}
}

// ScanAll ingests every supported document under dir. Returns an error only
// when the directory itself cannot be listed or the context ends.
func (s *Scanner) ScanAll(ctx context.Context, dir string) error {
	paths, err := s.source.List(ctx, dir)
	if err != nil {
		return err
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		// Per-document failures are already reported as events.
		_ = s.ScanDocument(ctx, path)
	}
	return nil
}

// ScanDocument ingests one document. Rescanning is idempotent: an unchanged
// content hash short-circuits with an UNCHANGED report and no re-index.
func (s *Scanner) ScanDocument(ctx context.Context, path string) error {
	doc, err := s.source.Resolve(ctx, path)
	if err != nil {
		s.report(dto.IngestionReport{Path: path, Status: dto.IngestionStatusFailed, Reason: err.Error()})
		return err
	}

	if existing, ok := s.index.Hash(path); ok && existing == doc.Hash {
		s.report(dto.IngestionReport{Path: path, Hash: doc.Hash, Status: dto.IngestionStatusUnchanged})
		return nil
	}

	s.report(dto.IngestionReport{Path: path, Hash: doc.Hash, Status: dto.IngestionStatusScanning})

	chunks, err := s.buildChunks(ctx, doc)
	if err != nil {
		s.report(dto.IngestionReport{Path: path, Hash: doc.Hash, Status: dto.IngestionStatusFailed, Reason: err.Error()})
		return err
	}

	s.index.Replace(path, doc.Hash, chunks)
	s.report(dto.IngestionReport{
		Path:       path,
		Hash:       doc.Hash,
		Status:     dto.IngestionStatusIndexed,
		ChunkCount: len(chunks),
	})
	return nil
}

func (s *Scanner) buildChunks(ctx context.Context, doc *ExtractedDocument) ([]*entity.Chunk, error) {
	spans := utils.SplitText(doc.Text, s.chunkSize, s.chunkOverlap)
	documentId := uuid.New()

	chunks := make([]*entity.Chunk, 0, len(spans))
	for i, span := range spans {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		vec, err := s.embedChunk(ctx, span.Text)
		if err != nil {
			return nil, fmt.Errorf("embed chunk %d: %w", i, err)
		}

		chunks = append(chunks, &entity.Chunk{
			Id:           uuid.New(),
			DocumentId:   documentId,
			DocumentPath: doc.Path,
			Offset:       span.Offset,
			Text:         span.Text,
			Embedding:    vec,
		})
	}
	return chunks, nil
}

func (s *Scanner) embedChunk(ctx context.Context, text string) ([]float32, error) {
	sum := sha256.Sum256([]byte(text))
	key := hex.EncodeToString(sum[:])

	if cached, found := s.embedCache.Get(key); found {
		return cached.([]float32), nil
	}

	res, err := s.embeddingProvider.Generate(ctx, text, embedding.TaskRetrievalDocument)
	if err != nil {
		return nil, err
	}

	s.embedCache.Set(key, res.Embedding.Values, cache.DefaultExpiration)
	return res.Embedding.Values, nil
}

func (s *Scanner) report(r dto.IngestionReport) {
	if err := s.publisher.PublishIngestion(r); err != nil {
		s.logger.Warn("Scanner", "Failed to publish ingestion report", map[string]interface{}{
			"path":  r.Path,
			"error": err.Error(),
		})
	}
}
