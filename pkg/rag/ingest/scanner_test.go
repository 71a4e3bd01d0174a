package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"ai-research-desk/internal/dto"
	"ai-research-desk/internal/pkg/logger"
	"ai-research-desk/pkg/embedding"
	"ai-research-desk/pkg/rag/index"
)

type capturePublisher struct {
	reports []dto.IngestionReport
}

func (p *capturePublisher) PublishIngestion(r dto.IngestionReport) error {
	p.reports = append(p.reports, r)
	return nil
}

func (p *capturePublisher) byStatus(status string) []dto.IngestionReport {
	var out []dto.IngestionReport
	for _, r := range p.reports {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out
}

type stubEmbedder struct {
	calls int
	fail  bool
}

func (e *stubEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	e.calls++
	if e.fail {
		return nil, errors.New("embedding backend down")
	}
	// Deterministic vector derived from content length, good enough to index.
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{
			Values: embedding.NormalizeVector([]float32{float32(len(text)), 1}),
		},
	}, nil
}

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestScanner(pub *capturePublisher, emb *stubEmbedder, ix *index.Index) *Scanner {
	return NewScanner(NewFileSource(), emb, ix, pub, logger.NewNopLogger(), 100, 10)
}

func TestScanDocumentIndexes(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "bjt.txt", "A BJT is a bipolar junction transistor used for amplification.")

	pub := &capturePublisher{}
	ix := index.New()
	sc := newTestScanner(pub, &stubEmbedder{}, ix)

	if err := sc.ScanDocument(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	if ix.DocumentCount() != 1 || ix.ChunkCount() == 0 {
		t.Fatalf("index not populated: %d docs, %d chunks", ix.DocumentCount(), ix.ChunkCount())
	}
	if len(pub.byStatus(dto.IngestionStatusScanning)) != 1 {
		t.Error("missing SCANNING report")
	}
	if len(pub.byStatus(dto.IngestionStatusIndexed)) != 1 {
		t.Error("missing INDEXED report")
	}
}

func TestRescanUnchangedShortCircuits(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.txt", "first document body")
	writeDoc(t, dir, "b.txt", "second document body")

	pub := &capturePublisher{}
	emb := &stubEmbedder{}
	ix := index.New()
	sc := newTestScanner(pub, emb, ix)

	if err := sc.ScanAll(context.Background(), dir); err != nil {
		t.Fatal(err)
	}
	if got := len(pub.byStatus(dto.IngestionStatusIndexed)); got != 2 {
		t.Fatalf("first scan indexed %d documents, want 2", got)
	}

	pub.reports = nil
	if err := sc.ScanAll(context.Background(), dir); err != nil {
		t.Fatal(err)
	}

	if got := len(pub.byStatus(dto.IngestionStatusIndexed)); got != 0 {
		t.Errorf("rescan of unchanged set produced %d INDEXED reports, want 0", got)
	}
	if got := len(pub.byStatus(dto.IngestionStatusUnchanged)); got != 2 {
		t.Errorf("rescan produced %d UNCHANGED reports, want 2", got)
	}
}

func TestRescanAfterOneByteChange(t *testing.T) {
	dir := t.TempDir()
	pathA := writeDoc(t, dir, "a.txt", "first document body")
	writeDoc(t, dir, "b.txt", "second document body")

	pub := &capturePublisher{}
	ix := index.New()
	sc := newTestScanner(pub, &stubEmbedder{}, ix)

	if err := sc.ScanAll(context.Background(), dir); err != nil {
		t.Fatal(err)
	}

	// One-byte change to one document re-indexes only that document.
	writeDoc(t, dir, "a.txt", "First document body")
	pub.reports = nil
	if err := sc.ScanAll(context.Background(), dir); err != nil {
		t.Fatal(err)
	}

	indexed := pub.byStatus(dto.IngestionStatusIndexed)
	if len(indexed) != 1 || indexed[0].Path != pathA {
		t.Fatalf("indexed = %+v, want exactly one report for %s", indexed, pathA)
	}
}

func TestScanFailureIsReportedAndScanContinues(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "bad.bin.txt", "fine content")
	writeDoc(t, dir, "good.txt", "fine content too")

	pub := &capturePublisher{}
	emb := &stubEmbedder{}
	ix := index.New()
	sc := NewScanner(NewFileSource(), emb, ix, pub, logger.NewNopLogger(), 100, 10)

	// Make the first document fail by flipping the embedder mid-scan.
	emb.fail = true
	_ = sc.ScanDocument(context.Background(), filepath.Join(dir, "bad.bin.txt"))
	emb.fail = false
	if err := sc.ScanDocument(context.Background(), filepath.Join(dir, "good.txt")); err != nil {
		t.Fatal(err)
	}

	if len(pub.byStatus(dto.IngestionStatusFailed)) != 1 {
		t.Error("missing FAILED report for broken document")
	}
	if len(pub.byStatus(dto.IngestionStatusIndexed)) != 1 {
		t.Error("healthy document was not indexed after a failure")
	}
}

func TestUnsupportedExtensionFails(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.png")
	if err := os.WriteFile(path, []byte{0x89, 0x50}, 0o644); err != nil {
		t.Fatal(err)
	}

	pub := &capturePublisher{}
	sc := newTestScanner(pub, &stubEmbedder{}, index.New())

	if err := sc.ScanDocument(context.Background(), path); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if len(pub.byStatus(dto.IngestionStatusFailed)) != 1 {
		t.Error("missing FAILED report")
	}
}

func TestEmbedCacheAvoidsRecomputation(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "a.txt", "identical chunk content")

	pub := &capturePublisher{}
	emb := &stubEmbedder{}
	ix := index.New()
	sc := newTestScanner(pub, emb, ix)

	if err := sc.ScanDocument(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	callsAfterFirst := emb.calls

	// Force a re-index with identical chunk text by clearing the index hash.
	ix.Remove(path)
	if err := sc.ScanDocument(context.Background(), path); err != nil {
		t.Fatal(err)
	}

	if emb.calls != callsAfterFirst {
		t.Errorf("embedder called %d more times despite cached chunks", emb.calls-callsAfterFirst)
	}
}
