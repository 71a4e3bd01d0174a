package index

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"ai-research-desk/internal/entity"
)

func chunk(path string, offset int, vec []float32) *entity.Chunk {
	return &entity.Chunk{
		Id:           uuid.New(),
		DocumentId:   uuid.New(),
		DocumentPath: path,
		Offset:       offset,
		Text:         fmt.Sprintf("%s@%d", path, offset),
		Embedding:    vec,
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	ix := New()
	results := ix.Search([]float32{1, 0}, 5)
	if len(results) != 0 {
		t.Fatalf("empty index returned %d results, want 0", len(results))
	}
}

func TestSearchRanking(t *testing.T) {
	ix := New()
	ix.Replace("a.txt", "h1", []*entity.Chunk{
		chunk("a.txt", 0, []float32{1, 0}),
		chunk("a.txt", 100, []float32{0, 1}),
	})
	ix.Replace("b.txt", "h2", []*entity.Chunk{
		chunk("b.txt", 0, []float32{0.7071, 0.7071}),
	})

	results := ix.Search([]float32{1, 0}, 2)
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Chunk.DocumentPath != "a.txt" || results[0].Chunk.Offset != 0 {
		t.Errorf("best match = %s@%d, want a.txt@0", results[0].Chunk.DocumentPath, results[0].Chunk.Offset)
	}
	if results[1].Chunk.DocumentPath != "b.txt" {
		t.Errorf("second match = %s, want b.txt", results[1].Chunk.DocumentPath)
	}
}

func TestSearchTieBreakByPathThenOffset(t *testing.T) {
	ix := New()
	// Identical vectors everywhere: ordering must fall back to path, offset.
	vec := []float32{1, 0}
	ix.Replace("b.txt", "h", []*entity.Chunk{chunk("b.txt", 0, vec)})
	ix.Replace("a.txt", "h", []*entity.Chunk{
		chunk("a.txt", 200, vec),
		chunk("a.txt", 10, vec),
	})

	results := ix.Search(vec, 10)
	want := []struct {
		path   string
		offset int
	}{
		{"a.txt", 10},
		{"a.txt", 200},
		{"b.txt", 0},
	}
	for i, w := range want {
		if results[i].Chunk.DocumentPath != w.path || results[i].Chunk.Offset != w.offset {
			t.Errorf("result %d = %s@%d, want %s@%d",
				i, results[i].Chunk.DocumentPath, results[i].Chunk.Offset, w.path, w.offset)
		}
	}
}

func TestSearchTruncatesToK(t *testing.T) {
	ix := New()
	var chunks []*entity.Chunk
	for i := 0; i < 20; i++ {
		chunks = append(chunks, chunk("a.txt", i*10, []float32{1, 0}))
	}
	ix.Replace("a.txt", "h", chunks)

	if got := len(ix.Search([]float32{1, 0}, 3)); got != 3 {
		t.Errorf("got %d results, want 3", got)
	}
	if got := len(ix.Search([]float32{1, 0}, 0)); got != 0 {
		t.Errorf("k=0 returned %d results, want 0", got)
	}
}

func TestReplaceSwapsWholeDocument(t *testing.T) {
	ix := New()
	ix.Replace("a.txt", "h1", []*entity.Chunk{chunk("a.txt", 0, []float32{1, 0})})
	ix.Replace("a.txt", "h2", []*entity.Chunk{
		chunk("a.txt", 0, []float32{0, 1}),
		chunk("a.txt", 50, []float32{0, 1}),
	})

	if hash, _ := ix.Hash("a.txt"); hash != "h2" {
		t.Errorf("hash = %s, want h2", hash)
	}
	if ix.ChunkCount() != 2 {
		t.Errorf("chunk count = %d, want 2", ix.ChunkCount())
	}
}

func TestConcurrentReadDuringReplace(t *testing.T) {
	ix := New()
	vec := []float32{1, 0}
	ix.Replace("a.txt", "h0", []*entity.Chunk{chunk("a.txt", 0, vec)})

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			ix.Replace("a.txt", fmt.Sprintf("h%d", i), []*entity.Chunk{
				chunk("a.txt", 0, vec),
				chunk("a.txt", 10, vec),
			})
		}
	}()

	for i := 0; i < 500; i++ {
		results := ix.Search(vec, 10)
		// Readers see the old set (1 chunk) or the new set (2 chunks),
		// never a partial write.
		if n := len(results); n != 1 && n != 2 {
			t.Fatalf("observed torn document state: %d chunks", n)
		}
	}
	close(stop)
	wg.Wait()
}
