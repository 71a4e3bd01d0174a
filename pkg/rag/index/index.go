package index

import (
	"sort"
	"sync"

	"ai-research-desk/internal/entity"
)

// Result is one scored chunk from a similarity search.
type Result struct {
	Chunk *entity.Chunk
	Score float64
}

type documentChunks struct {
	hash   string
	chunks []*entity.Chunk
}

// Index is the in-memory chunk index. Writes replace a whole document's
// chunk set in one swap under the lock, so concurrent readers see either the
// pre-scan or post-scan state of a document, never a half-written one.
type Index struct {
	mu   sync.RWMutex
	docs map[string]*documentChunks // keyed by document path
}

func New() *Index {
	return &Index{docs: make(map[string]*documentChunks)}
}

// Hash returns the stored content hash for a path, if indexed.
func (ix *Index) Hash(path string) (string, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	doc, ok := ix.docs[path]
	if !ok {
		return "", false
	}
	return doc.hash, true
}

// Replace swaps the chunk set for one document atomically.
func (ix *Index) Replace(path, hash string, chunks []*entity.Chunk) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.docs[path] = &documentChunks{hash: hash, chunks: chunks}
}

// Remove drops a document from the index.
func (ix *Index) Remove(path string) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	delete(ix.docs, path)
}

// DocumentCount returns the number of indexed documents.
func (ix *Index) DocumentCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// ChunkCount returns the total number of indexed chunks.
func (ix *Index) ChunkCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	total := 0
	for _, doc := range ix.docs {
		total += len(doc.chunks)
	}
	return total
}

// Search returns up to k chunks ranked by similarity to the query vector,
// highest first. Ties are broken by document path, then chunk offset, so the
// ordering is deterministic. An empty index yields an empty result.
//
// Embeddings are stored normalized, so the dot product is the cosine
// similarity.
func (ix *Index) Search(queryVec []float32, k int) []Result {
	if k <= 0 || len(queryVec) == 0 {
		return nil
	}

	ix.mu.RLock()
	var results []Result
	for _, doc := range ix.docs {
		for _, chunk := range doc.chunks {
			results = append(results, Result{
				Chunk: chunk,
				Score: dot(queryVec, chunk.Embedding),
			})
		}
	}
	ix.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Chunk.DocumentPath != results[j].Chunk.DocumentPath {
			return results[i].Chunk.DocumentPath < results[j].Chunk.DocumentPath
		}
		return results[i].Chunk.Offset < results[j].Chunk.Offset
	})

	if len(results) > k {
		results = results[:k]
	}
	return results
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
