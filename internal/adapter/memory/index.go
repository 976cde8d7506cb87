// Package memory is an in-process vector index used by the CLI and tests.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"minirag/backend/internal/rag"
)

type Index struct {
	mu      sync.RWMutex
	records map[string]rag.Record
}

func NewIndex() *Index {
	return &Index{records: make(map[string]rag.Record)}
}

func (ix *Index) Upsert(ctx context.Context, records []rag.Record) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for _, r := range records {
		vec := make([]float32, len(r.Vector))
		copy(vec, r.Vector)
		r.Vector = vec
		ix.records[r.ID] = r
	}
	return nil
}

// Search scores every record of the document by cosine similarity. Equal
// scores are ordered by chunk index.
func (ix *Index) Search(ctx context.Context, vector []float32, topK int, documentID string) ([]rag.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ix.mu.RLock()
	candidates := []rag.Candidate{}
	for _, r := range ix.records {
		if r.Chunk.DocumentID != documentID {
			continue
		}
		candidates = append(candidates, rag.Candidate{
			Chunk: r.Chunk,
			Score: float32(cosine(vector, r.Vector)),
		})
	}
	ix.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Chunk.Index < candidates[j].Chunk.Index
	})

	if topK >= 0 && len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

// Len reports the number of stored records.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.records)
}

// CountChunks lets the memory index back the stats endpoint.
func (ix *Index) CountChunks(ctx context.Context) (int, error) {
	return ix.Len(), nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
