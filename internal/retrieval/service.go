package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"minirag/backend/internal/rag"
)

// DefaultTopK is the number of nearest passages fetched before re-ranking.
const DefaultTopK = 10

// Reranker scores passages against a query. The result has one score per
// passage, in passage order.
type Reranker interface {
	Score(ctx context.Context, query string, passages []string) ([]float64, error)
}

type Service struct {
	embedder rag.Embedder
	index    rag.VectorIndex
	reranker Reranker
	topK     int
}

// NewService wires retrieval. A nil reranker falls back to keyword overlap.
func NewService(e rag.Embedder, idx rag.VectorIndex, r Reranker) *Service {
	if r == nil {
		r = KeywordReranker{}
	}
	return &Service{embedder: e, index: idx, reranker: r, topK: DefaultTopK}
}

// Retrieve embeds the query, fetches the nearest passages of the document
// and reorders them by rerank score. Equal scores keep similarity order.
func (s *Service) Retrieve(ctx context.Context, query, documentID string) ([]rag.Candidate, error) {
	vec, err := s.embedder.Embed(ctx, query, rag.ModeQuery)
	if err != nil {
		return nil, err
	}

	candidates, err := s.index.Search(ctx, vec, s.topK, documentID)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		slog.InfoContext(ctx, "no passages found", "document_id", documentID)
		return []rag.Candidate{}, nil
	}

	passages := make([]string, len(candidates))
	for i, c := range candidates {
		passages[i] = c.Chunk.Text
	}

	scores, err := s.reranker.Score(ctx, query, passages)
	if err != nil {
		return nil, err
	}
	if len(scores) != len(candidates) {
		return nil, rag.NewServiceError("reranker", "score", fmt.Errorf("got %d scores for %d passages", len(scores), len(candidates)))
	}

	for i := range candidates {
		candidates[i].RerankScore = scores[i]
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].RerankScore > candidates[j].RerankScore
	})

	slog.DebugContext(ctx, "retrieved passages", "count", len(candidates))
	return candidates, nil
}
