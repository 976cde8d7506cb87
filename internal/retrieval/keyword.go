package retrieval

import (
	"context"
	"strings"
)

// KeywordReranker scores a passage by the share of distinct query words it
// contains: |Q ∩ P| / max(|Q|, 1) over lowercased whitespace-split words.
// Punctuation stays attached to words.
type KeywordReranker struct{}

func (KeywordReranker) Score(_ context.Context, query string, passages []string) ([]float64, error) {
	q := wordSet(query)
	denom := float64(max(len(q), 1))

	scores := make([]float64, len(passages))
	for i, p := range passages {
		overlap := 0
		for w := range wordSet(p) {
			if _, ok := q[w]; ok {
				overlap++
			}
		}
		scores[i] = float64(overlap) / denom
	}
	return scores, nil
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
