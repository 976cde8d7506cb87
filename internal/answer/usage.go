package answer

import (
	"fmt"
	"strings"

	"minirag/backend/internal/rag"
)

// Per-word prices used for the cost estimate.
const (
	inputWordPrice  = 0.00001
	outputWordPrice = 0.00002
)

// Usage is a rough word-count based estimate, not billing data.
type Usage struct {
	TokensUsed    int    `json:"tokens_used"`
	EstimatedCost string `json:"estimated_cost"`
}

// EstimateUsage counts whitespace-separated words of the query and cited
// passages as input and of the answer as output.
func EstimateUsage(query string, a *rag.Answer) Usage {
	in := len(strings.Fields(query))
	out := 0
	if a != nil {
		for _, c := range a.Citations {
			in += len(strings.Fields(c.SourceText))
		}
		out = len(strings.Fields(a.Text))
	}

	cost := float64(in)*inputWordPrice + float64(out)*outputWordPrice
	return Usage{
		TokensUsed:    in + out,
		EstimatedCost: fmt.Sprintf("$%.6f", cost),
	}
}
