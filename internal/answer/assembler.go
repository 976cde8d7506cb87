// Package answer turns reranked passages into a cited context block and asks
// a completion model to answer from it.
package answer

import (
	"fmt"
	"strings"

	"minirag/backend/internal/rag"
)

// ContextLimit is the number of passages placed in the prompt.
const ContextLimit = 3

// Assemble numbers the first limit candidates from 1 and renders them as
// "[n] text\n\n". The numbering of the block and the citations always match.
func Assemble(candidates []rag.Candidate, limit int) (string, []rag.Citation) {
	n := min(max(limit, 0), len(candidates))

	var sb strings.Builder
	citations := make([]rag.Citation, 0, n)
	for i := 0; i < n; i++ {
		num := i + 1
		text := candidates[i].Chunk.Text
		fmt.Fprintf(&sb, "[%d] %s\n\n", num, text)
		citations = append(citations, rag.Citation{Number: num, SourceText: text})
	}
	return sb.String(), citations
}
