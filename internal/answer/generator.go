package answer

import (
	"context"
	"log/slog"
	"strings"

	"minirag/backend/internal/rag"
)

// RefusalMessage is what the model is told to say when the context does not
// hold the answer.
const RefusalMessage = "I don't have information about that in the provided text."

const instructions = `Answer the question using only the provided context. Be conversational and use simple analogies when helpful. Always include citations [1], [2] in your response.

If the context doesn't contain the answer, say "` + RefusalMessage + `"`

type Generator struct {
	completion rag.Completion
}

func NewGenerator(c rag.Completion) *Generator {
	return &Generator{completion: c}
}

// Prompt renders the grounding prompt for a query and its context block.
func Prompt(query, contextBlock string) string {
	var sb strings.Builder
	sb.WriteString(instructions)
	sb.WriteString("\n\nContext:\n")
	sb.WriteString(contextBlock)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(query)
	sb.WriteString("\n\nAnswer:")
	return sb.String()
}

// Generate makes exactly one completion request.
func (g *Generator) Generate(ctx context.Context, query, contextBlock string) (string, error) {
	answer, err := g.completion.Complete(ctx, Prompt(query, contextBlock))
	if err != nil {
		return "", err
	}
	slog.DebugContext(ctx, "answer generated", "length", len(answer))
	return answer, nil
}
