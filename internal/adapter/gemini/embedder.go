package gemini

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/generative-ai-go/genai"

	"minirag/backend/internal/rag"
)

type Embedder struct {
	client *genai.Client
	model  string
}

func NewEmbedder(client *genai.Client, model string) *Embedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Embedder{client: client, model: model}
}

// Embed issues one embedContent call. The mode selects the retrieval task
// type so document and query vectors land in the same space.
func (e *Embedder) Embed(ctx context.Context, text string, mode rag.EmbedMode) ([]float32, error) {
	slog.DebugContext(ctx, "embedding content", "model", e.model, "mode", mode, "length", len(text))

	em := e.client.EmbeddingModel(e.model)
	em.TaskType = taskType(mode)

	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, rag.NewServiceError("gemini", "embed", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, rag.NewServiceError("gemini", "embed", errors.New("empty embedding received"))
	}
	return res.Embedding.Values, nil
}

func taskType(mode rag.EmbedMode) genai.TaskType {
	switch mode {
	case rag.ModeQuery:
		return genai.TaskTypeRetrievalQuery
	case rag.ModeDocument:
		return genai.TaskTypeRetrievalDocument
	default:
		return genai.TaskTypeUnspecified
	}
}
