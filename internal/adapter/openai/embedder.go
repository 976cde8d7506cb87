package openai

import (
	"context"
	"errors"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"minirag/backend/internal/rag"
)

type Embedder struct {
	client     *openai.Client
	model      string
	modePrefix bool
}

type EmbedderOption func(*Embedder)

// WithModePrefix prepends "search_document: " or "search_query: " to the
// input, for models that expect the task in-band (nomic-embed-text).
func WithModePrefix() EmbedderOption {
	return func(e *Embedder) {
		e.modePrefix = true
	}
}

func NewEmbedder(client *openai.Client, model string, opts ...EmbedderOption) *Embedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	e := &Embedder{client: client, model: model}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Embedder) Embed(ctx context.Context, text string, mode rag.EmbedMode) ([]float32, error) {
	input := text
	if e.modePrefix {
		input = string(mode) + ": " + text
	}

	slog.DebugContext(ctx, "embedding content", "model", e.model, "mode", mode, "length", len(input))

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{input},
	})
	if err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, rag.NewServiceError("openai", "embed", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, rag.NewServiceError("openai", "embed", errors.New("embedding response empty"))
	}

	embedding := resp.Data[0].Embedding
	result := make([]float32, len(embedding))
	copy(result, embedding)
	return result, nil
}
