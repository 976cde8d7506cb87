package gemini

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	DefaultEmbeddingModel  = "text-embedding-004"
	DefaultGenerationModel = "gemini-1.5-flash"
)

var ErrMissingAPIKey = errors.New("gemini api key not configured")

// NewClient creates a genai client shared by the embedder and generator.
func NewClient(ctx context.Context, apiKey string, opts ...option.ClientOption) (*genai.Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	opts = append(opts, option.WithAPIKey(apiKey))
	return genai.NewClient(ctx, opts...)
}
