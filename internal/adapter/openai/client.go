// Package openai adapts OpenAI-compatible APIs (OpenAI, Groq, Ollama) to the
// embedding and completion contracts.
package openai

import (
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultEmbeddingModel = "text-embedding-3-small"
	DefaultChatModel      = "llama3-8b-8192"
	GroqBaseURL           = "https://api.groq.com/openai/v1"
)

var ErrMissingAPIKey = errors.New("openai api key not configured")

// NewClient builds a client for the given base URL. An empty base URL keeps
// the library default (api.openai.com).
func NewClient(apiKey, baseURL string) (*openai.Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg), nil
}
