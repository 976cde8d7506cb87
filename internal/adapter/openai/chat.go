package openai

import (
	"context"
	"errors"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"minirag/backend/internal/rag"
)

// Chat implements rag.Completion with a single-message chat completion.
type Chat struct {
	client *openai.Client
	model  string
}

func NewChat(client *openai.Client, model string) *Chat {
	if model == "" {
		model = DefaultChatModel
	}
	return &Chat{client: client, model: model}
}

func (c *Chat) Complete(ctx context.Context, prompt string) (string, error) {
	slog.DebugContext(ctx, "requesting chat completion", "model", c.model, "prompt_length", len(prompt))

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		slog.ErrorContext(ctx, "chat completion failed", "error", err)
		return "", rag.NewServiceError("openai", "complete", err)
	}
	if len(resp.Choices) == 0 {
		return "", rag.NewServiceError("openai", "complete", errors.New("no choices returned"))
	}
	return resp.Choices[0].Message.Content, nil
}
