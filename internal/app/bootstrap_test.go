package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minirag/backend/internal/adapter/gemini"
	"minirag/backend/internal/adapter/memory"
	oai "minirag/backend/internal/adapter/openai"
	"minirag/backend/internal/adapter/reranker"
	"minirag/backend/internal/app"
	"minirag/backend/internal/config"
	"minirag/backend/internal/retrieval"
)

type stubSchema struct {
	callCount int
	failUntil int
}

func (s *stubSchema) EnsureSchema(ctx context.Context) error {
	s.callCount++
	if s.callCount <= s.failUntil {
		return errors.New("schema error")
	}
	return nil
}

func TestEnsureSchemaWithRetry_Success(t *testing.T) {
	s := &stubSchema{}
	err := app.EnsureSchemaWithRetry(context.Background(), s, 1, time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, 1, s.callCount)
}

func TestEnsureSchemaWithRetry_Retries(t *testing.T) {
	s := &stubSchema{failUntil: 2}
	err := app.EnsureSchemaWithRetry(context.Background(), s, 5, time.Millisecond)
	assert.NoError(t, err)
	assert.Equal(t, 3, s.callCount)
}

func TestEnsureSchemaWithRetry_Fail(t *testing.T) {
	s := &stubSchema{failUntil: 100}
	err := app.EnsureSchemaWithRetry(context.Background(), s, 3, time.Millisecond)
	assert.Error(t, err)
	assert.Equal(t, 3, s.callCount)
}

func TestEnsureSchemaWithRetry_NonPositiveAttempts(t *testing.T) {
	for _, attempts := range []int{0, -1} {
		s := &stubSchema{}
		err := app.EnsureSchemaWithRetry(context.Background(), s, attempts, time.Millisecond)
		assert.NoError(t, err)
		assert.Equal(t, 1, s.callCount, "attempts=%d", attempts)

		failing := &stubSchema{failUntil: 100}
		err = app.EnsureSchemaWithRetry(context.Background(), failing, attempts, time.Millisecond)
		assert.Error(t, err, "attempts=%d", attempts)
	}
}

func TestEnsureSchemaWithRetry_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := &stubSchema{failUntil: 100}
	err := app.EnsureSchemaWithRetry(ctx, s, 3, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, s.callCount)
}

func TestBootstrap_DatabaseUnavailable(t *testing.T) {
	cfg := &config.Config{
		DBHost:                 "127.0.0.1",
		DBPort:                 1,
		DBUser:                 "minirag",
		DBName:                 "minirag",
		BootstrapRetryAttempts: 1,
	}
	deps, err := app.Bootstrap(context.Background(), cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping db")
	assert.Nil(t, deps)
}

func TestOpenVectorStore_Memory(t *testing.T) {
	store, err := app.OpenVectorStore(context.Background(), &config.Config{VectorBackend: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &memory.Index{}, store)
}

func TestNewProviders(t *testing.T) {
	ctx := context.Background()

	t.Run("gemini shares one client", func(t *testing.T) {
		p, err := app.NewProviders(ctx, &config.Config{
			EmbedProvider:  "gemini",
			LLMProvider:    "gemini",
			RerankProvider: "keyword",
			GeminiAPIKey:   "test-key",
		})
		require.NoError(t, err)
		defer p.Close()

		assert.IsType(t, &gemini.Embedder{}, p.Embedder)
		assert.IsType(t, &gemini.Generator{}, p.Completion)
		assert.IsType(t, retrieval.KeywordReranker{}, p.Reranker)
	})

	t.Run("openai compatible with hosted reranker", func(t *testing.T) {
		p, err := app.NewProviders(ctx, &config.Config{
			EmbedProvider:   "openai",
			LLMProvider:     "openai",
			LLMBaseURL:      oai.GroqBaseURL,
			RerankProvider:  "cohere",
			OpenAIAPIKey:    "test-key",
			EmbedModePrefix: true,
		})
		require.NoError(t, err)
		defer p.Close()

		assert.IsType(t, &oai.Embedder{}, p.Embedder)
		assert.IsType(t, &oai.Chat{}, p.Completion)
		assert.IsType(t, &reranker.Client{}, p.Reranker)
	})

	t.Run("missing gemini key", func(t *testing.T) {
		_, err := app.NewProviders(ctx, &config.Config{EmbedProvider: "gemini", LLMProvider: "gemini"})
		assert.ErrorIs(t, err, gemini.ErrMissingAPIKey)
	})

	t.Run("missing openai key", func(t *testing.T) {
		_, err := app.NewProviders(ctx, &config.Config{
			EmbedProvider: "gemini",
			LLMProvider:   "openai",
			GeminiAPIKey:  "test-key",
		})
		assert.ErrorIs(t, err, oai.ErrMissingAPIKey)
	})
}
