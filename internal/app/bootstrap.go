package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/generative-ai-go/genai"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/auth"

	"minirag/backend/internal/adapter/gemini"
	"minirag/backend/internal/adapter/memory"
	oai "minirag/backend/internal/adapter/openai"
	"minirag/backend/internal/adapter/reranker"
	wstore "minirag/backend/internal/adapter/weaviate"
	"minirag/backend/internal/config"
	"minirag/backend/internal/rag"
	"minirag/backend/internal/retrieval"
)

// VectorStore is the index plus the count used by the stats endpoint.
type VectorStore interface {
	rag.VectorIndex
	CountChunks(ctx context.Context) (int, error)
}

type SchemaEnsurer interface {
	EnsureSchema(ctx context.Context) error
}

// Providers are the hosted capabilities behind the pipeline.
type Providers struct {
	Embedder   rag.Embedder
	Completion rag.Completion
	Reranker   retrieval.Reranker

	genai *genai.Client
}

func (p *Providers) Close() {
	if p != nil && p.genai != nil {
		if err := p.genai.Close(); err != nil {
			slog.Warn("failed to close gemini client", "error", err)
		}
	}
}

type Dependencies struct {
	DB          *sql.DB
	VectorStore VectorStore
	NSQProducer *nsq.Producer
	Providers   *Providers
}

func (d *Dependencies) Close() {
	if d.NSQProducer != nil {
		d.NSQProducer.Stop()
	}
	d.Providers.Close()
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			slog.Warn("failed to close db", "error", err)
		}
	}
}

// Bootstrap connects everything the HTTP server needs: Postgres (with
// migrations), the vector index, the optional NSQ producer and the providers.
func Bootstrap(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	if err := pingWithRetry(ctx, db, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		db.Close()
		return nil, fmt.Errorf("migration up error: %w", err)
	}

	store, err := OpenVectorStore(ctx, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}

	var producer *nsq.Producer
	if cfg.NSQDHost != "" {
		producer, err = nsq.NewProducer(cfg.NSQDHost, nsq.NewConfig())
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("nsq producer error: %w", err)
		}
	} else {
		slog.Info("NSQD_HOST not set, ingest events disabled")
	}

	providers, err := NewProviders(ctx, cfg)
	if err != nil {
		if producer != nil {
			producer.Stop()
		}
		db.Close()
		return nil, err
	}

	return &Dependencies{
		DB:          db,
		VectorStore: store,
		NSQProducer: producer,
		Providers:   providers,
	}, nil
}

func pingWithRetry(ctx context.Context, db *sql.DB, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < max(attempts, 1); i++ {
		if err = db.PingContext(ctx); err == nil {
			return nil
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1, "error", err)
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}

// OpenVectorStore returns the configured index. Weaviate gets its schema
// ensured before use.
func OpenVectorStore(ctx context.Context, cfg *config.Config) (VectorStore, error) {
	if cfg.VectorBackend == "memory" {
		slog.Warn("using in-memory vector index, passages are lost on exit")
		return memory.NewIndex(), nil
	}

	wCfg := weaviate.Config{Host: cfg.WeaviateHost, Scheme: cfg.WeaviateScheme}
	if cfg.WeaviateAPIKey != "" {
		wCfg.AuthConfig = auth.ApiKey{Value: cfg.WeaviateAPIKey}
	}
	client, err := weaviate.NewClient(wCfg)
	if err != nil {
		return nil, fmt.Errorf("weaviate client error: %w", err)
	}
	store := wstore.NewStore(client)

	retryDelay := time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second
	if err := EnsureSchemaWithRetry(ctx, store, cfg.BootstrapRetryAttempts, retryDelay); err != nil {
		return nil, fmt.Errorf("weaviate schema error: %w", err)
	}
	return store, nil
}

// NewProviders builds the embedder, completion model and reranker named by
// the configuration. Gemini shares one client between both roles.
func NewProviders(ctx context.Context, cfg *config.Config) (*Providers, error) {
	p := &Providers{}

	geminiClient := func() (*genai.Client, error) {
		if p.genai != nil {
			return p.genai, nil
		}
		c, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		p.genai = c
		return c, nil
	}

	switch cfg.EmbedProvider {
	case "openai":
		client, err := oai.NewClient(cfg.OpenAIAPIKey, cfg.EmbedBaseURL)
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
		var opts []oai.EmbedderOption
		if cfg.EmbedModePrefix {
			opts = append(opts, oai.WithModePrefix())
		}
		p.Embedder = oai.NewEmbedder(client, cfg.EmbedModel, opts...)
	default:
		client, err := geminiClient()
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
		p.Embedder = gemini.NewEmbedder(client, cfg.EmbedModel)
	}

	switch cfg.LLMProvider {
	case "openai":
		client, err := oai.NewClient(cfg.OpenAIAPIKey, cfg.LLMBaseURL)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("completion: %w", err)
		}
		p.Completion = oai.NewChat(client, cfg.LLMModel)
	default:
		client, err := geminiClient()
		if err != nil {
			return nil, fmt.Errorf("completion: %w", err)
		}
		p.Completion = gemini.NewGenerator(client, cfg.LLMModel)
	}

	switch cfg.RerankProvider {
	case "cohere", "jina":
		p.Reranker = reranker.NewClient(cfg.RerankProvider, cfg.RerankAPIKey)
	default:
		p.Reranker = retrieval.KeywordReranker{}
	}

	return p, nil
}

// EnsureSchemaWithRetry retries schema creation while Weaviate starts up.
// At least one attempt is always made.
func EnsureSchemaWithRetry(ctx context.Context, store SchemaEnsurer, attempts int, delay time.Duration) error {
	attempts = max(attempts, 1)
	var err error
	for i := 0; i < attempts; i++ {
		if err = store.EnsureSchema(ctx); err == nil {
			return nil
		}
		slog.WarnContext(ctx, "failed to ensure schema, retrying", "attempt", i+1, "error", err)
		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return err
}
