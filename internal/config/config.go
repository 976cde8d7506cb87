package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalid         = errors.New("invalid configuration")
)

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"minirag"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"minirag"`

	// Vector index
	VectorBackend  string `envconfig:"VECTOR_BACKEND" default:"weaviate"`
	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`
	WeaviateAPIKey string `envconfig:"WEAVIATE_API_KEY"`

	// Embedding
	EmbedProvider      string `envconfig:"EMBED_PROVIDER" default:"gemini"`
	EmbedModel         string `envconfig:"EMBED_MODEL"`
	EmbedBaseURL       string `envconfig:"EMBED_BASE_URL"`
	EmbeddingDimension int    `envconfig:"EMBEDDING_DIMENSION"`
	EmbedModePrefix    bool   `envconfig:"EMBED_MODE_PREFIX" default:"false"`

	// Completion
	LLMProvider string `envconfig:"LLM_PROVIDER" default:"gemini"`
	LLMModel    string `envconfig:"LLM_MODEL"`
	LLMBaseURL  string `envconfig:"LLM_BASE_URL"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	RerankProvider string `envconfig:"RERANK_PROVIDER" default:"keyword"`
	RerankAPIKey   string `envconfig:"RERANK_API_KEY"`

	// Pipeline
	ChunkSize            int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap         int `envconfig:"CHUNK_OVERLAP" default:"150"`
	IngestionConcurrency int `envconfig:"INGESTION_CONCURRENCY" default:"4"`
	UpsertBatchSize      int `envconfig:"UPSERT_BATCH_SIZE" default:"100"`

	// Events; empty disables publishing
	NSQDHost string `envconfig:"NSQD_HOST"`

	// Server
	ServerPort    int    `envconfig:"SERVER_PORT" default:"8081"`
	QueryLogPath  string `envconfig:"QUERY_LOG_PATH" default:"data/logs/query.log"`
	MigrationPath string `envconfig:"MIGRATION_PATH" default:"file://migrations"`
	LogLevel      string `envconfig:"LOG_LEVEL" default:"info"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Env vars set in the shell win over .env files
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../.env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.ResolveEmbedding()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}

	switch c.VectorBackend {
	case "weaviate":
		if c.WeaviateHost == "" {
			return fmt.Errorf("%w: WEAVIATE_HOST", ErrMissingRequired)
		}
	case "memory":
	default:
		return fmt.Errorf("%w: VECTOR_BACKEND %q", ErrInvalid, c.VectorBackend)
	}

	if !oneOf(c.EmbedProvider, "gemini", "openai") {
		return fmt.Errorf("%w: EMBED_PROVIDER %q", ErrInvalid, c.EmbedProvider)
	}
	if !oneOf(c.LLMProvider, "gemini", "openai") {
		return fmt.Errorf("%w: LLM_PROVIDER %q", ErrInvalid, c.LLMProvider)
	}
	if !oneOf(c.RerankProvider, "keyword", "cohere", "jina") {
		return fmt.Errorf("%w: RERANK_PROVIDER %q", ErrInvalid, c.RerankProvider)
	}

	if c.EmbeddingDimension < 0 {
		return fmt.Errorf("%w: EMBEDDING_DIMENSION must not be negative", ErrInvalid)
	}
	if want, ok := knownDimensions[c.EmbedModel]; ok && c.EmbeddingDimension > 0 && c.EmbeddingDimension != want {
		return fmt.Errorf("%w: EMBEDDING_DIMENSION %d does not match %s (%d)", ErrInvalid, c.EmbeddingDimension, c.EmbedModel, want)
	}

	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: CHUNK_SIZE must be positive", ErrInvalid)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrInvalid)
	}
	return nil
}

// Default embedding models per provider and the vector sizes of the models
// we know about.
var (
	defaultEmbedModels = map[string]string{
		"gemini": "text-embedding-004",
		"openai": "text-embedding-3-small",
	}
	knownDimensions = map[string]int{
		"text-embedding-004":     768,
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		"nomic-embed-text":       768,
	}
)

// ResolveEmbedding fills EmbedModel with the provider default and, when
// EMBEDDING_DIMENSION is unset, derives the dimension from the model. An
// unknown model leaves the dimension at zero, which disables the check.
func (c *Config) ResolveEmbedding() {
	if c.EmbedModel == "" {
		c.EmbedModel = defaultEmbedModels[c.EmbedProvider]
	}
	if c.EmbeddingDimension == 0 {
		c.EmbeddingDimension = knownDimensions[c.EmbedModel]
	}
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}
