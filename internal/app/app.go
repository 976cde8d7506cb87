package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"minirag/backend/features/document"
	"minirag/backend/features/query"
	"minirag/backend/features/stats"
	"minirag/backend/internal/config"
	"minirag/backend/internal/metrics"
	"minirag/backend/internal/middleware"
	"minirag/backend/internal/pipeline"
	"minirag/backend/internal/retrieval"
)

type App struct {
	Handler   http.Handler
	Pipeline  *pipeline.Pipeline
	Documents *document.Service
	Metrics   *metrics.Metrics

	port     int
	queryLog *retrieval.QueryLogger
}

// NewPipeline builds the RAG pipeline from configuration. A nil query logger
// disables query logging.
func NewPipeline(cfg *config.Config, store VectorStore, p *Providers, ql *retrieval.QueryLogger) *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithChunking(cfg.ChunkSize, cfg.ChunkOverlap),
		pipeline.WithConcurrency(cfg.IngestionConcurrency),
		pipeline.WithBatchSize(cfg.UpsertBatchSize),
		pipeline.WithDimension(cfg.EmbeddingDimension),
	}
	if p.Reranker != nil {
		opts = append(opts, pipeline.WithReranker(p.Reranker))
	}
	if ql != nil {
		opts = append(opts, pipeline.WithQueryLogger(ql))
	}
	return pipeline.New(p.Embedder, store, p.Completion, opts...)
}

func New(cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*App, error) {
	if deps == nil || deps.VectorStore == nil || deps.Providers == nil {
		return nil, fmt.Errorf("app: vector store and providers are required")
	}

	queryLogger, err := retrieval.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		logger.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = retrieval.NewQueryLogger(os.Stdout)
	}

	m := metrics.New()
	pipe := NewPipeline(cfg, deps.VectorStore, deps.Providers, queryLogger)

	// Leave interfaces nil rather than holding typed nils.
	var repo document.Repository
	var statsRepo stats.DocumentRepo
	if deps.DB != nil {
		pg := document.NewPostgresRepo(deps.DB)
		repo, statsRepo = pg, pg
	}
	var pub document.EventPublisher
	if deps.NSQProducer != nil {
		pub = deps.NSQProducer
	}

	docService := document.NewService(pipe, repo, pub, m)
	docHandler := document.NewHandler(docService)
	queryHandler := query.NewHandler(pipe, m)
	statsHandler := stats.NewHandler(statsRepo, deps.VectorStore)

	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Correlation-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()

	mux.Handle("POST /upload", middleware.CorrelationID(enableCORS(docHandler.Upload)))
	mux.Handle("GET /documents", middleware.CorrelationID(enableCORS(docHandler.List)))
	mux.Handle("POST /query", middleware.CorrelationID(enableCORS(queryHandler.Ask)))
	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))
	mux.Handle("OPTIONS /", enableCORS(func(w http.ResponseWriter, r *http.Request) {}))

	mux.Handle("GET /metrics", m.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &App{
		Handler:   m.Middleware(mux),
		Pipeline:  pipe,
		Documents: docService,
		Metrics:   m,
		port:      cfg.ServerPort,
		queryLog:  queryLogger,
	}, nil
}

// Run serves until ctx is canceled, then closes the query log.
func (a *App) Run(ctx context.Context) error {
	defer a.queryLog.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.port),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
