// Package pipeline exposes ingestion and question answering over one
// embedder, vector index and completion model.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"minirag/backend/internal/answer"
	"minirag/backend/internal/middleware"
	"minirag/backend/internal/rag"
	"minirag/backend/internal/retrieval"
	"minirag/backend/internal/text"
)

const (
	DefaultConcurrency = 4
	DefaultBatchSize   = 100
)

type Pipeline struct {
	embedder  rag.Embedder
	index     rag.VectorIndex
	retriever *retrieval.Service
	generator *answer.Generator

	chunkOpts   []text.Option
	concurrency int
	batchSize   int
	dimension   int
	reranker    retrieval.Reranker
	queryLog    *retrieval.QueryLogger
}

type Option func(*Pipeline)

func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) {
		p.chunkOpts = []text.Option{text.WithChunkSize(size), text.WithOverlap(overlap)}
	}
}

// WithConcurrency bounds the number of in-flight embedding calls.
func WithConcurrency(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithDimension rejects vectors of any other length. Zero disables the check.
func WithDimension(n int) Option {
	return func(p *Pipeline) {
		p.dimension = n
	}
}

func WithReranker(r retrieval.Reranker) Option {
	return func(p *Pipeline) {
		p.reranker = r
	}
}

func WithQueryLogger(l *retrieval.QueryLogger) Option {
	return func(p *Pipeline) {
		p.queryLog = l
	}
}

func New(e rag.Embedder, idx rag.VectorIndex, c rag.Completion, opts ...Option) *Pipeline {
	p := &Pipeline{
		embedder:    e,
		index:       idx,
		generator:   answer.NewGenerator(c),
		concurrency: DefaultConcurrency,
		batchSize:   DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.dimension > 0 {
		p.embedder = dimensionGuard{Embedder: e, dimension: p.dimension}
	}
	p.retriever = retrieval.NewService(p.embedder, idx, p.reranker)
	return p
}

// dimensionGuard rejects vectors of the wrong length in both embed modes.
type dimensionGuard struct {
	rag.Embedder
	dimension int
}

func (g dimensionGuard) Embed(ctx context.Context, text string, mode rag.EmbedMode) ([]float32, error) {
	vec, err := g.Embedder.Embed(ctx, text, mode)
	if err != nil {
		return nil, err
	}
	if len(vec) != g.dimension {
		return nil, rag.NewServiceError("embedder", "embed", fmt.Errorf("%s: got %d dimensions, want %d", mode, len(vec), g.dimension))
	}
	return vec, nil
}

// Ingest chunks and embeds the text and stores every chunk under the
// document ID. It returns the number of chunks stored. Re-ingesting the same
// text under the same ID overwrites the earlier records.
func (p *Pipeline) Ingest(ctx context.Context, content, documentID string) (int, error) {
	documentID = normalizeDocumentID(documentID)
	ctx = middleware.WithDocumentID(ctx, documentID)

	pieces := text.Chunk(content, p.chunkOpts...)
	if len(pieces) == 0 {
		slog.InfoContext(ctx, "nothing to ingest")
		return 0, nil
	}

	start := time.Now()
	vectors, err := p.embedAll(ctx, pieces)
	if err != nil {
		return 0, err
	}

	records := make([]rag.Record, len(pieces))
	for i, piece := range pieces {
		c := rag.Chunk{DocumentID: documentID, Index: i, Text: piece, Title: documentID}
		records[i] = rag.NewRecord(c, vectors[i])
	}

	for lo := 0; lo < len(records); lo += p.batchSize {
		hi := min(lo+p.batchSize, len(records))
		if err := p.index.Upsert(ctx, records[lo:hi]); err != nil {
			slog.ErrorContext(ctx, "upsert failed", "batch_start", lo, "error", err)
			return 0, err
		}
	}

	slog.InfoContext(ctx, "document ingested", "chunks", len(records), "duration", time.Since(start))
	return len(records), nil
}

// embedAll embeds chunks concurrently. Vectors are written by chunk
// position; the first failure cancels the remaining calls.
func (p *Pipeline) embedAll(ctx context.Context, pieces []string) ([][]float32, error) {
	vectors := make([][]float32, len(pieces))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, piece := range pieces {
		g.Go(func() error {
			vec, err := p.embedder.Embed(gctx, piece, rag.ModeDocument)
			if err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "embedding failed", "error", err)
		return nil, err
	}
	return vectors, nil
}

// Ask answers a question from the passages of one document.
func (p *Pipeline) Ask(ctx context.Context, query, documentID string) (*rag.Answer, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query must not be empty", rag.ErrValidation)
	}
	documentID = normalizeDocumentID(documentID)
	ctx = middleware.WithDocumentID(ctx, documentID)

	start := time.Now()
	candidates, err := p.retriever.Retrieve(ctx, query, documentID)
	if err != nil {
		return nil, err
	}

	var result *rag.Answer
	if len(candidates) == 0 {
		result = &rag.Answer{Text: rag.NoAnswerMessage, Citations: []rag.Citation{}}
	} else {
		block, citations := answer.Assemble(candidates, answer.ContextLimit)
		reply, err := p.generator.Generate(ctx, query, block)
		if err != nil {
			return nil, err
		}
		result = &rag.Answer{Text: reply, Citations: citations}
	}

	if p.queryLog != nil {
		p.queryLog.Log(retrieval.QueryLogEntry{
			Query:         query,
			DocumentID:    documentID,
			NumResults:    len(candidates),
			NumCitations:  len(result.Citations),
			Sources:       retrieval.SourcesFor(candidates, len(result.Citations)),
			Answered:      len(candidates) > 0,
			Duration:      time.Since(start),
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
	}
	return result, nil
}

func normalizeDocumentID(id string) string {
	if strings.TrimSpace(id) == "" {
		return rag.DefaultDocumentID
	}
	return id
}
