package document

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"minirag/backend/internal/config"
	"minirag/backend/internal/middleware"
	"minirag/backend/internal/rag"
)

// Document is a ledger row describing the last successful ingest of a
// document ID.
type Document struct {
	ID           string    `json:"doc_id"`
	ChunksStored int       `json:"chunks_stored"`
	IngestedAt   time.Time `json:"ingested_at"`
}

type Repository interface {
	Upsert(ctx context.Context, doc *Document) error
	List(ctx context.Context) ([]Document, error)
	Count(ctx context.Context) (int, error)
}

type Ingester interface {
	Ingest(ctx context.Context, text, documentID string) (int, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type IngestObserver interface {
	ObserveIngest(chunks int, err error)
}

// IngestedEvent is published on config.TopicDocumentIngested.
type IngestedEvent struct {
	DocumentID    string `json:"doc_id"`
	ChunksStored  int    `json:"chunks_stored"`
	CorrelationID string `json:"correlation_id"`
}

type Service struct {
	ingester Ingester
	repo     Repository
	pub      EventPublisher
	observer IngestObserver
}

// NewService wires ingestion. repo, pub and observer may be nil.
func NewService(ingester Ingester, repo Repository, pub EventPublisher, observer IngestObserver) *Service {
	return &Service{ingester: ingester, repo: repo, pub: pub, observer: observer}
}

// Ingest stores the text under documentID and records the result. Ledger and
// event failures are logged; the passages are already searchable by then.
func (s *Service) Ingest(ctx context.Context, text, documentID string) (int, error) {
	if documentID == "" {
		documentID = rag.DefaultDocumentID
	}
	ctx = middleware.WithDocumentID(ctx, documentID)

	n, err := s.ingester.Ingest(ctx, text, documentID)
	if s.observer != nil {
		s.observer.ObserveIngest(n, err)
	}
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	if s.repo != nil {
		doc := &Document{ID: documentID, ChunksStored: n, IngestedAt: time.Now().UTC()}
		if err := s.repo.Upsert(ctx, doc); err != nil {
			slog.ErrorContext(ctx, "failed to record document", "error", err)
		}
	}

	if s.pub != nil {
		payload, _ := json.Marshal(IngestedEvent{
			DocumentID:    documentID,
			ChunksStored:  n,
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
		if err := s.pub.Publish(config.TopicDocumentIngested, payload); err != nil {
			slog.ErrorContext(ctx, "failed to publish document.ingested event", "error", err)
		} else {
			slog.InfoContext(ctx, "published document.ingested event", "chunks", n)
		}
	}

	return n, nil
}

func (s *Service) List(ctx context.Context) ([]Document, error) {
	if s.repo == nil {
		return []Document{}, nil
	}
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}
