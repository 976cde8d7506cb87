package query

import (
	"context"
	"net/http"
	"time"

	"minirag/backend/internal/answer"
	"minirag/backend/internal/api"
	"minirag/backend/internal/metrics"
	"minirag/backend/internal/rag"
)

type Asker interface {
	Ask(ctx context.Context, query, documentID string) (*rag.Answer, error)
}

type QueryObserver interface {
	ObserveQuery(outcome string)
}

type Handler struct {
	asker    Asker
	observer QueryObserver
}

// NewHandler builds the query endpoint. observer may be nil.
func NewHandler(asker Asker, observer QueryObserver) *Handler {
	return &Handler{asker: asker, observer: observer}
}

type Request struct {
	Query string `json:"query" validate:"required"`
	DocID string `json:"doc_id" validate:"omitempty,max=256"`
}

// Response mirrors rag.Answer plus timing and a word-count cost estimate.
type Response struct {
	Answer         string         `json:"answer"`
	Citations      []rag.Citation `json:"citations"`
	ProcessingTime float64        `json:"processing_time"`
	TokensUsed     int            `json:"tokens_used"`
	EstimatedCost  string         `json:"estimated_cost"`
}

func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req Request
	if err := api.Decode(w, r, &req); err != nil {
		api.WriteFailure(ctx, w, err)
		return
	}

	result, err := h.asker.Ask(ctx, req.Query, req.DocID)
	if err != nil {
		h.observe(metrics.OutcomeError)
		api.WriteFailure(ctx, w, err)
		return
	}

	if len(result.Citations) == 0 {
		h.observe(metrics.OutcomeNoAnswer)
	} else {
		h.observe(metrics.OutcomeAnswered)
	}

	usage := answer.EstimateUsage(req.Query, result)
	api.WriteJSON(ctx, w, http.StatusOK, Response{
		Answer:         result.Text,
		Citations:      result.Citations,
		ProcessingTime: api.Seconds(time.Since(start)),
		TokensUsed:     usage.TokensUsed,
		EstimatedCost:  usage.EstimatedCost,
	})
}

func (h *Handler) observe(outcome string) {
	if h.observer != nil {
		h.observer.ObserveQuery(outcome)
	}
}
