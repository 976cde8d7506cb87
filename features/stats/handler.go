package stats

import (
	"context"
	"log/slog"
	"net/http"

	"minirag/backend/internal/api"
)

type DocumentRepo interface {
	Count(ctx context.Context) (int, error)
}

type ChunkCounter interface {
	CountChunks(ctx context.Context) (int, error)
}

type Handler struct {
	documents DocumentRepo
	chunks    ChunkCounter
}

// NewHandler builds the stats endpoint. Without a document ledger the
// document count is reported as zero.
func NewHandler(d DocumentRepo, c ChunkCounter) *Handler {
	return &Handler{documents: d, chunks: c}
}

type StatsResponse struct {
	Documents int `json:"documents"`
	Chunks    int `json:"chunks"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slog.InfoContext(ctx, "getting stats")

	var resp StatsResponse
	if h.documents != nil {
		n, err := h.documents.Count(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count documents", "error", err)
			api.WriteError(ctx, w, api.CodeInternal, "failed to count documents", http.StatusInternalServerError)
			return
		}
		resp.Documents = n
	}

	n, err := h.chunks.CountChunks(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count chunks", "error", err)
		api.WriteError(ctx, w, api.CodeInternal, "failed to count chunks", http.StatusInternalServerError)
		return
	}
	resp.Chunks = n

	api.WriteJSON(ctx, w, http.StatusOK, map[string]interface{}{"data": resp})
}
