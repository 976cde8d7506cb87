package document

import (
	"net/http"
	"time"

	"minirag/backend/internal/api"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// UploadRequest carries raw text. A present but empty text stores nothing.
type UploadRequest struct {
	Text  *string `json:"text" validate:"required"`
	DocID string  `json:"doc_id" validate:"omitempty,max=256"`
}

type UploadResponse struct {
	Status         string  `json:"status"`
	ChunksStored   int     `json:"chunks_stored"`
	ProcessingTime float64 `json:"processing_time"`
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req UploadRequest
	if err := api.Decode(w, r, &req); err != nil {
		api.WriteFailure(ctx, w, err)
		return
	}

	n, err := h.service.Ingest(ctx, *req.Text, req.DocID)
	if err != nil {
		api.WriteFailure(ctx, w, err)
		return
	}

	api.WriteJSON(ctx, w, http.StatusOK, UploadResponse{
		Status:         "success",
		ChunksStored:   n,
		ProcessingTime: api.Seconds(time.Since(start)),
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	docs, err := h.service.List(ctx)
	if err != nil {
		api.WriteError(ctx, w, api.CodeInternal, "failed to list documents", http.StatusInternalServerError)
		return
	}
	api.WriteJSON(ctx, w, http.StatusOK, map[string]interface{}{"data": docs})
}
