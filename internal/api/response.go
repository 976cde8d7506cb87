// Package api holds the JSON request and response helpers shared by the
// HTTP handlers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"minirag/backend/internal/middleware"
	"minirag/backend/internal/rag"
)

const (
	CodeValidation = "VALIDATION_ERROR"
	CodeService    = "SERVICE_ERROR"
	CodeInternal   = "INTERNAL_ERROR"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 10 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode reads a JSON body into v and validates its struct tags. Failures
// wrap rag.ErrValidation.
func Decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", rag.ErrValidation, err)
	}
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", rag.ErrValidation, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", rag.ErrValidation, err)
	}
	return nil
}

func WriteJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func WriteError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	WriteJSON(ctx, w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"detail":        message,
		"correlationId": middleware.GetCorrelationID(ctx),
	})
}

// WriteFailure maps err onto a status code: validation errors are the
// client's fault, everything else is a server failure carrying the
// underlying message.
func WriteFailure(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rag.ErrValidation):
		WriteError(ctx, w, CodeValidation, err.Error(), http.StatusBadRequest)
	case rag.IsServiceError(err):
		slog.ErrorContext(ctx, "external service failed", "error", err)
		WriteError(ctx, w, CodeService, err.Error(), http.StatusInternalServerError)
	default:
		slog.ErrorContext(ctx, "request failed", "error", err)
		WriteError(ctx, w, CodeInternal, err.Error(), http.StatusInternalServerError)
	}
}

// Seconds rounds an elapsed duration to two decimals.
func Seconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
