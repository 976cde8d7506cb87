package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minirag/backend/internal/middleware"
	"minirag/backend/internal/rag"
)

type sample struct {
	Text  *string `json:"text" validate:"required"`
	DocID string  `json:"doc_id" validate:"omitempty,max=5"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"text":"hi","doc_id":"a"}`, false},
		{"empty text allowed", `{"text":""}`, false},
		{"missing text", `{"doc_id":"a"}`, true},
		{"doc id too long", `{"text":"x","doc_id":"abcdefg"}`, true},
		{"malformed", `{"text":`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var v sample
			err := Decode(httptest.NewRecorder(), r, &v)
			if tt.wantErr {
				assert.ErrorIs(t, err, rag.ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWriteFailure(t *testing.T) {
	ctx := middleware.WithCorrelationID(context.Background(), "corr-9")

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", errors.Join(rag.ErrValidation, errors.New("query must not be empty")), http.StatusBadRequest, CodeValidation},
		{"service", rag.NewServiceError("gemini", "embed", errors.New("quota exceeded")), http.StatusInternalServerError, CodeService},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			WriteFailure(ctx, w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]interface{})
			assert.Equal(t, tt.wantCode, errObj["code"])
			assert.Equal(t, tt.err.Error(), errObj["message"])
			assert.Equal(t, tt.err.Error(), body["detail"])
			assert.Equal(t, "corr-9", body["correlationId"])
		})
	}
}

func TestSeconds(t *testing.T) {
	assert.Equal(t, 1.23, Seconds(1234*time.Millisecond))
	assert.Equal(t, 0.0, Seconds(4*time.Millisecond))
	assert.Equal(t, 0.01, Seconds(5*time.Millisecond))
}
