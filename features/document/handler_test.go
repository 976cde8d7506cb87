package document_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"minirag/backend/features/document"
	"minirag/backend/internal/rag"
)

func TestHandler_Upload(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		setup      func(*MockIngester)
		wantStatus int
		checkBody  func(*testing.T, map[string]interface{})
	}{
		{
			name: "Success",
			body: `{"text":"Cats are mammals.","doc_id":"t1"}`,
			setup: func(m *MockIngester) {
				m.On("Ingest", mock.Anything, "Cats are mammals.", "t1").Return(1, nil)
			},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "success", body["status"])
				assert.EqualValues(t, 1, body["chunks_stored"])
				assert.Contains(t, body, "processing_time")
			},
		},
		{
			name: "Default doc id",
			body: `{"text":"x"}`,
			setup: func(m *MockIngester) {
				m.On("Ingest", mock.Anything, "x", rag.DefaultDocumentID).Return(1, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name: "Empty text stores nothing",
			body: `{"text":""}`,
			setup: func(m *MockIngester) {
				m.On("Ingest", mock.Anything, "", rag.DefaultDocumentID).Return(0, nil)
			},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				assert.EqualValues(t, 0, body["chunks_stored"])
			},
		},
		{
			name:       "Missing text",
			body:       `{"doc_id":"t1"}`,
			setup:      func(m *MockIngester) {},
			wantStatus: http.StatusBadRequest,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "VALIDATION_ERROR", body["error"].(map[string]interface{})["code"])
			},
		},
		{
			name:       "Malformed JSON",
			body:       `{`,
			setup:      func(m *MockIngester) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "Service error",
			body: `{"text":"x","doc_id":"d"}`,
			setup: func(m *MockIngester) {
				m.On("Ingest", mock.Anything, "x", "d").Return(0, rag.NewServiceError("weaviate", "upsert", errors.New("unavailable")))
			},
			wantStatus: http.StatusInternalServerError,
			checkBody: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "weaviate upsert: unavailable", body["detail"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ing := new(MockIngester)
			tt.setup(ing)
			h := document.NewHandler(document.NewService(ing, nil, nil, nil))

			req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.Upload(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.checkBody != nil {
				tt.checkBody(t, body)
			}
			ing.AssertExpectations(t)
		})
	}
}

func TestHandler_List(t *testing.T) {
	repo := new(MockRepo)
	repo.On("List", mock.Anything).Return([]document.Document{
		{ID: "pets", ChunksStored: 2, IngestedAt: time.Now()},
	}, nil)
	h := document.NewHandler(document.NewService(new(MockIngester), repo, nil, nil))

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/documents", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []document.Document `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "pets", body.Data[0].ID)
}

func TestHandler_List_Error(t *testing.T) {
	repo := new(MockRepo)
	repo.On("List", mock.Anything).Return(nil, errors.New("db error"))
	h := document.NewHandler(document.NewService(new(MockIngester), repo, nil, nil))

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/documents", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
