package app_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minirag/backend/internal/adapter/memory"
	"minirag/backend/internal/app"
	"minirag/backend/internal/config"
	"minirag/backend/internal/rag"
	"minirag/backend/internal/retrieval"
)

var vocabulary = []string{"cat", "dog", "mammal", "meow", "bark", "weather"}

type wordEmbedder struct{}

func (wordEmbedder) Embed(_ context.Context, text string, _ rag.EmbedMode) ([]float32, error) {
	lower := strings.ToLower(text)
	vec := make([]float32, len(vocabulary)+1)
	for i, w := range vocabulary {
		vec[i] = float32(strings.Count(lower, w))
	}
	vec[len(vocabulary)] = 0.01
	return vec, nil
}

type cannedCompletion struct {
	reply string
}

func (c cannedCompletion) Complete(context.Context, string) (string, error) {
	return c.reply, nil
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		ChunkSize:            1000,
		ChunkOverlap:         150,
		IngestionConcurrency: 2,
		UpsertBatchSize:      10,
		EmbeddingDimension:   len(vocabulary) + 1,
		ServerPort:           8081,
		QueryLogPath:         filepath.Join(t.TempDir(), "query.log"),
	}
}

func testDeps(db *sql.DB) *app.Dependencies {
	return &app.Dependencies{
		DB:          db,
		VectorStore: memory.NewIndex(),
		Providers: &app.Providers{
			Embedder:   wordEmbedder{},
			Completion: cannedCompletion{reply: "Dogs are mammals [1]."},
			Reranker:   retrieval.KeywordReranker{},
		},
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestNew_RequiresStoreAndProviders(t *testing.T) {
	_, err := app.New(testConfig(t), &app.Dependencies{}, slog.Default())
	assert.Error(t, err)

	_, err = app.New(testConfig(t), nil, slog.Default())
	assert.Error(t, err)
}

func TestApp_Health(t *testing.T) {
	a, err := app.New(testConfig(t), testDeps(nil), slog.Default())
	require.NoError(t, err)
	require.NotNil(t, a.Handler)
	require.NotNil(t, a.Pipeline)

	w := do(t, a.Handler, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestApp_CORSPreflight(t *testing.T) {
	a, err := app.New(testConfig(t), testDeps(nil), slog.Default())
	require.NoError(t, err)

	w := do(t, a.Handler, http.MethodOptions, "/query", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestApp_UploadThenQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO documents").
		WithArgs("t1", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	a, err := app.New(testConfig(t), testDeps(db), slog.Default())
	require.NoError(t, err)

	w := do(t, a.Handler, http.MethodPost, "/upload",
		`{"text":"Cats are small mammals that meow. Dogs are loyal mammals that bark.","doc_id":"t1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var up map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &up))
	assert.Equal(t, "success", up["status"])
	assert.Equal(t, float64(1), up["chunks_stored"])
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))

	w = do(t, a.Handler, http.MethodPost, "/query", `{"query":"Are dogs mammals?","doc_id":"t1"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Answer    string `json:"answer"`
		Citations []struct {
			Number     int    `json:"citation_num"`
			SourceText string `json:"source_text"`
		} `json:"citations"`
		TokensUsed    int    `json:"tokens_used"`
		EstimatedCost string `json:"estimated_cost"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Dogs are mammals [1].", resp.Answer)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, 1, resp.Citations[0].Number)
	assert.Contains(t, resp.Citations[0].SourceText, "Dogs are loyal")
	assert.Greater(t, resp.TokensUsed, 0)
	assert.True(t, strings.HasPrefix(resp.EstimatedCost, "$"))

	w = do(t, a.Handler, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":{"documents":1,"chunks":1}}`, w.Body.String())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApp_QueryUnknownDocument(t *testing.T) {
	a, err := app.New(testConfig(t), testDeps(nil), slog.Default())
	require.NoError(t, err)

	w := do(t, a.Handler, http.MethodPost, "/query", `{"query":"anything","doc_id":"missing"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, rag.NoAnswerMessage, resp["answer"])
	assert.Equal(t, []interface{}{}, resp["citations"])
}

func TestApp_ValidationErrors(t *testing.T) {
	a, err := app.New(testConfig(t), testDeps(nil), slog.Default())
	require.NoError(t, err)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"upload missing text", "/upload", `{"doc_id":"x"}`},
		{"upload bad json", "/upload", `{`},
		{"query missing", "/query", `{}`},
		{"query blank", "/query", `{"query":"   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, a.Handler, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestApp_DocumentsWithoutLedger(t *testing.T) {
	a, err := app.New(testConfig(t), testDeps(nil), slog.Default())
	require.NoError(t, err)

	w := do(t, a.Handler, http.MethodGet, "/documents", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}

func TestApp_MetricsRecorded(t *testing.T) {
	a, err := app.New(testConfig(t), testDeps(nil), slog.Default())
	require.NoError(t, err)

	do(t, a.Handler, http.MethodPost, "/upload", `{"text":"The weather is mild.","doc_id":"w"}`)

	w := do(t, a.Handler, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "minirag_chunks_ingested_total 1")
	assert.Contains(t, body, `route="POST /upload"`)
}
