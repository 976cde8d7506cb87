package retrieval

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"minirag/backend/internal/rag"
)

// CitedSource identifies the passage behind one citation number.
type CitedSource struct {
	Citation    int     `json:"citation_num"`
	RecordID    string  `json:"record_id"`
	ChunkIndex  int     `json:"chunk_index"`
	Similarity  float32 `json:"similarity"`
	RerankScore float64 `json:"rerank_score"`
}

// QueryLogEntry is one JSON line of the query log.
type QueryLogEntry struct {
	Timestamp     time.Time     `json:"timestamp"`
	Query         string        `json:"query"`
	DocumentID    string        `json:"doc_id"`
	NumResults    int           `json:"num_results"`
	NumCitations  int           `json:"num_citations"`
	Sources       []CitedSource `json:"sources"`
	Answered      bool          `json:"answered"`
	Duration      time.Duration `json:"duration_ns"`
	LatencyMs     int64         `json:"latency_ms"`
	CorrelationID string        `json:"correlation_id"`
}

// SourcesFor lists the first n reranked candidates, numbered from 1 the
// same way the context block numbers them.
func SourcesFor(candidates []rag.Candidate, n int) []CitedSource {
	n = min(n, len(candidates))
	sources := make([]CitedSource, 0, n)
	for i, c := range candidates[:n] {
		sources = append(sources, CitedSource{
			Citation:    i + 1,
			RecordID:    rag.RecordID(c.Chunk.DocumentID, c.Chunk.Index),
			ChunkIndex:  c.Chunk.Index,
			Similarity:  c.Score,
			RerankScore: c.RerankScore,
		})
	}
	return sources
}

type QueryLogger struct {
	mu     sync.Mutex
	writer io.Writer
	closer io.Closer
}

func NewQueryLogger(w io.Writer) *QueryLogger {
	return &QueryLogger{writer: w}
}

// NewFileQueryLogger appends to path and mirrors every entry to stdout.
func NewFileQueryLogger(path string) (*QueryLogger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- path comes from QUERY_LOG_PATH
	if err != nil {
		return nil, err
	}
	return &QueryLogger{writer: io.MultiWriter(os.Stdout, f), closer: f}, nil
}

// Log stamps the entry and writes it as one line. Sources is never null in
// the output.
func (l *QueryLogger) Log(entry QueryLogEntry) {
	entry.Timestamp = time.Now().UTC()
	entry.LatencyMs = entry.Duration.Milliseconds()
	if entry.Sources == nil {
		entry.Sources = []CitedSource{}
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := json.NewEncoder(l.writer).Encode(entry); err != nil {
		slog.Error("failed to write query log entry", "error", err)
	}
}

// Close releases the log file, if any.
func (l *QueryLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	l.writer = io.Discard
	return err
}
