// Package rag holds the types shared by every stage of the retrieval
// pipeline: passages, indexed records, search candidates and citations.
package rag

import (
	"context"
	"fmt"
)

// DefaultDocumentID is used when a caller does not name the document.
const DefaultDocumentID = "user_doc"

// NoAnswerMessage is returned instead of a generated answer when the index
// holds no passages for the requested document.
const NoAnswerMessage = "Sorry, I couldn't find relevant information to answer your question."

// EmbedMode tells an asymmetric embedding model which side of the search a
// text is on.
type EmbedMode string

const (
	ModeDocument EmbedMode = "search_document"
	ModeQuery    EmbedMode = "search_query"
)

// Chunk is one passage of a document.
type Chunk struct {
	DocumentID string `json:"document_id"`
	Index      int    `json:"chunk_index"`
	Text       string `json:"source_text"`
	Title      string `json:"title"`
}

// Record is the unit stored in the vector index.
type Record struct {
	ID     string
	Vector []float32
	Chunk  Chunk
}

// RecordID derives the stable index identity of a chunk. Re-ingesting the
// same document overwrites records with the same positions.
func RecordID(documentID string, index int) string {
	return fmt.Sprintf("%s-chunk-%d", documentID, index)
}

// NewRecord builds the indexed record for a chunk and its vector.
func NewRecord(c Chunk, vector []float32) Record {
	return Record{ID: RecordID(c.DocumentID, c.Index), Vector: vector, Chunk: c}
}

// Candidate is a search hit. Score is the index's cosine similarity,
// RerankScore the secondary relevance signal.
type Candidate struct {
	Chunk       Chunk
	Score       float32
	RerankScore float64
}

// Citation ties an answer marker [n] to the passage it refers to.
type Citation struct {
	Number     int    `json:"citation_num"`
	SourceText string `json:"source_text"`
}

// Answer is the result of asking a question.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string, mode EmbedMode) ([]float32, error)
}

// VectorIndex stores records and answers nearest-neighbour queries scoped
// to a single document.
type VectorIndex interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, vector []float32, topK int, documentID string) ([]Candidate, error)
}

// Completion produces text for a prompt.
type Completion interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
