package weaviate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-openapi/strfmt"
	"github.com/google/uuid"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"

	"minirag/backend/internal/rag"
	"minirag/backend/internal/vector"
)

// recordNamespace seeds the UUIDv5 object IDs derived from record IDs.
var recordNamespace = uuid.MustParse("7c0b8b8e-3f4a-5d2e-9a61-2f6d1c4b8e90")

type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// ObjectID maps a record ID onto the UUID Weaviate stores it under, so that
// writing the same record twice replaces the first object.
func ObjectID(recordID string) strfmt.UUID {
	return strfmt.UUID(uuid.NewSHA1(recordNamespace, []byte(recordID)).String())
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	return vector.EnsureSchema(ctx, vector.NewClientSchema(s.client))
}

// Upsert writes all records in a single batch request.
func (s *Store) Upsert(ctx context.Context, records []rag.Record) error {
	if len(records) == 0 {
		return nil
	}

	objects := make([]*models.Object, 0, len(records))
	for _, r := range records {
		objects = append(objects, &models.Object{
			Class: vector.PassageClass,
			ID:    ObjectID(r.ID),
			Properties: map[string]interface{}{
				"recordId":   r.ID,
				"content":    r.Chunk.Text,
				"documentId": r.Chunk.DocumentID,
				"chunkIndex": r.Chunk.Index,
				"title":      r.Chunk.Title,
				"source":     r.Chunk.DocumentID,
			},
			Vector: r.Vector,
		})
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return rag.NewServiceError("weaviate", "upsert", err)
	}

	var failed []string
	for _, o := range resp {
		if o.Result == nil || o.Result.Errors == nil {
			continue
		}
		for _, e := range o.Result.Errors.Error {
			if e != nil {
				failed = append(failed, fmt.Sprintf("%s: %s", o.ID, e.Message))
			}
		}
	}
	if len(failed) > 0 {
		return rag.NewServiceError("weaviate", "upsert", errors.New(strings.Join(failed, "; ")))
	}

	slog.DebugContext(ctx, "upserted passages", "count", len(objects))
	return nil
}

// Search runs a nearVector query limited to one document. Weaviate reports
// cosine distance; similarity is 1 - distance.
func (s *Store) Search(ctx context.Context, vec []float32, topK int, documentID string) ([]rag.Candidate, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(vec)

	where := filters.Where().
		WithPath([]string{"documentId"}).
		WithOperator(filters.Equal).
		WithValueString(documentID)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "documentId"},
		{Name: "chunkIndex"},
		{Name: "title"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.PassageClass).
		WithNearVector(nearVector).
		WithWhere(where).
		WithLimit(topK).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, rag.NewServiceError("weaviate", "search", err)
	}
	if len(res.Errors) > 0 {
		return nil, rag.NewServiceError("weaviate", "search", fmt.Errorf("graphql error: %v", graphQLMessages(res.Errors)))
	}

	candidates := []rag.Candidate{}
	data, _ := res.Data["Get"].(map[string]interface{})
	rows, _ := data[vector.PassageClass].([]interface{})
	for _, row := range rows {
		props, ok := row.(map[string]interface{})
		if !ok {
			continue
		}

		c := rag.Candidate{}
		if content, ok := props["content"].(string); ok {
			c.Chunk.Text = content
		}
		if docID, ok := props["documentId"].(string); ok {
			c.Chunk.DocumentID = docID
		}
		if idx, ok := props["chunkIndex"].(float64); ok {
			c.Chunk.Index = int(idx)
		}
		if title, ok := props["title"].(string); ok {
			c.Chunk.Title = title
		}
		if additional, ok := props["_additional"].(map[string]interface{}); ok {
			if distance, ok := additional["distance"].(float64); ok {
				c.Score = float32(1 - distance)
			}
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// CountChunks returns the number of stored passages across all documents.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.PassageClass).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, rag.NewServiceError("weaviate", "count", err)
	}
	if len(res.Errors) > 0 {
		return 0, rag.NewServiceError("weaviate", "count", fmt.Errorf("graphql error: %v", graphQLMessages(res.Errors)))
	}

	data, _ := res.Data["Aggregate"].(map[string]interface{})
	rows, _ := data[vector.PassageClass].([]interface{})
	if len(rows) == 0 {
		return 0, nil
	}
	row, _ := rows[0].(map[string]interface{})
	meta, _ := row["meta"].(map[string]interface{})
	count, _ := meta["count"].(float64)
	return int(count), nil
}

func graphQLMessages(errs []*models.GraphQLError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		if e != nil {
			msgs = append(msgs, e.Message)
		}
	}
	return strings.Join(msgs, "; ")
}
