package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minirag/backend/internal/rag"
)

func record(doc string, i int, text string, vec ...float32) rag.Record {
	return rag.NewRecord(rag.Chunk{DocumentID: doc, Index: i, Text: text, Title: doc}, vec)
}

func TestIndex_SearchOrdersBySimilarity(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	require.NoError(t, ix.Upsert(ctx, []rag.Record{
		record("pets", 0, "cats", 1, 0),
		record("pets", 1, "dogs", 0, 1),
		record("pets", 2, "both", 1, 1),
	}))

	res, err := ix.Search(ctx, []float32{0, 1}, 10, "pets")
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "dogs", res[0].Chunk.Text)
	assert.InDelta(t, 1.0, res[0].Score, 1e-6)
	assert.Equal(t, "both", res[1].Chunk.Text)
	assert.Equal(t, "cats", res[2].Chunk.Text)
	assert.InDelta(t, 0.0, res[2].Score, 1e-6)
}

func TestIndex_TopK(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	var recs []rag.Record
	for i := 0; i < 15; i++ {
		recs = append(recs, record("doc", i, "x", 1, float32(i)))
	}
	require.NoError(t, ix.Upsert(ctx, recs))

	res, err := ix.Search(ctx, []float32{1, 0}, 10, "doc")
	require.NoError(t, err)
	assert.Len(t, res, 10)
}

func TestIndex_UpsertIsIdempotent(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	recs := []rag.Record{record("doc", 0, "a", 1, 0), record("doc", 1, "b", 0, 1)}

	require.NoError(t, ix.Upsert(ctx, recs))
	require.NoError(t, ix.Upsert(ctx, recs))
	assert.Equal(t, 2, ix.Len())

	require.NoError(t, ix.Upsert(ctx, []rag.Record{record("doc", 0, "a2", 1, 0)}))
	res, err := ix.Search(ctx, []float32{1, 0}, 10, "doc")
	require.NoError(t, err)
	assert.Equal(t, "a2", res[0].Chunk.Text)
}

func TestIndex_DocumentScoping(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	require.NoError(t, ix.Upsert(ctx, []rag.Record{
		record("A", 0, "alpha", 1, 0),
		record("B", 0, "beta", 1, 0),
	}))

	res, err := ix.Search(ctx, []float32{1, 0}, 10, "A")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "A", res[0].Chunk.DocumentID)

	res, err = ix.Search(ctx, []float32{1, 0}, 10, "C")
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestIndex_TiesOrderedByChunkIndex(t *testing.T) {
	ix := NewIndex()
	ctx := context.Background()
	require.NoError(t, ix.Upsert(ctx, []rag.Record{
		record("doc", 2, "c", 1, 0),
		record("doc", 0, "a", 1, 0),
		record("doc", 1, "b", 1, 0),
	}))

	res, err := ix.Search(ctx, []float32{1, 0}, 10, "doc")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, []int{res[0].Chunk.Index, res[1].Chunk.Index, res[2].Chunk.Index})
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, cosine([]float32{2, 0}, []float32{5, 0}), 1e-9)
	assert.InDelta(t, -1.0, cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, cosine([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 0.0, cosine([]float32{1}, []float32{1, 0}))
}
