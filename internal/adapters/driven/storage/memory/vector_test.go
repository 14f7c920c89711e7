package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

func TestVectorIndex_Search(t *testing.T) {
	idx := NewVectorIndex()
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		{ID: "same", DocumentID: "d1", Embedding: []float32{1, 0}},
		{ID: "close", DocumentID: "d1", Embedding: []float32{0.9, 0.1}},
		{ID: "orthogonal", DocumentID: "d2", Embedding: []float32{0, 1}},
		{ID: "unembedded", DocumentID: "d2"},
	}))
	assert.Equal(t, 3, idx.Len())

	hits, err := idx.Search(ctx, []float32{1, 0}, 5, 0.3, "")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "same", hits[0].Chunk.ID)
	assert.InDelta(t, 1.0, hits[0].Similarity, 1e-6)

	hits, err = idx.Search(ctx, []float32{1, 0}, 1, 0.3, "")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = idx.Search(ctx, []float32{1, 0}, 5, 0.3, "d2")
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, idx.DeleteDocument(ctx, "d1"))
	assert.Equal(t, 1, idx.Len())
	assert.NoError(t, idx.Close())
}

func TestVectorIndex_ThresholdIsExclusive(t *testing.T) {
	idx := NewVectorIndex()
	ctx := context.Background()
	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{{ID: "c", Embedding: []float32{1, 0}}}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 5, 1.0, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}
