package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aegis/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/aegis/internal/core/domain"
)

type retrievalFixture struct {
	store   *memory.DocumentStore
	vectors *memory.VectorIndex
}

func newRetrievalFixture(t *testing.T) retrievalFixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewDocumentStore()
	vectors := memory.NewVectorIndex()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	chunksA := []domain.Chunk{
		{ID: "a0", DocumentID: "A", Position: 0, Content: "rent", Embedding: []float32{1, 0, 0}, CreatedAt: base},
		{ID: "a1", DocumentID: "A", Position: 1, Content: "deposit", Embedding: []float32{0.8, 0.6, 0}, CreatedAt: base.Add(time.Hour)},
		{ID: "a2", DocumentID: "A", Position: 2, Content: "plain", CreatedAt: base.Add(2 * time.Hour)},
	}
	chunksB := []domain.Chunk{
		{ID: "b0", DocumentID: "B", Position: 0, Content: "other", Embedding: []float32{0, 0, 1}, CreatedAt: base.Add(3 * time.Hour)},
	}
	seedDocument(t, store, "A", "")
	seedDocument(t, store, "B", "")
	require.NoError(t, store.SaveChunks(ctx, "A", chunksA))
	require.NoError(t, store.SaveChunks(ctx, "B", chunksB))
	require.NoError(t, vectors.Upsert(ctx, append(chunksA, chunksB...)))

	return retrievalFixture{store: store, vectors: vectors}
}

func TestRetrieve_VectorTier(t *testing.T) {
	f := newRetrievalFixture(t)
	svc := NewRetrievalService(f.store, f.vectors, nil, domain.RetrievalSettings{})

	hits, err := svc.Retrieve(context.Background(), domain.RetrieveQuery{Embedding: []float32{1, 0, 0}})
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "a0", hits[0].Chunk.ID)
	assert.Equal(t, "a1", hits[1].Chunk.ID)
	assert.Equal(t, domain.TierVector, hits[0].Tier)
	assert.Equal(t, 100, hits[0].Confidence)
	assert.Equal(t, 80, hits[1].Confidence)
	assert.Greater(t, hits[0].Similarity, hits[1].Similarity)
	assert.Nil(t, hits[0].Chunk.Embedding, "vectors are not returned to callers")
}

func TestRetrieve_VectorTierRespectsKAndDocument(t *testing.T) {
	f := newRetrievalFixture(t)
	svc := NewRetrievalService(f.store, f.vectors, nil, domain.RetrievalSettings{})

	hits, err := svc.Retrieve(context.Background(), domain.RetrieveQuery{Embedding: []float32{1, 0, 0}, K: 1})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	hits, err = svc.Retrieve(context.Background(), domain.RetrieveQuery{Embedding: []float32{0, 0, 1}, DocumentID: "B"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "b0", hits[0].Chunk.ID)
}

func TestRetrieve_FallbackWhenVectorTierEmpty(t *testing.T) {
	f := newRetrievalFixture(t)
	svc := NewRetrievalService(f.store, f.vectors, nil, domain.RetrievalSettings{})

	// Orthogonal to every chunk in A, so the vector tier is empty for A.
	hits, err := svc.Retrieve(context.Background(), domain.RetrieveQuery{
		Embedding:  []float32{0, 0, 1},
		DocumentID: "A",
	})
	require.NoError(t, err)
	require.Len(t, hits, 3)

	// No-embedding chunk first, then most recent.
	assert.Equal(t, "a2", hits[0].Chunk.ID)
	assert.InDelta(t, 0.6, hits[0].Similarity, 1e-9)
	assert.Equal(t, "a1", hits[1].Chunk.ID)
	assert.InDelta(t, 0.4, hits[1].Similarity, 1e-9)
	assert.Equal(t, "a0", hits[2].Chunk.ID)
	for _, h := range hits {
		assert.Equal(t, domain.TierFallback, h.Tier)
	}
}

func TestRetrieve_FallbackWhenVectorTierErrs(t *testing.T) {
	f := newRetrievalFixture(t)
	f.vectors.SearchErr = errors.New("connection refused")
	svc := NewRetrievalService(f.store, f.vectors, nil, domain.RetrievalSettings{K: 2})

	hits, err := svc.Retrieve(context.Background(), domain.RetrieveQuery{Embedding: []float32{1, 0, 0}})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, domain.TierFallback, hits[0].Tier)
	assert.Equal(t, "a2", hits[0].Chunk.ID)
	assert.Equal(t, "b0", hits[1].Chunk.ID)
}

func TestRetrieve_FallbackWithoutIndex(t *testing.T) {
	f := newRetrievalFixture(t)
	svc := NewRetrievalService(f.store, nil, nil, domain.RetrievalSettings{})

	hits, err := svc.Retrieve(context.Background(), domain.RetrieveQuery{Embedding: []float32{1, 0, 0}})
	require.NoError(t, err)
	assert.Len(t, hits, 4)
}

func TestRetrieve_ConfidencePolicy(t *testing.T) {
	ctx := context.Background()
	store := memory.NewDocumentStore()
	vectors := memory.NewVectorIndex()
	// cos = 0.35 with query (1,0): x = 0.35, y = sqrt(1-0.35^2)
	chunk := domain.Chunk{ID: "c", DocumentID: "d", Content: "x", Embedding: []float32{0.35, 0.9367497}}
	seedDocument(t, store, "d", "")
	require.NoError(t, store.SaveChunks(ctx, "d", []domain.Chunk{chunk}))
	require.NoError(t, vectors.Upsert(ctx, []domain.Chunk{chunk}))

	calibrated := NewRetrievalService(store, vectors, nil, domain.RetrievalSettings{
		MinSimilarity:    0.1,
		ConfidencePolicy: domain.ConfidencePolicyCalibrated,
	})
	hits, err := calibrated.Retrieve(ctx, domain.RetrieveQuery{Embedding: []float32{1, 0}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 35, hits[0].Confidence)

	// Low similarities are displayed as 99 under the default policy.
	vectors2 := memory.NewVectorIndex()
	low := domain.Chunk{ID: "l", DocumentID: "d", Content: "x", Embedding: []float32{0.15, 0.9886859}}
	require.NoError(t, vectors2.Upsert(ctx, []domain.Chunk{low}))
	inflating := NewRetrievalService(store, vectors2, nil, domain.RetrievalSettings{MinSimilarity: 0.1})
	hits, err = inflating.Retrieve(ctx, domain.RetrieveQuery{Embedding: []float32{1, 0}})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 99, hits[0].Confidence)
}

func TestRetrieveText_EmbedsQuery(t *testing.T) {
	f := newRetrievalFixture(t)
	embedder := newMockEmbedder()
	embedder.vectors["monthly rent"] = []float32{1, 0, 0}
	svc := NewRetrievalService(f.store, f.vectors, embedder, domain.RetrievalSettings{})

	hits, err := svc.RetrieveText(context.Background(), "monthly rent", 1, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a0", hits[0].Chunk.ID)
	assert.Equal(t, domain.TierVector, hits[0].Tier)
}

func TestRetrieveText_EmbeddingErrorFallsBack(t *testing.T) {
	f := newRetrievalFixture(t)
	embedder := newMockEmbedder()
	embedder.embedErr = errors.New("quota exceeded")
	svc := NewRetrievalService(f.store, f.vectors, embedder, domain.RetrievalSettings{})

	hits, err := svc.RetrieveText(context.Background(), "anything", 0, "")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, domain.TierFallback, hits[0].Tier)
}
