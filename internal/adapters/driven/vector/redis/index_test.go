package redis

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

func TestEncodeDecodeVector(t *testing.T) {
	v := []float32{0.25, -1, 3.5}
	b := encodeVector(v)
	assert.Len(t, b, 12)
	assert.Equal(t, v, decodeVector(b))
}

func TestEscapeTag(t *testing.T) {
	assert.Equal(t, `doc\-1`, escapeTag("doc-1"))
	assert.Equal(t, `a_b9`, escapeTag("a_b9"))
	assert.Equal(t, `x\.y\ z`, escapeTag("x.y z"))
}

func TestBuildKNNQuery(t *testing.T) {
	assert.Equal(t, "*=>[KNN 5 @vector $vec AS score]", buildKNNQuery(5, ""))
	assert.Equal(t, `(@document_id:{doc\-1})=>[KNN 3 @vector $vec AS score]`, buildKNNQuery(3, "doc-1"))
}

func TestParseKeys(t *testing.T) {
	assert.Nil(t, parseKeys([]any{int64(0)}))
	assert.Equal(t, []string{"k1", "k2"}, parseKeys([]any{int64(2), "k1", "k2"}))
	assert.Nil(t, parseKeys("bad"))
}

func TestParseSearchResults(t *testing.T) {
	reply := []any{
		int64(3),
		"aegis-chunks:c1", []any{"chunk_id", "c1", "document_id", "d1", "position", "0", "content", "rent", "score", "0.05"},
		"aegis-chunks:c2", []any{"chunk_id", "c2", "document_id", "d1", "position", int64(4), "content", "fees", "score", "0.4"},
		"aegis-chunks:c3", []any{"chunk_id", "c3", "document_id", "d2", "position", "1", "content", "x", "score", "0.9"},
	}

	hits, err := parseSearchResults(reply, 0.3)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "c1", hits[0].Chunk.ID)
	assert.Equal(t, "d1", hits[0].Chunk.DocumentID)
	assert.Equal(t, "rent", hits[0].Chunk.Content)
	assert.InDelta(t, 0.95, hits[0].Similarity, 1e-9)
	assert.Equal(t, 4, hits[1].Chunk.Position)
	assert.InDelta(t, 0.6, hits[1].Similarity, 1e-9)
}

func TestParseSearchResults_SkipsMalformed(t *testing.T) {
	reply := []any{
		int64(2),
		"k1", []any{"chunk_id", "c1", "score", "nan-ish"},
		"k2", "not-a-list",
	}
	hits, err := parseSearchResults(reply, 0)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = parseSearchResults(map[string]any{}, 0)
	assert.Error(t, err)
}

func TestParseSearchResults_ThresholdIsStrict(t *testing.T) {
	reply := []any{int64(1), "k", []any{"chunk_id", "c", "score", "0.5"}}
	hits, err := parseSearchResults(reply, 0.5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestNew_RequiresDimensions(t *testing.T) {
	_, err := New(context.Background(), Config{})
	assert.Error(t, err)
}

// TestIndex_Live runs against a RediSearch server when AEGIS_TEST_REDIS_ADDR is set.
func TestIndex_Live(t *testing.T) {
	addr := os.Getenv("AEGIS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("AEGIS_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	idx, err := New(ctx, Config{Addr: addr, IndexName: "aegis-test-" + t.Name(), Dimensions: 2})
	require.NoError(t, err)
	defer func() {
		_ = idx.client.Do(ctx, "FT.DROPINDEX", idx.indexName, "DD").Err()
		_ = idx.Close()
	}()

	require.NoError(t, idx.Upsert(ctx, []domain.Chunk{
		{ID: "c1", DocumentID: "d-1", Content: "a", Embedding: []float32{1, 0}},
		{ID: "c2", DocumentID: "d-2", Content: "b", Embedding: []float32{0, 1}},
		{ID: "c3", DocumentID: "d-2", Content: "no vector"},
	}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 5, 0.5, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c1", hits[0].Chunk.ID)

	hits, err = idx.Search(ctx, []float32{1, 0}, 5, -1, "d-2")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c2", hits[0].Chunk.ID)

	require.NoError(t, idx.DeleteDocument(ctx, "d-1"))
	hits, err = idx.Search(ctx, []float32{1, 0}, 5, 0.5, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}
