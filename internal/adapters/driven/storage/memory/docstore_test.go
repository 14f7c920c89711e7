package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

func strPtr(s string) *string { return &s }

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := &domain.Document{ID: "doc-1", OwnerID: "u1", Filename: "lease.pdf", VersionNumber: 1}
	require.NoError(t, store.SaveDocument(ctx, doc))

	got, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "lease.pdf", got.Filename)

	_, err = store.GetDocument(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveChunks_ReplacesAtomically(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "d"}))

	first := []domain.Chunk{
		{ID: "c2", DocumentID: "d", Position: 1, Content: "b"},
		{ID: "c1", DocumentID: "d", Position: 0, Content: "a"},
	}
	require.NoError(t, store.SaveChunks(ctx, "d", first))

	chunks, err := store.GetChunks(ctx, "d")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "c1", chunks[0].ID)
	assert.False(t, chunks[0].CreatedAt.IsZero())

	// A chunk for another document rejects the whole batch.
	err = store.SaveChunks(ctx, "d", []domain.Chunk{{ID: "x", DocumentID: "other"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	chunks, _ = store.GetChunks(ctx, "d")
	assert.Len(t, chunks, 2)

	store.FailChunks = errors.New("disk full")
	assert.Error(t, store.SaveChunks(ctx, "d", first[:1]))
	chunks, _ = store.GetChunks(ctx, "d")
	assert.Len(t, chunks, 2)
}

func TestDocumentStore_SaveChunks_UnknownDocument(t *testing.T) {
	store := NewDocumentStore()
	err := store.SaveChunks(context.Background(), "ghost", []domain.Chunk{{ID: "c", DocumentID: "ghost"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_SaveDocumentWithChunks(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	doc := &domain.Document{ID: "d", Filename: "a.txt"}
	require.NoError(t, store.SaveDocumentWithChunks(ctx, doc, []domain.Chunk{{ID: "c", DocumentID: "d"}}))
	_, err := store.GetDocument(ctx, "d")
	require.NoError(t, err)
	chunks, _ := store.GetChunks(ctx, "d")
	assert.Len(t, chunks, 1)

	// A bad batch writes neither row.
	err = store.SaveDocumentWithChunks(ctx, &domain.Document{ID: "e"}, []domain.Chunk{{ID: "x", DocumentID: "d"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = store.GetDocument(ctx, "e")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentStore_ListChunks(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "a"}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "b"}))
	require.NoError(t, store.SaveChunks(ctx, "a", []domain.Chunk{{ID: "a0", DocumentID: "a"}, {ID: "a1", DocumentID: "a", Position: 1}}))
	require.NoError(t, store.SaveChunks(ctx, "b", []domain.Chunk{{ID: "b0", DocumentID: "b"}}))

	all, err := store.ListChunks(ctx, domain.ChunkFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyA, err := store.ListChunks(ctx, domain.ChunkFilter{DocumentID: "a"})
	require.NoError(t, err)
	assert.Len(t, onlyA, 2)

	limited, err := store.ListChunks(ctx, domain.ChunkFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestDocumentStore_DeleteCascadesChunks(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "d"}))
	require.NoError(t, store.SaveChunks(ctx, "d", []domain.Chunk{{ID: "c", DocumentID: "d"}}))

	require.NoError(t, store.DeleteDocument(ctx, "d"))
	chunks, err := store.GetChunks(ctx, "d")
	require.NoError(t, err)
	assert.Empty(t, chunks)

	assert.ErrorIs(t, store.DeleteDocument(ctx, "d"), domain.ErrNotFound)
}

func TestDocumentStore_ListDocuments_ByOwner(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "old", OwnerID: "u1", CreatedAt: now.Add(-time.Hour)}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "new", OwnerID: "u1", CreatedAt: now}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "other", OwnerID: "u2", CreatedAt: now}))

	docs, err := store.ListDocuments(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "new", docs[0].ID)

	all, err := store.ListDocuments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestDocumentStore_ListVersions(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "v1", VersionNumber: 1}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "v2", VersionNumber: 2, ParentDocumentID: strPtr("v1")}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "v3", VersionNumber: 3, ParentDocumentID: strPtr("v2")}))

	for _, id := range []string{"v1", "v2", "v3"} {
		chain, err := store.ListVersions(ctx, id)
		require.NoError(t, err)
		require.Len(t, chain, 3, "from %s", id)
		assert.Equal(t, "v1", chain[0].ID)
		assert.Equal(t, "v3", chain[2].ID)
	}

	_, err := store.ListVersions(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
