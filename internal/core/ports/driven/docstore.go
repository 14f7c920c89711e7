package driven

import (
	"context"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// DocumentStore persists documents and chunks.
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// SaveChunks replaces every chunk of documentID with chunks in a single
	// transaction. Either all chunks are stored or none are. The document
	// must already exist.
	SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// SaveDocumentWithChunks stores doc and replaces its chunks in one
	// transaction. Either both are written or neither is.
	SaveDocumentWithChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetChunks retrieves all chunks for a document ordered by position.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// ListChunks scans chunks across documents, narrowed by filter.
	ListChunks(ctx context.Context, filter domain.ChunkFilter) ([]domain.Chunk, error)

	// DeleteDocument removes a document and its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// ListDocuments returns documents for an owner. An empty owner lists all.
	ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error)

	// ListVersions returns every document in the version chain of id,
	// oldest first.
	ListVersions(ctx context.Context, id string) ([]domain.Document, error)
}
