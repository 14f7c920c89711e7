package driven

import (
	"context"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// VectorIndex provides nearest-neighbour search over chunk embeddings.
// Optional: when nil or failing, retrieval uses the fallback tier.
type VectorIndex interface {
	// Upsert stores the embeddings of chunks. Chunks without an embedding are ignored.
	Upsert(ctx context.Context, chunks []domain.Chunk) error

	// DeleteDocument removes every vector belonging to a document.
	DeleteDocument(ctx context.Context, documentID string) error

	// Search returns at most k hits with similarity strictly above threshold,
	// ordered by similarity descending. A non-empty documentID restricts the search.
	Search(ctx context.Context, query []float32, k int, threshold float64, documentID string) ([]domain.VectorHit, error)

	// Close releases resources.
	Close() error
}
