package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is a brute-force cosine index held in memory.
type VectorIndex struct {
	mu     sync.RWMutex
	chunks map[string]domain.Chunk

	// SearchErr makes Search fail, for exercising the fallback tier.
	SearchErr error
}

// NewVectorIndex creates an empty index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{chunks: make(map[string]domain.Chunk)}
}

// Upsert indexes chunks that carry an embedding.
func (v *VectorIndex) Upsert(_ context.Context, chunks []domain.Chunk) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range chunks {
		if c.HasEmbedding() {
			v.chunks[c.ID] = c
		}
	}
	return nil
}

// DeleteDocument drops every chunk of a document.
func (v *VectorIndex) DeleteDocument(_ context.Context, documentID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, c := range v.chunks {
		if c.DocumentID == documentID {
			delete(v.chunks, id)
		}
	}
	return nil
}

// Search returns up to k chunks with similarity strictly above threshold,
// best first.
func (v *VectorIndex) Search(_ context.Context, query []float32, k int, threshold float64, documentID string) ([]domain.VectorHit, error) {
	if v.SearchErr != nil {
		return nil, v.SearchErr
	}

	v.mu.RLock()
	defer v.mu.RUnlock()

	var hits []domain.VectorHit
	for _, c := range v.chunks {
		if documentID != "" && c.DocumentID != documentID {
			continue
		}
		sim := domain.CosineSimilarity(query, c.Embedding)
		if sim > threshold {
			hits = append(hits, domain.VectorHit{Chunk: c, Similarity: sim})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].Chunk.ID < hits[j].Chunk.ID
	})
	if k > 0 && len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed chunks.
func (v *VectorIndex) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.chunks)
}

// Close is a no-op.
func (v *VectorIndex) Close() error { return nil }
