package sqlite

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex over the chunks table.
// Embeddings live in the chunk rows; search is a cosine scan in process.
type vectorIndex struct {
	store *Store
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Upsert writes embeddings onto already stored chunk rows.
func (v *vectorIndex) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, "UPDATE chunks SET embedding = ? WHERE id = ?")
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if !c.HasEmbedding() {
			continue
		}
		if _, err := stmt.ExecContext(ctx, float32SliceToBytes(c.Embedding), c.ID); err != nil {
			return fmt.Errorf("updating embedding: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteDocument clears the embeddings of a document's chunks.
func (v *vectorIndex) DeleteDocument(ctx context.Context, documentID string) error {
	if _, err := v.store.db.ExecContext(ctx,
		"UPDATE chunks SET embedding = NULL WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing embeddings: %w", err)
	}
	return nil
}

// Search scans every embedded chunk and returns up to k hits with
// similarity strictly above threshold, best first.
func (v *vectorIndex) Search(
	ctx context.Context, query []float32, k int, threshold float64, documentID string,
) ([]domain.VectorHit, error) {
	sqlQuery := "SELECT " + chunkColumns + " FROM chunks WHERE embedding IS NOT NULL"
	var args []any
	if documentID != "" {
		sqlQuery += " AND document_id = ?"
		args = append(args, documentID)
	}

	rows, err := v.store.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var hits []domain.VectorHit
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		sim := domain.CosineSimilarity(query, chunk.Embedding)
		if sim > threshold {
			hits = append(hits, domain.VectorHit{Chunk: *chunk, Similarity: sim})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
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

// Close is a no-op; the Store owns the connection.
func (v *vectorIndex) Close() error { return nil }
