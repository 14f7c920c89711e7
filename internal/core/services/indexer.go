package services

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/logger"
)

// Indexer limits.
const (
	// EmbedBatchSize is the number of texts sent per embedding request.
	EmbedBatchSize = 100

	// MaxEmbedChars is the longest text accepted for embedding.
	MaxEmbedChars = 8000
)

// Indexer embeds chunks and persists them per document.
type Indexer struct {
	docStore    driven.DocumentStore
	embedder    driven.EmbeddingService
	vectorIndex driven.VectorIndex
	batchSize   int
}

// NewIndexer creates an indexer. embedder and vectorIndex are optional;
// without an embedder chunks are stored without vectors and retrieval
// serves them from the fallback tier.
func NewIndexer(docStore driven.DocumentStore, embedder driven.EmbeddingService, vectorIndex driven.VectorIndex) *Indexer {
	return &Indexer{
		docStore:    docStore,
		embedder:    embedder,
		vectorIndex: vectorIndex,
		batchSize:   EmbedBatchSize,
	}
}

// Index sanitises, embeds and stores every chunk of an existing document.
// Either all chunks are written or none are.
func (ix *Indexer) Index(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	prepared, err := ix.Prepare(ctx, documentID, chunks)
	if err != nil {
		return err
	}
	if err := ix.docStore.SaveChunks(ctx, documentID, prepared); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}
	logger.Info("Stored %d chunks for %s", len(prepared), documentID)

	ix.Publish(ctx, documentID, prepared)
	return nil
}

// Prepare sanitises, validates and embeds chunks without storing them.
func (ix *Indexer) Prepare(ctx context.Context, documentID string, chunks []domain.Chunk) ([]domain.Chunk, error) {
	logger.Section("Indexing")
	logger.Debug("document=%s chunks=%d", documentID, len(chunks))

	prepared := make([]domain.Chunk, len(chunks))
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		c.DocumentID = documentID
		c.Content = domain.SanitizeText(c.Content)
		if c.Content == "" {
			return nil, fmt.Errorf("%w: chunk %d is empty", domain.ErrInvalidInput, c.Position)
		}
		if n := utf8.RuneCountInString(c.Content); n > MaxEmbedChars {
			return nil, fmt.Errorf("%w: chunk %d has %d characters, limit is %d",
				domain.ErrInvalidInput, c.Position, n, MaxEmbedChars)
		}
		prepared[i] = c
		texts[i] = c.Content
	}

	if ix.embedder != nil && len(texts) > 0 {
		vectors, err := ix.embedAll(ctx, texts)
		if err != nil {
			return nil, err
		}
		for i := range prepared {
			prepared[i].Embedding = vectors[i]
		}
	}
	return prepared, nil
}

// embedAll requests embeddings in batches. Any failure aborts the whole call.
func (ix *Indexer) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += ix.batchSize {
		end := min(start+ix.batchSize, len(texts))
		logger.Debug("embedding batch %d-%d", start, end)

		batch, err := ix.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("%w: batch %d-%d: %w", domain.ErrEmbeddingFailure, start, end, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("%w: batch %d-%d returned %d vectors",
				domain.ErrEmbeddingFailure, start, end, len(batch))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// Publish copies stored vectors into the external index. Failures are
// logged only.
func (ix *Indexer) Publish(ctx context.Context, documentID string, chunks []domain.Chunk) {
	if ix.vectorIndex == nil || ix.embedder == nil {
		return
	}
	if err := ix.vectorIndex.DeleteDocument(ctx, documentID); err != nil {
		logger.Warn("vector index: clear %s: %v", documentID, err)
	}
	if err := ix.vectorIndex.Upsert(ctx, chunks); err != nil {
		logger.Warn("vector index: upsert %s: %v", documentID, err)
	}
}

// Remove deletes a document's vectors from the external index.
func (ix *Indexer) Remove(ctx context.Context, documentID string) {
	if ix.vectorIndex == nil {
		return
	}
	if err := ix.vectorIndex.DeleteDocument(ctx, documentID); err != nil {
		logger.Warn("vector index: delete %s: %v", documentID, err)
	}
}
