package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/core/ports/driving"
	"github.com/custodia-labs/aegis/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// RetrievalService ranks chunks with a vector tier and a fallback scan.
type RetrievalService struct {
	docStore    driven.DocumentStore
	vectorIndex driven.VectorIndex
	embedder    driven.EmbeddingService
	settings    domain.RetrievalSettings
}

// NewRetrievalService creates a retrieval service. vectorIndex and
// embedder are optional.
func NewRetrievalService(
	docStore driven.DocumentStore,
	vectorIndex driven.VectorIndex,
	embedder driven.EmbeddingService,
	settings domain.RetrievalSettings,
) *RetrievalService {
	if settings.K <= 0 {
		settings.K = domain.DefaultRetrievalK
	}
	if settings.MinSimilarity <= 0 {
		settings.MinSimilarity = domain.DefaultMinSimilarity
	}
	if !settings.ConfidencePolicy.IsValid() {
		settings.ConfidencePolicy = domain.ConfidencePolicyInflateLow
	}
	return &RetrievalService{
		docStore:    docStore,
		vectorIndex: vectorIndex,
		embedder:    embedder,
		settings:    settings,
	}
}

// Retrieve returns up to K hits for the query.
func (s *RetrievalService) Retrieve(ctx context.Context, q domain.RetrieveQuery) ([]domain.RetrievalHit, error) {
	logger.Section("Retrieval")

	if q.K <= 0 {
		q.K = s.settings.K
	}
	if q.MinSimilarity <= 0 {
		q.MinSimilarity = s.settings.MinSimilarity
	}

	embedding := q.Embedding
	if len(embedding) == 0 && q.Text != "" && s.embedder != nil {
		vec, err := s.embedder.Embed(ctx, q.Text)
		if err != nil {
			logger.Warn("query embedding failed, using fallback tier: %v", err)
		} else {
			embedding = vec
		}
	}

	if s.vectorIndex != nil && len(embedding) > 0 {
		hits, err := s.vectorTier(ctx, embedding, q)
		switch {
		case err != nil:
			logger.Warn("vector tier failed, using fallback tier: %v", err)
		case len(hits) > 0:
			logger.Info("vector tier: %d hits", len(hits))
			return hits, nil
		default:
			logger.Debug("vector tier empty, using fallback tier")
		}
	}

	hits, err := s.fallbackTier(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fallback retrieval: %w", err)
	}
	logger.Info("fallback tier: %d hits", len(hits))
	return hits, nil
}

// RetrieveText embeds text when possible and retrieves.
func (s *RetrievalService) RetrieveText(ctx context.Context, text string, k int, documentID string) ([]domain.RetrievalHit, error) {
	return s.Retrieve(ctx, domain.RetrieveQuery{Text: text, K: k, DocumentID: documentID})
}

func (s *RetrievalService) vectorTier(ctx context.Context, embedding []float32, q domain.RetrieveQuery) ([]domain.RetrievalHit, error) {
	raw, err := s.vectorIndex.Search(ctx, embedding, q.K, q.MinSimilarity, q.DocumentID)
	if err != nil {
		return nil, err
	}

	hits := make([]domain.RetrievalHit, 0, len(raw))
	for _, h := range raw {
		if h.Similarity <= q.MinSimilarity {
			continue
		}
		if q.DocumentID != "" && h.Chunk.DocumentID != q.DocumentID {
			continue
		}
		hits = append(hits, s.hit(h.Chunk, h.Similarity, domain.TierVector))
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > q.K {
		hits = hits[:q.K]
	}
	return hits, nil
}

func (s *RetrievalService) fallbackTier(ctx context.Context, q domain.RetrieveQuery) ([]domain.RetrievalHit, error) {
	chunks, err := s.docStore.ListChunks(ctx, domain.ChunkFilter{DocumentID: q.DocumentID})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(chunks, func(i, j int) bool { return domain.FallbackOrder(&chunks[i], &chunks[j]) })
	if len(chunks) > q.K {
		chunks = chunks[:q.K]
	}

	hits := make([]domain.RetrievalHit, 0, len(chunks))
	for i := range chunks {
		hits = append(hits, s.hit(chunks[i], domain.FallbackSimilarity(&chunks[i]), domain.TierFallback))
	}
	return hits, nil
}

func (s *RetrievalService) hit(c domain.Chunk, similarity float64, tier domain.RetrievalTier) domain.RetrievalHit {
	c.Embedding = nil
	return domain.RetrievalHit{
		Chunk:      c,
		Similarity: similarity,
		Confidence: s.settings.ConfidencePolicy.Confidence(similarity),
		Tier:       tier,
	}
}
