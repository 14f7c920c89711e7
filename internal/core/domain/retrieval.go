package domain

import "math"

// Default retrieval parameters.
const (
	DefaultRetrievalK      = 5
	DefaultMinSimilarity   = 0.3
	FallbackNoEmbeddingSim = 0.6
	FallbackEmbeddedSim    = 0.4
)

// RetrievalTier identifies which strategy produced a hit.
type RetrievalTier string

// Retrieval tiers.
const (
	TierVector   RetrievalTier = "vector"
	TierFallback RetrievalTier = "fallback"
)

// ConfidencePolicy maps a raw similarity to the displayed percentage.
type ConfidencePolicy string

// Available confidence policies.
const (
	// ConfidencePolicyInflateLow forces raw percentages in [1,20] up to 99.
	// This reproduces long-standing display behaviour and is the default
	// until the intent behind it is confirmed.
	ConfidencePolicyInflateLow ConfidencePolicy = "inflate_low"

	// ConfidencePolicyCalibrated displays the rounded similarity unchanged.
	ConfidencePolicyCalibrated ConfidencePolicy = "calibrated"
)

// IsValid returns true if the policy is recognised.
func (p ConfidencePolicy) IsValid() bool {
	return p == ConfidencePolicyInflateLow || p == ConfidencePolicyCalibrated
}

// Confidence converts a similarity in [0,1] into a display percentage.
func (p ConfidencePolicy) Confidence(similarity float64) int {
	pct := int(math.Round(similarity * 100))
	if p == ConfidencePolicyInflateLow && pct >= 1 && pct <= 20 {
		return 99
	}
	return pct
}

// RetrieveQuery describes a retrieval request.
// Exactly one of Embedding or Text is normally set; Text is embedded
// by the retrieval service when an embedding capability exists.
type RetrieveQuery struct {
	// Embedding is the query vector.
	Embedding []float32

	// Text is the raw query, used when Embedding is nil.
	Text string

	// K caps the number of hits.
	K int

	// MinSimilarity is the exclusive lower bound for vector hits.
	MinSimilarity float64

	// DocumentID restricts results to one document when set.
	DocumentID string
}

// RetrievalHit is a ranked chunk returned by the retrieval engine.
type RetrievalHit struct {
	// Chunk is the matched chunk.
	Chunk Chunk `json:"chunk"`

	// Similarity is the cosine similarity or the fallback heuristic.
	Similarity float64 `json:"similarity"`

	// Confidence is the display percentage after the confidence policy.
	Confidence int `json:"confidence"`

	// Tier is the strategy that produced the hit.
	Tier RetrievalTier `json:"tier"`
}

// VectorHit is a raw nearest-neighbour result from a vector index.
type VectorHit struct {
	// Chunk is the matched chunk. Implementations fill at least ID,
	// DocumentID, Position and Content.
	Chunk Chunk

	// Similarity is the cosine similarity (0-1).
	Similarity float64
}

// ChunkFilter narrows a chunk scan.
type ChunkFilter struct {
	// DocumentID restricts the scan to one document when set.
	DocumentID string

	// Limit caps the rows returned; zero means no cap.
	Limit int
}

// FallbackOrder reports whether a should rank before b in the fallback tier:
// chunks without an embedding first, then most recently created.
func FallbackOrder(a, b *Chunk) bool {
	if a.HasEmbedding() != b.HasEmbedding() {
		return !a.HasEmbedding()
	}
	return a.CreatedAt.After(b.CreatedAt)
}

// FallbackSimilarity returns the heuristic similarity assigned by the fallback tier.
func FallbackSimilarity(c *Chunk) float64 {
	if c.HasEmbedding() {
		return FallbackEmbeddedSim
	}
	return FallbackNoEmbeddingSim
}

// CosineSimilarity returns the cosine of the angle between a and b.
// Mismatched or zero vectors return 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
