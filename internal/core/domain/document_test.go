package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRiskLevel_IsValid(t *testing.T) {
	assert.True(t, RiskLevelCritical.IsValid())
	assert.True(t, RiskLevelWarning.IsValid())
	assert.True(t, RiskLevelNormal.IsValid())
	assert.False(t, RiskLevel("critical").IsValid())
}

func TestRiskCategory_IsValid(t *testing.T) {
	for _, c := range []RiskCategory{
		RiskCategoryLegal, RiskCategoryFinancial, RiskCategoryCompliance,
		RiskCategoryOperational, RiskCategoryNone,
	} {
		assert.True(t, c.IsValid(), c)
	}
	assert.False(t, RiskCategory("Tax").IsValid())
}

func TestDocument_IsSuperseded(t *testing.T) {
	doc := &Document{ID: "doc-1", VersionNumber: 1}
	assert.False(t, doc.IsSuperseded())

	now := time.Now()
	doc.SupersededAt = &now
	assert.True(t, doc.IsSuperseded())
}

func TestChunk_HasEmbedding(t *testing.T) {
	assert.False(t, (&Chunk{}).HasEmbedding())
	assert.True(t, (&Chunk{Embedding: []float32{0.1}}).HasEmbedding())
}

func TestDefaultRiskVerdict(t *testing.T) {
	v := DefaultRiskVerdict()

	assert.Equal(t, RiskLevelWarning, v.Level)
	assert.Equal(t, RiskCategoryCompliance, v.Category)
	assert.InDelta(t, 0.5, v.Confidence, 1e-9)
	assert.True(t, v.Defaulted)
	assert.Contains(t, v.Explanation, "manual review")
}

func TestRiskVerdict_Apply(t *testing.T) {
	doc := &Document{ID: "doc-1"}
	RiskVerdict{
		Level:           RiskLevelCritical,
		Category:        RiskCategoryLegal,
		Confidence:      0.9,
		Explanation:     "unlimited liability",
		Recommendations: []string{"cap liability"},
	}.Apply(doc)

	assert.Equal(t, RiskLevelCritical, doc.RiskLevel)
	assert.Equal(t, RiskCategoryLegal, doc.RiskCategory)
	assert.InDelta(t, 0.9, doc.RiskConfidence, 1e-9)
	assert.Equal(t, []string{"cap liability"}, doc.Recommendations)
}

func TestNewAnalysisResult(t *testing.T) {
	doc := &Document{
		ID:             "doc-1",
		Filename:       "lease.pdf",
		RiskLevel:      RiskLevelWarning,
		RiskCategory:   RiskCategoryCompliance,
		RiskConfidence: 0.876,
		PageCount:      4,
	}
	pipeline := NewPipelineResult("doc-1")

	result := NewAnalysisResult(doc, 12, pipeline)

	assert.Equal(t, "doc-1", result.DocumentID)
	assert.Equal(t, 88, result.RiskConfidence)
	assert.Equal(t, 4, result.NumPages)
	assert.Equal(t, 12, result.NumChunks)
	assert.Same(t, pipeline, result.Pipeline)
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "line one\nline\ttwo", SanitizeText("line\x00 one\r\nline\ttwo\x1b"))
	assert.Equal(t, "ok", SanitizeText("o\xffk"))
	assert.Equal(t, "", SanitizeText(""))
}
