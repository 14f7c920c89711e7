package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/logger"
)

// Classifier assigns a coarse risk verdict to document text.
type Classifier struct {
	generator driven.TextGenerator
	prompts   driven.PromptStore
}

// NewClassifier creates a classifier. A nil generator, or a nil *Classifier,
// always yields the default verdict.
func NewClassifier(generator driven.TextGenerator, prompts driven.PromptStore) *Classifier {
	return &Classifier{generator: generator, prompts: prompts}
}

type classifyOutput struct {
	Level           string   `json:"level"`
	Category        string   `json:"category"`
	Confidence      float64  `json:"confidence"`
	Explanation     string   `json:"explanation"`
	Recommendations []string `json:"recommendations"`
}

// Classify never fails. When the model is unavailable or answers outside
// the schema, DefaultRiskVerdict is returned.
func (c *Classifier) Classify(ctx context.Context, text string) domain.RiskVerdict {
	verdict, err := c.classify(ctx, text)
	if err != nil {
		logger.Warn("classifier: %v", err)
		return domain.DefaultRiskVerdict()
	}
	return verdict
}

func (c *Classifier) classify(ctx context.Context, text string) (domain.RiskVerdict, error) {
	if c == nil || c.generator == nil {
		return domain.RiskVerdict{}, domain.ErrClassificationUnavailable
	}
	tmpl, err := c.prompts.Load(driven.PromptClassify)
	if err != nil {
		return domain.RiskVerdict{}, fmt.Errorf("%w: %w", domain.ErrClassificationUnavailable, err)
	}

	raw, err := c.generator.Generate(ctx, renderPrompt(tmpl, map[string]string{
		"document": truncateText(text, maxPromptChars),
	}))
	if err != nil {
		return domain.RiskVerdict{}, fmt.Errorf("%w: %w", domain.ErrClassificationUnavailable, err)
	}

	out, outcome := ParseWithSchema(raw, classifyOutput{}, "level", "category")
	if outcome.Defaulted {
		return domain.RiskVerdict{}, fmt.Errorf("%w: %s", domain.ErrClassificationUnavailable, outcome.Reason)
	}

	level := normaliseLevel(out.Level)
	category := normaliseCategory(out.Category)
	if !level.IsValid() || !category.IsValid() {
		return domain.RiskVerdict{}, fmt.Errorf("%w: unknown level %q or category %q",
			domain.ErrClassificationUnavailable, out.Level, out.Category)
	}

	return domain.RiskVerdict{
		Level:           level,
		Category:        category,
		Confidence:      clampUnit(out.Confidence),
		Explanation:     strings.TrimSpace(out.Explanation),
		Recommendations: out.Recommendations,
	}, nil
}

// normaliseLevel accepts any casing of a known level.
func normaliseLevel(s string) domain.RiskLevel {
	for _, l := range []domain.RiskLevel{domain.RiskLevelCritical, domain.RiskLevelWarning, domain.RiskLevelNormal} {
		if strings.EqualFold(s, string(l)) {
			return l
		}
	}
	return domain.RiskLevel(s)
}

func normaliseCategory(s string) domain.RiskCategory {
	for _, c := range []domain.RiskCategory{
		domain.RiskCategoryLegal, domain.RiskCategoryFinancial, domain.RiskCategoryCompliance,
		domain.RiskCategoryOperational, domain.RiskCategoryNone,
	} {
		if strings.EqualFold(s, string(c)) {
			return c
		}
	}
	return domain.RiskCategory(s)
}

// clampUnit accepts confidences given as fractions or percentages.
func clampUnit(v float64) float64 {
	if v > 1 {
		v /= 100
	}
	return max(0, min(1, v))
}
