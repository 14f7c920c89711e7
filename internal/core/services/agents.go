package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/logger"
)

// AgentInput is what a step sees: the document text and the payloads
// of the steps it depends on.
type AgentInput struct {
	DocumentID string
	Text       string
	Prior      map[domain.StepName]any
}

// Agent performs one step of the analysis graph.
type Agent interface {
	// Step names the graph node this agent serves.
	Step() domain.StepName

	// Run returns the step payload. defaulted is true when the model output
	// did not match the payload schema and the default was substituted.
	Run(ctx context.Context, in AgentInput) (payload any, defaulted bool, err error)
}

// llmAgent renders a prompt, calls the generator and decodes the reply into T.
type llmAgent[T any] struct {
	step      domain.StepName
	generator driven.TextGenerator
	prompts   driven.PromptStore
	fallback  func() T
	required  []string
	finish    func(*T)
}

func (a *llmAgent[T]) Step() domain.StepName { return a.step }

func (a *llmAgent[T]) Run(ctx context.Context, in AgentInput) (any, bool, error) {
	if a.generator == nil {
		return nil, false, domain.ErrLLMUnavailable
	}
	tmpl, err := a.prompts.Load(string(a.step))
	if err != nil {
		return nil, false, fmt.Errorf("load prompt: %w", err)
	}
	prior, err := json.MarshalIndent(in.Prior, "", "  ")
	if err != nil {
		return nil, false, fmt.Errorf("encode context: %w", err)
	}

	raw, err := a.generator.Generate(ctx, renderPrompt(tmpl, map[string]string{
		"document": truncateText(in.Text, maxPromptChars),
		"context":  string(prior),
	}))
	if err != nil {
		return nil, false, err
	}

	out, outcome := ParseWithSchema(raw, a.fallback(), a.required...)
	if outcome.Defaulted {
		logger.Warn("%s agent: %s, using default payload", a.step, outcome.Reason)
	}
	if a.finish != nil {
		a.finish(&out)
	}
	return out, outcome.Defaulted, nil
}

// NewAgents returns the five analysis agents backed by one generator.
func NewAgents(generator driven.TextGenerator, prompts driven.PromptStore) []Agent {
	return []Agent{
		&llmAgent[domain.ExtractionPayload]{
			step: domain.StepExtraction, generator: generator, prompts: prompts,
			fallback: func() domain.ExtractionPayload {
				return domain.ExtractionPayload{Parties: []string{}, Dates: []string{}, Amounts: []string{}, KeyClauses: []string{}}
			},
			required: []string{"summary"},
		},
		&llmAgent[domain.RiskPayload]{
			step: domain.StepRisk, generator: generator, prompts: prompts,
			fallback: func() domain.RiskPayload {
				return domain.RiskPayload{
					Level:    domain.RiskLevelWarning,
					Category: domain.RiskCategoryCompliance,
					Score:    0.5,
					Findings: []domain.RiskFinding{},
				}
			},
			required: []string{"level"},
			finish: func(p *domain.RiskPayload) {
				p.Level = normaliseLevel(string(p.Level))
				p.Category = normaliseCategory(string(p.Category))
				p.Score = clampUnit(p.Score)
			},
		},
		&llmAgent[domain.CompliancePayload]{
			step: domain.StepCompliance, generator: generator, prompts: prompts,
			fallback: func() domain.CompliancePayload {
				return domain.CompliancePayload{Status: "review_required", Regulations: []string{}, Issues: []domain.ComplianceIssue{}}
			},
			required: []string{"status"},
		},
		&llmAgent[domain.NegotiationPayload]{
			step: domain.StepNegotiation, generator: generator, prompts: prompts,
			fallback: func() domain.NegotiationPayload {
				return domain.NegotiationPayload{Points: []domain.NegotiationPoint{}}
			},
			required: []string{"points"},
		},
		&llmAgent[domain.ActionPayload]{
			step: domain.StepAction, generator: generator, prompts: prompts,
			fallback: func() domain.ActionPayload {
				return domain.ActionPayload{
					Items:     []domain.ActionItem{},
					NextSteps: []string{"Review the analysis manually."},
				}
			},
			required: []string{"items"},
		},
	}
}
