package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/core/ports/driving"
	"github.com/custodia-labs/aegis/internal/logger"
)

// SkippedMessage is the error recorded on a step whose dependencies did not complete.
const SkippedMessage = "skipped: dependency not completed"

// Verify interface compliance.
var _ driving.Orchestrator = (*Orchestrator)(nil)

// Orchestrator runs the analysis graph
// extraction -> {risk, compliance} -> negotiation -> action.
type Orchestrator struct {
	docStore driven.DocumentStore
	agents   map[domain.StepName]Agent
}

// NewOrchestrator creates an orchestrator. A step with no agent fails when reached.
func NewOrchestrator(docStore driven.DocumentStore, agents ...Agent) *Orchestrator {
	byStep := make(map[domain.StepName]Agent, len(agents))
	for _, a := range agents {
		byStep[a.Step()] = a
	}
	return &Orchestrator{docStore: docStore, agents: byStep}
}

// Run executes every step whose dependencies completed and returns a
// result covering all five steps.
func (o *Orchestrator) Run(ctx context.Context, documentID string) *domain.PipelineResult {
	logger.Section("Analysis")
	result := domain.NewPipelineResult(documentID)
	result.StartedAt = time.Now()
	defer func() { result.Duration = time.Since(result.StartedAt) }()

	text, err := o.loadText(ctx, documentID)
	if err != nil {
		logger.Warn("analysis of %s aborted: %v", documentID, err)
		result.FailAll(fmt.Sprintf("load document: %v", err))
		return result
	}

	o.runStep(ctx, result, domain.StepExtraction, documentID, text)

	var wg sync.WaitGroup
	for _, step := range []domain.StepName{domain.StepRisk, domain.StepCompliance} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o.runStep(ctx, result, step, documentID, text)
		}()
	}
	wg.Wait()

	o.runStep(ctx, result, domain.StepNegotiation, documentID, text)
	o.runStep(ctx, result, domain.StepAction, documentID, text)

	result.Status = domain.PipelineCompleted
	for _, step := range domain.AllSteps {
		if result.Step(step).Status != domain.StepCompleted {
			result.Status = domain.PipelinePartial
			break
		}
	}
	logger.Info("analysis of %s finished: %s", documentID, result.Status)
	return result
}

// runStep writes only to the StepResult of step, so risk and compliance
// can run side by side.
func (o *Orchestrator) runStep(ctx context.Context, result *domain.PipelineResult, step domain.StepName, documentID, text string) {
	sr := result.Step(step)

	prior := make(map[domain.StepName]any)
	for _, dep := range domain.StepDependencies[step] {
		d := result.Step(dep)
		if d.Status != domain.StepCompleted {
			sr.Status = domain.StepFailed
			sr.Error = SkippedMessage
			logger.Debug("%s: %s (%s is %s)", step, SkippedMessage, dep, d.Status)
			return
		}
		prior[dep] = d.Payload
	}

	agent, ok := o.agents[step]
	if !ok {
		sr.Status = domain.StepFailed
		sr.Error = (&domain.StepError{Step: step, Cause: domain.ErrNotImplemented}).Error()
		return
	}

	sr.Status = domain.StepRunning
	start := time.Now()
	payload, defaulted, err := invokeAgent(ctx, agent, AgentInput{DocumentID: documentID, Text: text, Prior: prior})
	sr.Duration = time.Since(start)

	if err != nil {
		sr.Status = domain.StepFailed
		sr.Error = (&domain.StepError{Step: step, Cause: err}).Error()
		logger.Warn("%s", sr.Error)
		return
	}
	sr.Status = domain.StepCompleted
	sr.Payload = payload
	sr.Defaulted = defaulted
	logger.Debug("%s completed in %s", step, sr.Duration)
}

// invokeAgent converts a panic inside the agent into an error.
func invokeAgent(ctx context.Context, agent Agent, in AgentInput) (payload any, defaulted bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			payload, defaulted = nil, false
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return agent.Run(ctx, in)
}

// loadText returns the stored document text, or its chunks joined when
// the full text was not kept.
func (o *Orchestrator) loadText(ctx context.Context, documentID string) (string, error) {
	doc, err := o.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(doc.Content) != "" {
		return doc.Content, nil
	}

	chunks, err := o.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, c.Content)
	}
	text := strings.Join(parts, "\n")
	if strings.TrimSpace(text) == "" {
		return "", domain.ErrNoExtractableText
	}
	return text, nil
}
