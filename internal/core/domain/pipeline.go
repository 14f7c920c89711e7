package domain

import "time"

// StepName identifies a node in the analysis graph.
type StepName string

// The five analysis steps, in dependency order.
const (
	StepExtraction  StepName = "extraction"
	StepRisk        StepName = "risk"
	StepCompliance  StepName = "compliance"
	StepNegotiation StepName = "negotiation"
	StepAction      StepName = "action"
)

// AllSteps lists every step in dependency order.
var AllSteps = []StepName{StepExtraction, StepRisk, StepCompliance, StepNegotiation, StepAction}

// StepDependencies maps each step to the steps it requires.
var StepDependencies = map[StepName][]StepName{
	StepExtraction:  nil,
	StepRisk:        {StepExtraction},
	StepCompliance:  {StepExtraction},
	StepNegotiation: {StepExtraction, StepRisk, StepCompliance},
	StepAction:      {StepExtraction, StepRisk, StepCompliance, StepNegotiation},
}

// StepStatus is the state of a step within one run.
type StepStatus string

// Step states. A step moves pending -> running -> completed|failed.
const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// PipelineStatus is the overall outcome of a run.
type PipelineStatus string

// Pipeline outcomes.
const (
	PipelineCompleted PipelineStatus = "completed"
	PipelinePartial   PipelineStatus = "partial"
	PipelineFailed    PipelineStatus = "failed"
)

// StepResult is the outcome of a single step.
type StepResult struct {
	// Step is the node this result belongs to.
	Step StepName `json:"step"`

	// Status is completed or failed in a finished PipelineResult.
	Status StepStatus `json:"status"`

	// Payload is the typed step output, nil on failure.
	Payload any `json:"payload,omitempty"`

	// Error is the captured failure message.
	Error string `json:"error,omitempty"`

	// Defaulted is true when the model output did not match the
	// payload schema and the default payload was substituted.
	Defaulted bool `json:"defaulted,omitempty"`

	// Duration is the wall-clock time spent in the step.
	Duration time.Duration `json:"duration"`
}

// PipelineResult aggregates exactly one result per step.
// It is always total: every step in AllSteps has an entry.
type PipelineResult struct {
	DocumentID string                   `json:"document_id"`
	Status     PipelineStatus           `json:"status"`
	Steps      map[StepName]*StepResult `json:"steps"`
	StartedAt  time.Time                `json:"started_at"`
	Duration   time.Duration            `json:"duration"`
}

// NewPipelineResult creates a result with every step pending.
func NewPipelineResult(documentID string) *PipelineResult {
	steps := make(map[StepName]*StepResult, len(AllSteps))
	for _, name := range AllSteps {
		steps[name] = &StepResult{Step: name, Status: StepPending}
	}
	return &PipelineResult{
		DocumentID: documentID,
		Status:     PipelineCompleted,
		Steps:      steps,
	}
}

// Step returns the result for a step.
func (r *PipelineResult) Step(name StepName) *StepResult {
	return r.Steps[name]
}

// FailAll marks every step failed with the same message.
func (r *PipelineResult) FailAll(msg string) {
	for _, name := range AllSteps {
		r.Steps[name].Status = StepFailed
		r.Steps[name].Payload = nil
		r.Steps[name].Error = msg
	}
	r.Status = PipelineFailed
}

// ExtractionPayload is the output of the extraction step.
type ExtractionPayload struct {
	Summary    string   `json:"summary"`
	Parties    []string `json:"parties"`
	Dates      []string `json:"dates"`
	Amounts    []string `json:"amounts"`
	KeyClauses []string `json:"key_clauses"`
}

// RiskFinding is a single issue surfaced by the risk step.
type RiskFinding struct {
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
}

// RiskPayload is the output of the risk step.
type RiskPayload struct {
	Level    RiskLevel     `json:"level"`
	Category RiskCategory  `json:"category"`
	Score    float64       `json:"score"`
	Findings []RiskFinding `json:"findings"`
}

// ComplianceIssue is a single gap surfaced by the compliance step.
type ComplianceIssue struct {
	Regulation  string `json:"regulation"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

// CompliancePayload is the output of the compliance step.
type CompliancePayload struct {
	Status      string            `json:"status"`
	Regulations []string          `json:"regulations"`
	Issues      []ComplianceIssue `json:"issues"`
}

// NegotiationPoint is a clause worth renegotiating.
type NegotiationPoint struct {
	Clause            string `json:"clause"`
	Priority          string `json:"priority"`
	SuggestedLanguage string `json:"suggested_language"`
	Rationale         string `json:"rationale"`
}

// NegotiationPayload is the output of the negotiation step.
type NegotiationPayload struct {
	Points   []NegotiationPoint `json:"points"`
	Strategy string             `json:"strategy"`
}

// ActionItem is a concrete follow-up task.
type ActionItem struct {
	Task  string `json:"task"`
	Owner string `json:"owner"`
	Due   string `json:"due"`
}

// ActionPayload is the output of the action step.
type ActionPayload struct {
	Items     []ActionItem `json:"items"`
	NextSteps []string     `json:"next_steps"`
}
