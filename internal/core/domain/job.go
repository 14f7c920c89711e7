package domain

import (
	"slices"
	"time"
)

// JobStatus is the lifecycle state of an analysis job.
type JobStatus string

// Job states.
const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Webhook event names.
const (
	EventAnalysisCompleted = "analysis.completed"
	EventAnalysisFailed    = "analysis.failed"
)

// WebhookEvents returns every event a subscription can select.
func WebhookEvents() []string {
	return []string{EventAnalysisCompleted, EventAnalysisFailed}
}

// AnalysisJob is a queued request to ingest and analyse a document.
type AnalysisJob struct {
	ID       string
	OwnerID  string
	Filename string
	MIMEType string

	// Content holds the uploaded bytes until the job finishes.
	Content []byte

	// WebhookURL receives completion or failure events, if set.
	WebhookURL string

	// WebhookSecret signs webhook payloads, if set.
	WebhookSecret string

	Status      JobStatus
	Attempts    int
	Result      *AnalysisResult
	Error       string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// AnalysisResult is the summary returned for a finished job.
type AnalysisResult struct {
	DocumentID      string          `json:"document_id"`
	Filename        string          `json:"filename"`
	RiskLevel       RiskLevel       `json:"risk_level"`
	RiskCategory    RiskCategory    `json:"risk_category"`
	RiskConfidence  int             `json:"risk_confidence"`
	RiskExplanation string          `json:"risk_explanation"`
	Recommendations []string        `json:"recommendations"`
	NumPages        int             `json:"num_pages"`
	NumChunks       int             `json:"num_chunks"`
	Pipeline        *PipelineResult `json:"pipeline,omitempty"`
}

// NewAnalysisResult summarises an ingested document and its pipeline run.
func NewAnalysisResult(doc *Document, numChunks int, pipeline *PipelineResult) *AnalysisResult {
	return &AnalysisResult{
		DocumentID:      doc.ID,
		Filename:        doc.Filename,
		RiskLevel:       doc.RiskLevel,
		RiskCategory:    doc.RiskCategory,
		RiskConfidence:  int(doc.RiskConfidence*100 + 0.5),
		RiskExplanation: doc.RiskExplanation,
		Recommendations: doc.Recommendations,
		NumPages:        doc.PageCount,
		NumChunks:       numChunks,
		Pipeline:        pipeline,
	}
}

// WebhookDelivery is a single event to post to a webhook endpoint.
type WebhookDelivery struct {
	URL    string
	Secret string
	Event  string
	Data   any
}

// WebhookSubscription is a standing endpoint notified for every job.
type WebhookSubscription struct {
	ID        string    `json:"webhook_id"`
	URL       string    `json:"url"`
	Events    []string  `json:"events"`
	Secret    string    `json:"-"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Wants reports whether an active subscription selected event.
func (w *WebhookSubscription) Wants(event string) bool {
	return w.Active && slices.Contains(w.Events, event)
}
