package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driving"
)

var (
	_ driving.IngestionService   = (*mockIngestionService)(nil)
	_ driving.RetrievalService   = (*mockRetrievalService)(nil)
	_ driving.Orchestrator       = (*mockOrchestrator)(nil)
	_ driving.ConsistencyService = (*mockConsistencyService)(nil)
	_ driving.RuleService        = (*mockRuleService)(nil)
	_ driving.Governor           = (*mockGovernor)(nil)
	_ driving.JobService         = (*mockJobService)(nil)
	_ driving.WebhookService     = (*mockWebhookService)(nil)
	_ driving.DocumentService    = (*mockDocumentService)(nil)
	_ driving.SettingsService    = (*mockSettingsService)(nil)
	_ driving.Scheduler          = (*mockScheduler)(nil)
)

var errMock = errors.New("mock failure")

var testTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

// testMocks gives tests access to the injected fakes.
type testMocks struct {
	ingestion   *mockIngestionService
	retrieval   *mockRetrievalService
	orch        *mockOrchestrator
	consistency *mockConsistencyService
	rules       *mockRuleService
	governor    *mockGovernor
	jobs        *mockJobService
	webhooks    *mockWebhookService
	documents   *mockDocumentService
	settings    *mockSettingsService
	scheduler   *mockScheduler
}

// setupTestServices injects fresh mocks and returns a cleanup func.
func setupTestServices() func() {
	cleanup, _ := setupTestMocks()
	return cleanup
}

func setupTestMocks() (func(), *testMocks) {
	parent := "doc-0"
	superseded := testTime.Add(time.Hour)
	docs := []domain.Document{
		{
			ID: "doc-0", Filename: "loan.pdf", RiskLevel: domain.RiskLevelWarning,
			VersionNumber: 1, SupersededAt: &superseded, CreatedAt: testTime, UpdatedAt: testTime,
		},
		{
			ID: "doc-1", Filename: "loan.pdf", RiskLevel: domain.RiskLevelCritical,
			RiskCategory: domain.RiskCategoryFinancial, VersionNumber: 2, ParentDocumentID: &parent,
			Recommendations: []string{"Verify collateral"}, CreatedAt: testTime, UpdatedAt: testTime,
		},
	}

	m := &testMocks{
		ingestion: &mockIngestionService{},
		retrieval: &mockRetrievalService{hits: []domain.RetrievalHit{{
			Chunk:      domain.Chunk{ID: "c1", DocumentID: "doc-1", Position: 3, Content: "Interest accrues monthly."},
			Similarity: 0.82, Confidence: 82, Tier: domain.TierVector,
		}}},
		orch: &mockOrchestrator{},
		consistency: &mockConsistencyService{report: &domain.ConsistencyReport{
			Score: 80,
			Flags: []domain.RiskFlag{{
				Code: "REVENUE_MISMATCH", Severity: domain.SeverityHigh,
				Message: "GST turnover exceeds declared income", Rule: "revenue",
			}},
			Metrics: map[string]float64{"revenue_pct_diff": 42.5},
		}},
		rules: &mockRuleService{rules: []domain.CustomRule{{
			ID: "velocity", Code: "HIGH_VELOCITY", Metric: "credit_velocity_ratio",
			Operator: domain.OperatorGreaterThan, Threshold: 3, Severity: domain.SeverityMedium, Enabled: true,
		}}},
		governor: &mockGovernor{
			quota:   42,
			allowed: map[string]bool{"IN": true},
			consents: []domain.ConsentRecord{{
				ConsentID: "consent-1", SubjectID: "subj-1", Purpose: "loan underwriting",
				DataTypes: []string{"bank", "gst"}, Timestamp: testTime,
			}},
		},
		jobs:      &mockJobService{jobs: map[string]*domain.AnalysisJob{}},
		webhooks: &mockWebhookService{subs: []domain.WebhookSubscription{{
			ID: "wh_0123456789abcdef", URL: "https://hooks.example/aegis", Events: domain.WebhookEvents(),
			Secret: "s3cret", Active: true, CreatedAt: testTime,
		}}},
		documents: &mockDocumentService{documents: docs, content: "Full document text"},
		settings:  &mockSettingsService{settings: domain.DefaultAppSettings()},
		scheduler: &mockScheduler{
			tasks: []domain.ScheduledTask{
				{
					ID: domain.TaskIDRetentionSweep, Name: "Retention Sweep", Interval: time.Hour, Enabled: true,
					LastRun: testTime, NextRun: testTime.Add(time.Hour), LastSuccess: testTime, Runs: 3,
				},
				{
					ID: domain.TaskIDRightsOverdue, Name: "Overdue Rights Requests", Interval: 24 * time.Hour,
					NextRun: testTime.Add(24 * time.Hour), LastError: "store locked", Runs: 1,
				},
			},
			runs: []domain.TaskRun{
				{
					TaskID: domain.TaskIDRetentionSweep, StartedAt: testTime, EndedAt: testTime.Add(time.Second),
					Success: true, Items: 5, Summary: "deleted 3 cached records and 2 loan applications",
				},
				{
					TaskID: domain.TaskIDRetentionSweep, StartedAt: testTime.Add(-time.Hour),
					EndedAt: testTime.Add(-time.Hour), Error: "store locked",
				},
			},
		},
	}

	SetServices(Services{
		Ingestion:    m.ingestion,
		Retrieval:    m.retrieval,
		Orchestrator: m.orch,
		Consistency:  m.consistency,
		Rules:        m.rules,
		Governor:     m.governor,
		Jobs:         m.jobs,
		Webhooks:     m.webhooks,
		Documents:    m.documents,
		Settings:     m.settings,
		Scheduler:    m.scheduler,
	})

	return func() { SetServices(Services{}) }, m
}

// execute runs the root command with args and returns combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), err
}

// resetFlags restores every flag in the tree to its default so package
// level flag variables do not leak between tests.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

type mockIngestionService struct {
	got  []driving.IngestRequest
	next int
	err  error
}

func (m *mockIngestionService) Ingest(_ context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	m.got = append(m.got, req)
	if m.err != nil {
		return nil, m.err
	}
	m.next++
	version := 1
	if req.ParentDocumentID != nil {
		version = 2
	}
	return &driving.IngestResult{
		Document: &domain.Document{
			ID: fmt.Sprintf("ingested-%d", m.next), Filename: req.Filename, OwnerID: req.OwnerID,
			RiskLevel: domain.RiskLevelNormal, RiskCategory: domain.RiskCategoryNone,
			RiskConfidence: 0.9, VersionNumber: version, ParentDocumentID: req.ParentDocumentID,
		},
		NumChunks: 4,
		Warnings:  []string{"page 2 used OCR"},
	}, nil
}

type mockRetrievalService struct {
	hits []domain.RetrievalHit
	err  error

	gotText string
	gotK    int
	gotDoc  string
}

func (m *mockRetrievalService) Retrieve(_ context.Context, _ domain.RetrieveQuery) ([]domain.RetrievalHit, error) {
	return m.hits, m.err
}

func (m *mockRetrievalService) RetrieveText(
	_ context.Context, text string, k int, documentID string,
) ([]domain.RetrievalHit, error) {
	m.gotText, m.gotK, m.gotDoc = text, k, documentID
	return m.hits, m.err
}

type mockOrchestrator struct {
	failed bool
	got    []string
}

func (m *mockOrchestrator) Run(_ context.Context, documentID string) *domain.PipelineResult {
	m.got = append(m.got, documentID)
	r := domain.NewPipelineResult(documentID)
	if m.failed {
		r.FailAll("document not found")
		return r
	}
	for _, name := range domain.AllSteps {
		r.Steps[name].Status = domain.StepCompleted
	}
	r.Steps[domain.StepRisk].Payload = domain.RiskPayload{
		Level: domain.RiskLevelWarning, Category: domain.RiskCategoryLegal, Score: 0.6,
		Findings: []domain.RiskFinding{{Title: "Unlimited liability", Severity: "high"}},
	}
	return r
}

type mockConsistencyService struct {
	report *domain.ConsistencyReport
	err    error
	got    domain.ConsistencyInput
}

func (m *mockConsistencyService) Evaluate(
	_ context.Context, input domain.ConsistencyInput,
) (*domain.ConsistencyReport, error) {
	m.got = input
	return m.report, m.err
}

type mockRuleService struct {
	rules    []domain.CustomRule
	added    []domain.CustomRule
	imported []byte
	enabled  map[string]bool
	removed  []string
	err      error
}

func (m *mockRuleService) Add(_ context.Context, rule domain.CustomRule) (*domain.CustomRule, error) {
	if m.err != nil {
		return nil, m.err
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	m.added = append(m.added, rule)
	return &rule, nil
}

func (m *mockRuleService) List(_ context.Context) ([]domain.CustomRule, error) {
	return m.rules, m.err
}

func (m *mockRuleService) SetEnabled(_ context.Context, id string, enabled bool) error {
	if m.enabled == nil {
		m.enabled = make(map[string]bool)
	}
	m.enabled[id] = enabled
	return m.err
}

func (m *mockRuleService) Remove(_ context.Context, id string) error {
	m.removed = append(m.removed, id)
	return m.err
}

func (m *mockRuleService) Import(_ context.Context, data []byte) ([]domain.CustomRule, error) {
	m.imported = data
	return m.rules, m.err
}

type mockGovernor struct {
	quota    int
	allowed  map[string]bool
	consents []domain.ConsentRecord
	requests []domain.RightsRequest
	err      error

	gotFetch   domain.FetchRequest
	gotRight   domain.RightType
	gotStatus  domain.RightsStatus
	gotMessage string
}

func (m *mockGovernor) Fetch(_ context.Context, req domain.FetchRequest) (*domain.FetchResult, error) {
	m.gotFetch = req
	if m.err != nil {
		return nil, m.err
	}
	return &domain.FetchResult{
		ConsentID: req.ConsentID,
		Success:   false,
		PerType: map[string]domain.FetchTypeResult{
			"bank": {Success: true, Data: []byte(`{"balance":1}`)},
			"gst":  {Success: false, Error: "provider timeout"},
		},
	}, nil
}

func (m *mockGovernor) Sweep(_ context.Context) (*domain.SweepReport, error) {
	return &domain.SweepReport{CachedDeleted: 3, ApplicationsDeleted: 1, RanAt: testTime}, m.err
}

func (m *mockGovernor) Consents(_ context.Context, _ string) ([]domain.ConsentRecord, error) {
	return m.consents, m.err
}

func (m *mockGovernor) TransferAllowed(countryCode string) bool { return m.allowed[countryCode] }

func (m *mockGovernor) RemainingQuota() int { return m.quota }

func (m *mockGovernor) OpenRightsRequest(
	_ context.Context, subjectID string, right domain.RightType,
) (*domain.RightsRequest, error) {
	m.gotRight = right
	if m.err != nil {
		return nil, m.err
	}
	if !right.IsValid() {
		return nil, domain.ErrInvalidInput
	}
	return domain.NewRightsRequest("req-1", subjectID, right, testTime), nil
}

func (m *mockGovernor) Advance(
	_ context.Context, id string, status domain.RightsStatus, message string,
) (*domain.RightsRequest, error) {
	m.gotStatus, m.gotMessage = status, message
	if m.err != nil {
		return nil, m.err
	}
	req := domain.NewRightsRequest(id, "subj-1", domain.RightAccess, testTime)
	req.Status = status
	return req, nil
}

func (m *mockGovernor) FulfilErasure(_ context.Context, id string) (*domain.RightsRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	req := domain.NewRightsRequest(id, "subj-1", domain.RightErasure, testTime)
	req.Status = domain.RightsCompleted
	return req, nil
}

func (m *mockGovernor) AccessReport(_ context.Context, id string) (*domain.AccessReport, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.AccessReport{RequestID: id, SubjectID: "subj-1", Consents: m.consents, Generated: testTime}, nil
}

func (m *mockGovernor) ListRightsRequests(_ context.Context) ([]domain.RightsRequest, error) {
	return m.requests, m.err
}

func (m *mockGovernor) ListOverdue(_ context.Context, now time.Time) ([]domain.RightsRequest, error) {
	var out []domain.RightsRequest
	for i := range m.requests {
		if m.requests[i].IsOverdue(now) {
			out = append(out, m.requests[i])
		}
	}
	return out, m.err
}

// mockJobService completes jobs as soon as the runner starts.
type mockJobService struct {
	jobs    map[string]*domain.AnalysisJob
	fail    bool
	started bool
	stopped bool
	err     error
}

func (m *mockJobService) Submit(_ context.Context, job *domain.AnalysisJob) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	job.ID = "job-1"
	job.Status = domain.JobPending
	job.CreatedAt = testTime
	m.jobs[job.ID] = job
	return job.ID, nil
}

func (m *mockJobService) Status(_ context.Context, id string) (*domain.AnalysisJob, error) {
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (m *mockJobService) Start(_ context.Context) error {
	m.started = true
	done := testTime.Add(time.Minute)
	for _, job := range m.jobs {
		job.Attempts = 1
		job.CompletedAt = &done
		if m.fail {
			job.Status = domain.JobFailed
			job.Error = "parse failed"
			continue
		}
		job.Status = domain.JobCompleted
		job.Result = &domain.AnalysisResult{
			DocumentID: "doc-9", Filename: job.Filename, RiskLevel: domain.RiskLevelNormal,
			RiskCategory: domain.RiskCategoryNone, RiskConfidence: 90, NumChunks: 2,
		}
	}
	return nil
}

func (m *mockJobService) Stop() error {
	m.stopped = true
	return nil
}

type mockWebhookService struct {
	subs      []domain.WebhookSubscription
	gotEvents []string
	gotSecret string
	err       error
}

func (m *mockWebhookService) Register(
	_ context.Context, url string, events []string, secret string,
) (*domain.WebhookSubscription, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.gotEvents = events
	m.gotSecret = secret
	if len(events) == 0 {
		events = domain.WebhookEvents()
	}
	sub := domain.WebhookSubscription{
		ID: fmt.Sprintf("wh_%016d", len(m.subs)+1), URL: url, Events: events,
		Secret: secret, Active: true, CreatedAt: testTime,
	}
	m.subs = append(m.subs, sub)
	return &sub, nil
}

func (m *mockWebhookService) Get(_ context.Context, id string) (*domain.WebhookSubscription, error) {
	for i := range m.subs {
		if m.subs[i].ID == id {
			return &m.subs[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockWebhookService) List(_ context.Context) ([]domain.WebhookSubscription, error) {
	return m.subs, m.err
}

func (m *mockWebhookService) Remove(_ context.Context, id string) error {
	for i := range m.subs {
		if m.subs[i].ID == id {
			m.subs = append(m.subs[:i], m.subs[i+1:]...)
			return nil
		}
	}
	return domain.ErrNotFound
}

type mockDocumentService struct {
	documents []domain.Document
	content   string
	deleted   []string
	gotOwner  string
	err       error
}

func (m *mockDocumentService) List(_ context.Context, ownerID string) ([]domain.Document, error) {
	m.gotOwner = ownerID
	return m.documents, m.err
}

func (m *mockDocumentService) find(id string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.documents {
		if m.documents[i].ID == id {
			return &m.documents[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) Get(_ context.Context, id string) (*domain.Document, error) {
	return m.find(id)
}

func (m *mockDocumentService) GetContent(_ context.Context, id string) (string, error) {
	if _, err := m.find(id); err != nil {
		return "", err
	}
	return m.content, nil
}

func (m *mockDocumentService) GetDetails(_ context.Context, id string) (*driving.DocumentDetails, error) {
	doc, err := m.find(id)
	if err != nil {
		return nil, err
	}
	return &driving.DocumentDetails{
		ID: doc.ID, Filename: doc.Filename, MIMEType: "application/pdf",
		RiskLevel: doc.RiskLevel, RiskCategory: doc.RiskCategory, RiskConfidence: 88,
		VersionNumber: doc.VersionNumber, Superseded: doc.IsSuperseded(), PageCount: 5, ChunkCount: 12,
		CreatedAt: doc.CreatedAt, UpdatedAt: doc.UpdatedAt,
		Metadata: map[string]string{"used_ocr": "false", "title": "Loan agreement"},
	}, nil
}

func (m *mockDocumentService) Versions(_ context.Context, id string) ([]domain.Document, error) {
	if _, err := m.find(id); err != nil {
		return nil, err
	}
	return m.documents, nil
}

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	if _, err := m.find(id); err != nil {
		return err
	}
	m.deleted = append(m.deleted, id)
	return nil
}

type mockSettingsService struct {
	settings domain.AppSettings
	policy   domain.ConfidencePolicy
	backend  domain.VectorBackend
	saved    *domain.AppSettings
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.saved = settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(_ domain.AIProvider, _, _ string) error { return nil }

func (m *mockSettingsService) SetLLMProvider(_ domain.AIProvider, _, _ string) error { return nil }

func (m *mockSettingsService) SetConfidencePolicy(policy domain.ConfidencePolicy) error {
	if !policy.IsValid() {
		return domain.ErrInvalidInput
	}
	m.policy = policy
	return nil
}

func (m *mockSettingsService) SetVectorBackend(backend domain.VectorBackend) error {
	if !backend.IsValid() {
		return domain.ErrInvalidInput
	}
	m.backend = backend
	return nil
}

func (m *mockSettingsService) Validate() error { return nil }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return nil }

func (m *mockSettingsService) ValidateLLMConfig() error { return nil }

type mockScheduler struct {
	started chan struct{}
	stopped bool
	tasks   []domain.ScheduledTask
	runs    []domain.TaskRun
	ran     []string
	limit   int
	failRun bool
}

func (m *mockScheduler) Start(ctx context.Context) error {
	if m.started != nil {
		close(m.started)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}

func (m *mockScheduler) Tasks(_ context.Context) ([]domain.ScheduledTask, error) {
	return m.tasks, nil
}

func (m *mockScheduler) known(id string) bool {
	return id == domain.TaskIDRetentionSweep || id == domain.TaskIDRightsOverdue
}

func (m *mockScheduler) History(_ context.Context, taskID string, limit int) ([]domain.TaskRun, error) {
	if !m.known(taskID) {
		return nil, domain.ErrNotFound
	}
	m.limit = limit
	var out []domain.TaskRun
	for _, r := range m.runs {
		if r.TaskID == taskID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockScheduler) RunNow(_ context.Context, taskID string) (*domain.TaskRun, error) {
	if !m.known(taskID) {
		return nil, domain.ErrNotFound
	}
	m.ran = append(m.ran, taskID)
	run := &domain.TaskRun{
		TaskID: taskID, StartedAt: testTime, EndedAt: testTime.Add(2 * time.Second),
		Success: true, Items: 2, Summary: "2 overdue: r1, r2",
	}
	if m.failRun {
		run.Success = false
		run.Error = "store locked"
	}
	return run, nil
}
