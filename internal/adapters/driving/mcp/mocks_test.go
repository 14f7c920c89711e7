package mcp

import (
	"context"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driving"
)

var (
	_ driving.RetrievalService   = (*mockRetrievalService)(nil)
	_ driving.Orchestrator       = (*mockOrchestrator)(nil)
	_ driving.ConsistencyService = (*mockConsistencyService)(nil)
	_ driving.DocumentService    = (*mockDocumentService)(nil)
	_ driving.Governor           = (*mockGovernor)(nil)
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
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

// mockOrchestrator returns a fixed result.
type mockOrchestrator struct {
	result *domain.PipelineResult
}

func (m *mockOrchestrator) Run(_ context.Context, documentID string) *domain.PipelineResult {
	if m.result != nil {
		return m.result
	}
	return domain.NewPipelineResult(documentID)
}

// mockConsistencyService records its input.
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

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	content   string
	details   *driving.DocumentDetails
	err       error
}

func (m *mockDocumentService) List(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) GetContent(_ context.Context, _ string) (string, error) {
	return m.content, m.err
}

func (m *mockDocumentService) GetDetails(_ context.Context, _ string) (*driving.DocumentDetails, error) {
	return m.details, m.err
}

func (m *mockDocumentService) Versions(_ context.Context, _ string) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error {
	return m.err
}

// mockGovernor serves a fixed consent log.
type mockGovernor struct {
	consents map[string][]domain.ConsentRecord
	err      error
}

func (m *mockGovernor) Fetch(_ context.Context, _ domain.FetchRequest) (*domain.FetchResult, error) {
	return nil, m.err
}

func (m *mockGovernor) Sweep(_ context.Context) (*domain.SweepReport, error) {
	return &domain.SweepReport{}, m.err
}

func (m *mockGovernor) Consents(_ context.Context, subjectID string) ([]domain.ConsentRecord, error) {
	return m.consents[subjectID], m.err
}

func (m *mockGovernor) TransferAllowed(_ string) bool { return true }

func (m *mockGovernor) RemainingQuota() int { return 0 }

func (m *mockGovernor) OpenRightsRequest(
	_ context.Context, _ string, _ domain.RightType,
) (*domain.RightsRequest, error) {
	return nil, m.err
}

func (m *mockGovernor) Advance(
	_ context.Context, _ string, _ domain.RightsStatus, _ string,
) (*domain.RightsRequest, error) {
	return nil, m.err
}

func (m *mockGovernor) FulfilErasure(_ context.Context, _ string) (*domain.RightsRequest, error) {
	return nil, m.err
}

func (m *mockGovernor) AccessReport(_ context.Context, _ string) (*domain.AccessReport, error) {
	return nil, m.err
}

func (m *mockGovernor) ListRightsRequests(_ context.Context) ([]domain.RightsRequest, error) {
	return nil, m.err
}

func (m *mockGovernor) ListOverdue(_ context.Context, _ time.Time) ([]domain.RightsRequest, error) {
	return nil, m.err
}
