package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	if ports.Retrieval == nil {
		ports.Retrieval = &mockRetrievalService{}
	}
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}

func TestServer_handleRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns retrieval hits", func(t *testing.T) {
		retrieval := &mockRetrievalService{
			hits: []domain.RetrievalHit{{
				Chunk: domain.Chunk{
					ID:         "chunk-1",
					DocumentID: "doc-1",
					Position:   3,
					Content:    "The lessee shall indemnify",
				},
				Similarity: 0.82,
				Confidence: 82,
				Tier:       domain.TierVector,
			}},
		}
		server := newTestServer(t, &Ports{Retrieval: retrieval})

		_, output, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "indemnity", K: 3, DocumentID: "doc-1"})

		require.NoError(t, err)
		assert.Equal(t, "indemnity", retrieval.gotText)
		assert.Equal(t, 3, retrieval.gotK)
		assert.Equal(t, "doc-1", retrieval.gotDoc)

		require.Equal(t, 1, output.Count)
		hit := output.Hits[0]
		assert.Equal(t, "doc-1", hit.DocumentID)
		assert.Equal(t, "chunk-1", hit.ChunkID)
		assert.Equal(t, 3, hit.Position)
		assert.Equal(t, 82, hit.Confidence)
		assert.Equal(t, string(domain.TierVector), hit.Tier)
	})

	t.Run("returns error on retrieval failure", func(t *testing.T) {
		server := newTestServer(t, &Ports{Retrieval: &mockRetrievalService{err: errors.New("index down")}})

		_, _, err := server.handleRetrieve(ctx, nil, RetrieveInput{Query: "x"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "index down")
	})
}

func TestServer_handleAnalyze(t *testing.T) {
	ctx := context.Background()

	t.Run("orders steps and flattens durations", func(t *testing.T) {
		result := domain.NewPipelineResult("doc-1")
		result.Status = domain.PipelinePartial
		result.Duration = 1500 * time.Millisecond
		for _, name := range domain.AllSteps {
			result.Steps[name].Status = domain.StepCompleted
		}
		result.Steps[domain.StepRisk].Status = domain.StepFailed
		result.Steps[domain.StepRisk].Error = "model timeout"

		server := newTestServer(t, &Ports{Orchestrator: &mockOrchestrator{result: result}})

		_, output, err := server.handleAnalyze(ctx, nil, AnalyzeInput{DocumentID: "doc-1"})

		require.NoError(t, err)
		assert.Equal(t, "doc-1", output.DocumentID)
		assert.Equal(t, string(domain.PipelinePartial), output.Status)
		assert.EqualValues(t, 1500, output.DurationMS)
		require.Len(t, output.Steps, len(domain.AllSteps))
		assert.Equal(t, string(domain.StepExtraction), output.Steps[0].Step)
		assert.Equal(t, "model timeout", output.Steps[1].Error)
	})

	t.Run("requires document id", func(t *testing.T) {
		server := newTestServer(t, &Ports{Orchestrator: &mockOrchestrator{}})
		_, _, err := server.handleAnalyze(ctx, nil, AnalyzeInput{})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unavailable without orchestrator", func(t *testing.T) {
		server := newTestServer(t, &Ports{})
		_, _, err := server.handleAnalyze(ctx, nil, AnalyzeInput{DocumentID: "doc-1"})
		assert.ErrorIs(t, err, errUnavailable)
	})
}

func TestServer_handleConsistency(t *testing.T) {
	ctx := context.Background()

	t.Run("decodes documents and returns report", func(t *testing.T) {
		consistency := &mockConsistencyService{
			report: &domain.ConsistencyReport{
				Score: 85,
				Flags: []domain.RiskFlag{{Code: "GST_ITR_MISMATCH", Severity: domain.SeverityHigh}},
			},
		}
		server := newTestServer(t, &Ports{Consistency: consistency})

		input := ConsistencyInput{Documents: map[string]any{
			"gst_returns": []any{
				map[string]any{"type": "GSTR-3B", "period": "2024-04", "taxable_value": 100000.0},
			},
			"income_records": []any{
				map[string]any{"type": "ITR", "assessment_year": "2024-25", "gross_receipts": 50000.0},
			},
		}}
		_, output, err := server.handleConsistency(ctx, nil, input)

		require.NoError(t, err)
		require.Len(t, consistency.got.GSTReturns, 1)
		assert.InDelta(t, 100000.0, consistency.got.GSTReturns[0].TaxableValue, 0.001)
		assert.Equal(t, domain.IncomeRecordITR, consistency.got.IncomeRecords[0].Type)
		assert.Equal(t, 85, output.Score)
		assert.Equal(t, "GST_ITR_MISMATCH", output.Flags[0].Code)
	})

	t.Run("empty report has empty flags", func(t *testing.T) {
		server := newTestServer(t, &Ports{Consistency: &mockConsistencyService{report: &domain.ConsistencyReport{Score: 100}}})
		_, output, err := server.handleConsistency(ctx, nil, ConsistencyInput{})
		require.NoError(t, err)
		assert.NotNil(t, output.Flags)
		assert.Equal(t, 100, output.Score)
	})

	t.Run("malformed documents are invalid input", func(t *testing.T) {
		server := newTestServer(t, &Ports{Consistency: &mockConsistencyService{}})
		input := ConsistencyInput{Documents: map[string]any{"gst_returns": "not a list"}}
		_, _, err := server.handleConsistency(ctx, nil, input)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unavailable without service", func(t *testing.T) {
		server := newTestServer(t, &Ports{})
		_, _, err := server.handleConsistency(ctx, nil, ConsistencyInput{})
		assert.ErrorIs(t, err, errUnavailable)
	})
}
