package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Query      string `json:"query" jsonschema:"the text to find relevant passages for"`
	K          int    `json:"k,omitempty" jsonschema:"maximum number of passages to return (default 5)"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"restrict results to one document"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Hits  []HitOutput `json:"hits"`
	Count int         `json:"count"`
}

// HitOutput represents a single retrieved passage.
type HitOutput struct {
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Position   int     `json:"position"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	Confidence int     `json:"confidence"`
	Tier       string  `json:"tier"`
}

// AnalyzeInput is the input schema for the analyze_document tool.
type AnalyzeInput struct {
	DocumentID string `json:"document_id" jsonschema:"the ingested document to analyse"`
}

// AnalyzeOutput is the output schema for the analyze_document tool.
type AnalyzeOutput struct {
	DocumentID string       `json:"document_id"`
	Status     string       `json:"status"`
	Steps      []StepOutput `json:"steps"`
	DurationMS int64        `json:"duration_ms"`
}

// StepOutput is the outcome of one analysis step.
type StepOutput struct {
	Step       string `json:"step"`
	Status     string `json:"status"`
	Payload    any    `json:"payload,omitempty"`
	Error      string `json:"error,omitempty"`
	Defaulted  bool   `json:"defaulted,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

// ConsistencyInput is the input schema for the evaluate_consistency tool.
// Documents follows the gst_returns, income_records, bank_statements and
// identities layout accepted by the consistency command.
type ConsistencyInput struct {
	Documents map[string]any `json:"documents" jsonschema:"gst_returns, income_records, bank_statements and identities for one applicant"`
}

// ConsistencyOutput is the output schema for the evaluate_consistency tool.
type ConsistencyOutput struct {
	Score   int                `json:"score"`
	Flags   []domain.RiskFlag  `json:"flags"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Find the passages of ingested documents most relevant to a query",
	}, s.handleRetrieve)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "analyze_document",
		Description: "Run extraction, risk, compliance, negotiation and action analysis on a document",
	}, s.handleAnalyze)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "evaluate_consistency",
		Description: "Cross-check an applicant's financial documents and return risk flags and a score",
	}, s.handleConsistency)
}

// handleRetrieve handles the retrieve tool invocation.
func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	hits, err := s.ports.Retrieval.RetrieveText(ctx, input.Query, input.K, input.DocumentID)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Hits:  make([]HitOutput, len(hits)),
		Count: len(hits),
	}
	for i := range hits {
		output.Hits[i] = HitOutput{
			DocumentID: hits[i].Chunk.DocumentID,
			ChunkID:    hits[i].Chunk.ID,
			Position:   hits[i].Chunk.Position,
			Content:    hits[i].Chunk.Content,
			Similarity: hits[i].Similarity,
			Confidence: hits[i].Confidence,
			Tier:       string(hits[i].Tier),
		}
	}

	return nil, output, nil
}

// handleAnalyze handles the analyze_document tool invocation.
// A failed run is still returned; its status and step errors describe what went wrong.
func (s *Server) handleAnalyze(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnalyzeInput,
) (*mcp.CallToolResult, AnalyzeOutput, error) {
	if s.ports.Orchestrator == nil {
		return nil, AnalyzeOutput{}, fmt.Errorf("analyze_document: %w", errUnavailable)
	}
	if input.DocumentID == "" {
		return nil, AnalyzeOutput{}, fmt.Errorf("analyze_document: %w: document_id is required", domain.ErrInvalidInput)
	}

	result := s.ports.Orchestrator.Run(ctx, input.DocumentID)
	output := AnalyzeOutput{
		DocumentID: result.DocumentID,
		Status:     string(result.Status),
		Steps:      make([]StepOutput, 0, len(domain.AllSteps)),
		DurationMS: result.Duration.Milliseconds(),
	}
	for _, name := range domain.AllSteps {
		step := result.Step(name)
		if step == nil {
			continue
		}
		output.Steps = append(output.Steps, StepOutput{
			Step:       string(step.Step),
			Status:     string(step.Status),
			Payload:    step.Payload,
			Error:      step.Error,
			Defaulted:  step.Defaulted,
			DurationMS: step.Duration.Milliseconds(),
		})
	}
	return nil, output, nil
}

// handleConsistency handles the evaluate_consistency tool invocation.
func (s *Server) handleConsistency(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ConsistencyInput,
) (*mcp.CallToolResult, ConsistencyOutput, error) {
	if s.ports.Consistency == nil {
		return nil, ConsistencyOutput{}, fmt.Errorf("evaluate_consistency: %w", errUnavailable)
	}

	docs, err := decodeConsistencyInput(input.Documents)
	if err != nil {
		return nil, ConsistencyOutput{}, err
	}

	report, err := s.ports.Consistency.Evaluate(ctx, docs)
	if err != nil {
		return nil, ConsistencyOutput{}, err
	}
	flags := report.Flags
	if flags == nil {
		flags = []domain.RiskFlag{}
	}
	return nil, ConsistencyOutput{Score: report.Score, Flags: flags, Metrics: report.Metrics}, nil
}

// decodeConsistencyInput round-trips the loosely typed tool argument through JSON.
func decodeConsistencyInput(raw map[string]any) (domain.ConsistencyInput, error) {
	var docs domain.ConsistencyInput
	data, err := json.Marshal(raw)
	if err != nil {
		return docs, fmt.Errorf("evaluate_consistency: %w: %w", domain.ErrInvalidInput, err)
	}
	if err := json.Unmarshal(data, &docs); err != nil {
		return docs, fmt.Errorf("evaluate_consistency: %w: %w", domain.ErrInvalidInput, err)
	}
	return docs, nil
}
