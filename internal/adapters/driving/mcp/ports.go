package mcp

import (
	"github.com/custodia-labs/aegis/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval ranks indexed chunks.
	Retrieval driving.RetrievalService

	// Orchestrator runs the analysis graph.
	Orchestrator driving.Orchestrator

	// Consistency scores structured lending documents.
	Consistency driving.ConsistencyService

	// Document reads ingested documents.
	Document driving.DocumentService

	// Governor exposes the consent log.
	Governor driving.Governor
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	// The remaining ports are optional; their tools and resources report unavailability.
	return nil
}
