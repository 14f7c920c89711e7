package driving

import (
	"context"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// Orchestrator runs the five-step analysis graph over a document.
type Orchestrator interface {
	// Run always returns a result covering all five steps. It never returns an error;
	// failures are reported per step and in the overall status.
	Run(ctx context.Context, documentID string) *domain.PipelineResult
}
