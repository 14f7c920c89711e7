package driving

import (
	"context"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// RetrievalService ranks indexed chunks for a query.
type RetrievalService interface {
	// Retrieve runs the vector tier, then the fallback tier when needed.
	Retrieve(ctx context.Context, query domain.RetrieveQuery) ([]domain.RetrievalHit, error)

	// RetrieveText embeds text when possible and retrieves with it.
	RetrieveText(ctx context.Context, text string, k int, documentID string) ([]domain.RetrievalHit, error)
}
