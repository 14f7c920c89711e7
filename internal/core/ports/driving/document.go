package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// DocumentService manages ingested documents and their version chains.
type DocumentService interface {
	// List returns all documents for an owner. An empty owner lists all.
	List(ctx context.Context, ownerID string) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// GetContent returns the concatenated content of all chunks.
	GetContent(ctx context.Context, documentID string) (string, error)

	// GetDetails returns metadata for display.
	GetDetails(ctx context.Context, documentID string) (*DocumentDetails, error)

	// Versions returns the version chain containing documentID, oldest first.
	Versions(ctx context.Context, documentID string) ([]domain.Document, error)

	// Delete removes a document, its chunks and its vectors.
	Delete(ctx context.Context, documentID string) error
}

// DocumentDetails provides a standardised view of document metadata.
type DocumentDetails struct {
	// ID is the unique document identifier.
	ID string

	// Filename is the uploaded file name.
	Filename string

	// MIMEType is the detected content type.
	MIMEType string

	// RiskLevel is the classifier verdict.
	RiskLevel domain.RiskLevel

	// RiskCategory is the classifier category.
	RiskCategory domain.RiskCategory

	// RiskConfidence is the verdict confidence as a percentage.
	RiskConfidence int

	// VersionNumber is the position in the version chain.
	VersionNumber int

	// Superseded is true when a newer version exists.
	Superseded bool

	// PageCount is the number of pages reported by the parser.
	PageCount int

	// ChunkCount is the number of chunks.
	ChunkCount int

	// CreatedAt is when the document was first indexed.
	CreatedAt time.Time

	// UpdatedAt is when the document was last updated.
	UpdatedAt time.Time

	// Metadata contains flattened key-value pairs for display.
	Metadata map[string]string
}
