package driving

import (
	"context"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// IngestRequest describes an upload to ingest.
type IngestRequest struct {
	// OwnerID identifies the uploading user.
	OwnerID string

	// Filename is the uploaded file name.
	Filename string

	// MIMEType is the declared type. When empty it is detected from Filename.
	MIMEType string

	// Data holds the raw bytes.
	Data []byte

	// FolderID optionally groups the document.
	FolderID *string

	// ParentDocumentID makes the upload a new version of an existing document.
	ParentDocumentID *string
}

// IngestResult reports a completed ingestion.
type IngestResult struct {
	// Document is the stored document with its risk verdict applied.
	Document *domain.Document

	// NumChunks is the number of chunks indexed.
	NumChunks int

	// Warnings are non-fatal parser messages.
	Warnings []string
}

// IngestionService parses, classifies, chunks and indexes uploads.
type IngestionService interface {
	// Ingest runs the full ingestion path. Nothing is persisted on error.
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)
}
