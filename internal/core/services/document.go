package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService manages ingested documents and their versions.
type DocumentService struct {
	docStore driven.DocumentStore
	indexer  *Indexer
}

// NewDocumentService creates a new document service. indexer may be nil,
// in which case deletes leave the external vector index untouched.
func NewDocumentService(docStore driven.DocumentStore, indexer *Indexer) *DocumentService {
	return &DocumentService{docStore: docStore, indexer: indexer}
}

// List returns all documents for an owner, newest first.
func (s *DocumentService) List(ctx context.Context, ownerID string) ([]domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.ListDocuments(ctx, ownerID)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.GetDocument(ctx, documentID)
}

// GetContent returns the concatenated content of all chunks.
func (s *DocumentService) GetContent(ctx context.Context, documentID string) (string, error) {
	if s.docStore == nil {
		return "", domain.ErrNotImplemented
	}

	// Verify document exists
	if _, err := s.docStore.GetDocument(ctx, documentID); err != nil {
		return "", err
	}

	chunks, err := s.docStore.GetChunks(ctx, documentID)
	if err != nil {
		return "", err
	}
	sort.Slice(chunks, func(i, j int) bool {
		return chunks[i].Position < chunks[j].Position
	})

	var builder strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(chunk.Content)
	}
	return builder.String(), nil
}

// GetDetails returns metadata for display.
func (s *DocumentService) GetDetails(ctx context.Context, documentID string) (*driving.DocumentDetails, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}

	doc, err := s.docStore.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	chunkCount := 0
	if chunks, err := s.docStore.GetChunks(ctx, documentID); err == nil {
		chunkCount = len(chunks)
	}

	// Flatten metadata to string map
	metadata := make(map[string]string, len(doc.Metadata))
	for key, value := range doc.Metadata {
		metadata[key] = fmt.Sprintf("%v", value)
	}

	return &driving.DocumentDetails{
		ID:             doc.ID,
		Filename:       doc.Filename,
		MIMEType:       doc.MIMEType,
		RiskLevel:      doc.RiskLevel,
		RiskCategory:   doc.RiskCategory,
		RiskConfidence: int(doc.RiskConfidence*100 + 0.5),
		VersionNumber:  doc.VersionNumber,
		Superseded:     doc.IsSuperseded(),
		PageCount:      doc.PageCount,
		ChunkCount:     chunkCount,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
		Metadata:       metadata,
	}, nil
}

// Versions returns the version chain containing documentID, oldest first.
func (s *DocumentService) Versions(ctx context.Context, documentID string) ([]domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.ListVersions(ctx, documentID)
}

// Delete removes a document with its chunks and vectors.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	if s.docStore == nil {
		return domain.ErrNotImplemented
	}
	if err := s.docStore.DeleteDocument(ctx, documentID); err != nil {
		return err
	}
	if s.indexer != nil {
		s.indexer.Remove(ctx, documentID)
	}
	return nil
}
