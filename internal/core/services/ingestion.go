package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/core/ports/driving"
	"github.com/custodia-labs/aegis/internal/logger"
)

// Verify interface compliance.
var _ driving.IngestionService = (*IngestionService)(nil)

// IngestionService turns an upload into a classified, chunked and indexed document.
type IngestionService struct {
	parsers    driven.ParserRegistry
	classifier *Classifier
	pipeline   driven.PostProcessorPipeline
	indexer    *Indexer
	docStore   driven.DocumentStore
	now        func() time.Time
}

// NewIngestionService creates an ingestion service. classifier may be nil,
// in which case every document gets the default verdict.
func NewIngestionService(
	parsers driven.ParserRegistry,
	classifier *Classifier,
	pipeline driven.PostProcessorPipeline,
	indexer *Indexer,
	docStore driven.DocumentStore,
) *IngestionService {
	return &IngestionService{
		parsers:    parsers,
		classifier: classifier,
		pipeline:   pipeline,
		indexer:    indexer,
		docStore:   docStore,
		now:        time.Now,
	}
}

// Ingest parses, classifies, chunks and indexes an upload, then stores
// the document. On error nothing new is persisted.
func (s *IngestionService) Ingest(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	logger.Section("Ingest " + req.Filename)

	if len(req.Data) == 0 {
		return nil, domain.ErrEmptyInput
	}
	if strings.TrimSpace(req.Filename) == "" {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}

	var parent *domain.Document
	if req.ParentDocumentID != nil {
		p, err := s.docStore.GetDocument(ctx, *req.ParentDocumentID)
		if err != nil {
			return nil, fmt.Errorf("parent document %s: %w", *req.ParentDocumentID, err)
		}
		if p.IsSuperseded() {
			return nil, fmt.Errorf("%w: document %s already has a newer version", domain.ErrInvalidInput, p.ID)
		}
		parent = p
	}

	declared := req.MIMEType
	if declared == "" {
		declared = filepath.Ext(req.Filename)
	}
	parsed, err := s.parsers.Parse(ctx, req.Data, declared)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", req.Filename, err)
	}
	text := domain.SanitizeText(parsed.Text)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("parse %s: %w", req.Filename, domain.ErrNoExtractableText)
	}
	logger.Debug("parsed %d pages, %d characters", parsed.PageCount, len(text))

	now := s.now()
	doc := &domain.Document{
		ID:            uuid.New().String(),
		OwnerID:       req.OwnerID,
		Filename:      req.Filename,
		MIMEType:      declared,
		Content:       text,
		PageCount:     parsed.PageCount,
		VersionNumber: 1,
		FolderID:      req.FolderID,
		Metadata:      map[string]any{"used_ocr": parsed.UsedOCR},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if parsed.Title != "" {
		doc.Metadata["title"] = parsed.Title
	}
	if parent != nil {
		doc.VersionNumber = parent.VersionNumber + 1
		doc.ParentDocumentID = &parent.ID
		if doc.OwnerID == "" {
			doc.OwnerID = parent.OwnerID
		}
		if doc.FolderID == nil {
			doc.FolderID = parent.FolderID
		}
	}

	verdict := s.classifier.Classify(ctx, text)
	verdict.Apply(doc)
	if verdict.Defaulted {
		doc.Metadata["risk_defaulted"] = true
	}

	chunks, err := s.pipeline.Process(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", req.Filename, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("chunk %s: %w", req.Filename, domain.ErrNoExtractableText)
	}

	prepared, err := s.indexer.Prepare(ctx, doc.ID, chunks)
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", req.Filename, err)
	}
	if err := s.docStore.SaveDocumentWithChunks(ctx, doc, prepared); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	s.indexer.Publish(ctx, doc.ID, prepared)

	result := &driving.IngestResult{Document: doc, NumChunks: len(chunks), Warnings: parsed.Warnings}

	if parent != nil {
		parent.SupersededAt = &now
		parent.UpdatedAt = now
		if err := s.docStore.SaveDocument(ctx, parent); err != nil {
			logger.Warn("mark %s superseded: %v", parent.ID, err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("previous version not marked superseded: %v", err))
		}
	}

	logger.Info("ingested %s as %s (v%d, %d chunks, %s/%s)",
		doc.Filename, doc.ID, doc.VersionNumber, len(chunks), doc.RiskLevel, doc.RiskCategory)
	return result, nil
}
