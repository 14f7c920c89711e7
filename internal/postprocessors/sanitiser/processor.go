// Package sanitiser strips control characters from document text before chunking.
package sanitiser

import (
	"context"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// Processor cleans the document content in place and any chunks it is given.
type Processor struct{}

// New creates a sanitiser processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "sanitiser"
}

// Process removes control characters other than newline and tab.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	doc.Content = domain.SanitizeText(doc.Content)
	for i := range chunks {
		chunks[i].Content = domain.SanitizeText(chunks[i].Content)
	}
	return chunks, nil
}
