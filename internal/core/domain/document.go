package domain

import (
	"strings"
	"time"
	"unicode"
)

// RiskLevel is the coarse risk verdict assigned to a document.
type RiskLevel string

// Risk levels, most severe first.
const (
	RiskLevelCritical RiskLevel = "Critical"
	RiskLevelWarning  RiskLevel = "Warning"
	RiskLevelNormal   RiskLevel = "Normal"
)

// IsValid returns true if the risk level is recognised.
func (l RiskLevel) IsValid() bool {
	switch l {
	case RiskLevelCritical, RiskLevelWarning, RiskLevelNormal:
		return true
	default:
		return false
	}
}

// RiskCategory names the area a document's risk belongs to.
type RiskCategory string

// Risk categories.
const (
	RiskCategoryLegal       RiskCategory = "Legal"
	RiskCategoryFinancial   RiskCategory = "Financial"
	RiskCategoryCompliance  RiskCategory = "Compliance"
	RiskCategoryOperational RiskCategory = "Operational"
	RiskCategoryNone        RiskCategory = "None"
)

// IsValid returns true if the risk category is recognised.
func (c RiskCategory) IsValid() bool {
	switch c {
	case RiskCategoryLegal, RiskCategoryFinancial, RiskCategoryCompliance,
		RiskCategoryOperational, RiskCategoryNone:
		return true
	default:
		return false
	}
}

// Document represents an uploaded and indexed document.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// OwnerID identifies the user or tenant that uploaded the document.
	OwnerID string

	// Filename is the name the document was uploaded with.
	Filename string

	// MIMEType is the declared content type used to select a parser.
	MIMEType string

	// Content is the full extracted text before chunking.
	Content string

	// PageCount is the number of pages reported by the parser.
	PageCount int

	// RiskLevel is set once by the classifier.
	RiskLevel RiskLevel

	// RiskCategory is set once by the classifier.
	RiskCategory RiskCategory

	// RiskConfidence is the classifier's confidence in [0,1].
	RiskConfidence float64

	// RiskExplanation is a short rationale for the verdict.
	RiskExplanation string

	// Recommendations are follow-up suggestions from the classifier.
	Recommendations []string

	// VersionNumber starts at 1 and increments along a version chain.
	VersionNumber int

	// ParentDocumentID links to the previous version, if any.
	ParentDocumentID *string

	// FolderID groups documents for display.
	FolderID *string

	// SupersededAt is set when a newer version replaces this document.
	// Superseded documents are kept, never deleted.
	SupersededAt *time.Time

	// Metadata contains arbitrary key-value pairs.
	Metadata map[string]any

	// CreatedAt is when the document was uploaded.
	CreatedAt time.Time

	// UpdatedAt is when the document was last modified.
	UpdatedAt time.Time
}

// IsSuperseded reports whether a newer version replaced this document.
func (d *Document) IsSuperseded() bool {
	return d.SupersededAt != nil
}

// Chunk is an overlapping slice of a document's text.
// Chunks are created in one batch per document and removed only
// when their document is deleted.
type Chunk struct {
	// ID is the unique identifier for the chunk.
	ID string

	// DocumentID links to the parent Document.
	DocumentID string

	// Content is the text content of this chunk.
	Content string

	// Position is the ordinal within the document, dense from 0.
	Position int

	// Embedding is the vector representation. Nil until indexed.
	Embedding []float32

	// Metadata holds offset and page information.
	Metadata map[string]any

	// CreatedAt is when the chunk was stored.
	CreatedAt time.Time
}

// HasEmbedding reports whether the chunk carries a vector.
func (c *Chunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ParseResult is the output of a Parser.
type ParseResult struct {
	// Text is the extracted document text.
	Text string

	// PageCount is the number of pages, or 1 for unpaginated formats.
	PageCount int

	// Title is a best-effort document title.
	Title string

	// Warnings are non-fatal issues hit during extraction.
	Warnings []string

	// UsedOCR is true when text came from optical recognition.
	UsedOCR bool
}

// RiskVerdict is the classifier's output for a document.
type RiskVerdict struct {
	Level           RiskLevel
	Category        RiskCategory
	Confidence      float64
	Explanation     string
	Recommendations []string

	// Defaulted is true when the conservative fallback was used.
	Defaulted bool
}

// DefaultRiskVerdict is substituted when classification is unavailable.
// It errs on the side of review.
func DefaultRiskVerdict() RiskVerdict {
	return RiskVerdict{
		Level:           RiskLevelWarning,
		Category:        RiskCategoryCompliance,
		Confidence:      0.5,
		Explanation:     "automatic classification unavailable; manual review recommended",
		Recommendations: []string{"Review the document manually before relying on it."},
		Defaulted:       true,
	}
}

// Apply copies the verdict onto a document.
func (v RiskVerdict) Apply(doc *Document) {
	doc.RiskLevel = v.Level
	doc.RiskCategory = v.Category
	doc.RiskConfidence = v.Confidence
	doc.RiskExplanation = v.Explanation
	doc.Recommendations = v.Recommendations
}

// SanitizeText drops invalid UTF-8 and control characters other than
// newline and tab.
func SanitizeText(s string) string {
	s = strings.ToValidUTF8(s, "")
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
}
