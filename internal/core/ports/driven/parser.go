package driven

import (
	"context"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// Parser extracts plain text from uploaded bytes.
// Each parser handles specific MIME types (e.g., PDF, DOCX).
type Parser interface {
	// SupportedMIMETypes returns the MIME types this parser handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific parsers should return 50-89.
	// Fallback parsers should return 1-9.
	Priority() int

	// Parse extracts text from data. Corrupt input yields a *domain.ParseError.
	Parse(ctx context.Context, data []byte) (*domain.ParseResult, error)
}

// ParserRegistry selects the appropriate parser for a declared type.
type ParserRegistry interface {
	// Parse extracts text using the best matching parser.
	// declaredType may be a MIME type or a file extension.
	Parse(ctx context.Context, data []byte, declaredType string) (*domain.ParseResult, error)

	// Register adds a parser to the registry.
	Register(parser Parser)

	// SupportedMIMETypes returns all MIME types that can be parsed.
	SupportedMIMETypes() []string
}

// CommandRunner executes an external binary such as pdftotext or tesseract.
type CommandRunner interface {
	// Run executes name with args, writing stdin to the process when non-nil,
	// and returns its standard output.
	Run(ctx context.Context, stdin []byte, name string, args ...string) ([]byte, error)
}
