package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles plain text documents.
type Parser struct{}

// New creates a new plain text parser.
func New() *Parser {
	return &Parser{}
}

// SupportedMIMETypes returns the MIME types this parser handles.
func (p *Parser) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/markdown",
		"text/csv",
		"text/yaml",
		"application/json",
		"application/xml",
	}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 5 // Fallback parser
}

// Parse returns the bytes as text. Invalid UTF-8 is rejected.
func (p *Parser) Parse(_ context.Context, data []byte) (*domain.ParseResult, error) {
	if !utf8.Valid(data) {
		return nil, domain.NewParseError("text/plain", domain.ErrInvalidInput,
			"save the file with UTF-8 encoding",
			"upload binary formats with their own extension (.pdf, .docx)")
	}

	text := strings.TrimPrefix(string(data), "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	return &domain.ParseResult{
		Text:      text,
		PageCount: 1,
		Title:     firstLine(text),
	}, nil
}

// firstLine returns the first non-empty line if it is short enough to be a title.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "# "))
		if line == "" {
			continue
		}
		if len(line) > 200 {
			return ""
		}
		return line
	}
	return ""
}
