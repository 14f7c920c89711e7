package html

import (
	"bytes"
	"context"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles HTML documents. Body markup is converted to Markdown so
// headings and lists survive as sentence boundaries for the chunker.
type Parser struct {
	converter *md.Converter
}

// New creates a new HTML parser.
func New() *Parser {
	return &Parser{converter: md.NewConverter("", true, nil)}
}

// SupportedMIMETypes returns the MIME types this parser handles.
func (p *Parser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 50 // Generic MIME parser, higher than plaintext
}

// Parse extracts the title and readable body text.
func (p *Parser) Parse(_ context.Context, data []byte) (*domain.ParseResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, domain.NewParseError("text/html", err, "check that the file is well-formed HTML")
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	doc.Find("script, style, noscript, svg, head").Remove()

	var warnings []string
	body, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(body) == "" {
		body, _ = doc.Html()
	}

	text, err := p.converter.ConvertString(body)
	if err != nil {
		// Markdown conversion is best effort; fall back to flat text.
		warnings = append(warnings, "markdown conversion failed: "+err.Error())
		text = doc.Find("body").Text()
	}

	return &domain.ParseResult{
		Text:      cleanLines(text),
		PageCount: 1,
		Title:     title,
		Warnings:  warnings,
	}, nil
}

// cleanLines trims each line and drops blank runs.
func cleanLines(s string) string {
	lines := strings.Split(s, "\n")
	result := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return strings.Join(result, "\n")
}
