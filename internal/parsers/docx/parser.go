package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

const mimeType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// errNoDocumentPart is returned when the archive lacks word/document.xml.
var errNoDocumentPart = errors.New("word/document.xml missing")

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles DOCX documents.
type Parser struct{}

// New creates a new DOCX parser.
func New() *Parser {
	return &Parser{}
}

// SupportedMIMETypes returns the MIME types this parser handles.
func (p *Parser) SupportedMIMETypes() []string {
	return []string{mimeType}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 50 // Generic MIME parser
}

// Parse extracts paragraph text from word/document.xml.
func (p *Parser) Parse(_ context.Context, data []byte) (*domain.ParseResult, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, domain.NewParseError("docx", err,
			"the file is not a valid .docx archive",
			"re-save the document from Word or LibreOffice as .docx")
	}

	content, err := readPart(reader, "word/document.xml")
	if err != nil {
		return nil, domain.NewParseError("docx", err, "re-save the document as .docx")
	}

	text, err := parseDocumentXML(content)
	if err != nil {
		return nil, domain.NewParseError("docx", err, "the document body is corrupt; re-save the document")
	}

	result := &domain.ParseResult{
		Text:      text,
		PageCount: 1,
		Title:     extractTitle(reader),
	}
	if pages := extractPageCount(reader); pages > 0 {
		result.PageCount = pages
	}
	return result, nil
}

// readPart returns the bytes of a named archive member.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	if name == "word/document.xml" {
		return nil, errNoDocumentPart
	}
	return nil, fmt.Errorf("%s missing", name)
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// parseDocumentXML joins run text, one line per paragraph.
func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", err
	}

	var result strings.Builder
	for i, para := range doc.Body.Paragraphs {
		if i > 0 {
			result.WriteString("\n")
		}
		for _, r := range para.Runs {
			for _, text := range r.Text {
				result.WriteString(text.Content)
			}
		}
	}

	return strings.TrimSpace(result.String()), nil
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title string `xml:"title"`
}

// extractTitle reads the title from docProps/core.xml, if present.
func extractTitle(reader *zip.Reader) string {
	content, err := readPart(reader, "docProps/core.xml")
	if err != nil {
		return ""
	}
	var core coreXML
	if err := xml.Unmarshal(content, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}

// appXML represents the structure of docProps/app.xml.
type appXML struct {
	Pages int `xml:"Pages"`
}

// extractPageCount reads the page count Word stores in docProps/app.xml.
func extractPageCount(reader *zip.Reader) int {
	content, err := readPart(reader, "docProps/app.xml")
	if err != nil {
		return 0
	}
	var app appXML
	if err := xml.Unmarshal(content, &app); err != nil {
		return 0
	}
	return app.Pages
}
