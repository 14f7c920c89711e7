package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/logger"
)

// DefaultOCRTimeout bounds the whole OCR fallback for one document.
const DefaultOCRTimeout = 2 * time.Minute

// ErrPDFToolNotFound indicates pdftotext is not installed.
var ErrPDFToolNotFound = errors.New("pdftotext not found: install poppler-utils")

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser extracts text from PDFs with poppler's pdftotext and falls back
// to tesseract OCR for scanned documents.
type Parser struct {
	runner     driven.CommandRunner
	ocrTimeout time.Duration
	ocrEnabled bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithOCRTimeout bounds the OCR fallback.
func WithOCRTimeout(d time.Duration) Option {
	return func(p *Parser) {
		if d > 0 {
			p.ocrTimeout = d
		}
	}
}

// WithoutOCR disables the OCR fallback.
func WithoutOCR() Option {
	return func(p *Parser) {
		p.ocrEnabled = false
	}
}

// New creates a PDF parser using runner for external tools.
func New(runner driven.CommandRunner, opts ...Option) *Parser {
	p := &Parser{
		runner:     runner,
		ocrTimeout: DefaultOCRTimeout,
		ocrEnabled: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SupportedMIMETypes returns the MIME types this parser handles.
func (p *Parser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (p *Parser) Priority() int {
	return 50
}

// Parse extracts text, falling back to OCR once when the text layer is empty.
func (p *Parser) Parse(ctx context.Context, data []byte) (*domain.ParseResult, error) {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return nil, domain.NewParseError("pdf", errors.New("missing %PDF header"),
			"the file is not a PDF", "export the document to PDF again and re-upload")
	}

	out, err := p.runner.Run(ctx, data, "pdftotext", "-layout", "-enc", "UTF-8", "-", "-")
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrPDFToolNotFound, err)
		}
		return nil, domain.NewParseError("pdf", fmt.Errorf("pdftotext failed: %w", err),
			"the PDF may be encrypted or damaged", "remove password protection and re-upload")
	}

	text, pages := splitPages(string(out))
	result := &domain.ParseResult{
		Text:      text,
		PageCount: pages,
		Title:     extractTitle(text),
	}
	if strings.TrimSpace(text) != "" {
		return result, nil
	}

	if result.PageCount == 0 {
		result.PageCount = p.pageCount(ctx, data)
	}
	if result.PageCount == 0 || !p.ocrEnabled {
		return nil, domain.ErrNoExtractableText
	}

	logger.Debug("pdf: no text layer on %d pages, running OCR", result.PageCount)
	ocrText, err := p.ocr(ctx, data)
	if err != nil {
		logger.Warn("pdf: OCR failed: %v", err)
		return nil, fmt.Errorf("%w: OCR failed: %w", domain.ErrNoExtractableText, err)
	}
	if strings.TrimSpace(ocrText) == "" {
		return nil, domain.ErrNoExtractableText
	}

	result.Text = ocrText
	result.Title = extractTitle(ocrText)
	result.UsedOCR = true
	result.Warnings = append(result.Warnings, "text recovered with OCR; accuracy may vary")
	return result, nil
}

// splitPages trims the form feeds pdftotext emits after each page and
// returns the page count they imply.
func splitPages(out string) (string, int) {
	if out == "" {
		return "", 0
	}
	pages := strings.Count(out, "\f")
	text := strings.TrimRight(out, "\f\n ")
	if pages == 0 && strings.TrimSpace(text) != "" {
		pages = 1
	}
	text = strings.ReplaceAll(text, "\f", "\n\n")
	return text, pages
}

var pagesLine = regexp.MustCompile(`(?m)^Pages:\s+(\d+)`)

// pageCount asks pdfinfo for the page count. Zero means unknown.
func (p *Parser) pageCount(ctx context.Context, data []byte) int {
	out, err := p.runner.Run(ctx, data, "pdfinfo", "-")
	if err != nil {
		return 0
	}
	m := pagesLine.FindSubmatch(out)
	if m == nil {
		return 0
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0
	}
	return n
}

// ocr rasterises every page with pdftoppm and recognises each image with tesseract.
func (p *Parser) ocr(ctx context.Context, data []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.ocrTimeout)
	defer cancel()

	dir, err := os.MkdirTemp("", "aegis-ocr-*")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, data, 0o600); err != nil {
		return "", err
	}

	prefix := filepath.Join(dir, "page")
	if _, err := p.runner.Run(ctx, nil, "pdftoppm", "-r", "300", "-png", input, prefix); err != nil {
		return "", err
	}

	images, err := filepath.Glob(prefix + "*.png")
	if err != nil {
		return "", err
	}
	sort.Strings(images)

	var sb strings.Builder
	for i, img := range images {
		out, err := p.runner.Run(ctx, nil, "tesseract", img, "stdout")
		if err != nil {
			return "", err
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.Write(bytes.TrimSpace(out))
	}
	return sb.String(), nil
}

// extractTitle returns the first non-empty short line.
func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || len(line) > 200 {
			continue
		}
		return line
	}
	return ""
}

// CheckAvailable reports whether pdftotext is on PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// InstallInstructions returns how to install the PDF tools.
func InstallInstructions() string {
	return `PDF support requires pdftotext (poppler). OCR additionally requires tesseract.
  macOS:  brew install poppler tesseract
  Debian: apt install poppler-utils tesseract-ocr`
}
