package parsers

import (
	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/parsers/docx"
	"github.com/custodia-labs/aegis/internal/parsers/html"
	"github.com/custodia-labs/aegis/internal/parsers/pdf"
	"github.com/custodia-labs/aegis/internal/parsers/plaintext"
)

// NewDefaultRegistry returns a registry with every built-in parser.
// A nil runner uses ExecRunner.
func NewDefaultRegistry(runner driven.CommandRunner, cfg domain.ParserSettings) *Registry {
	if runner == nil {
		runner = NewExecRunner()
	}

	r := NewRegistry(WithMaxBytes(cfg.MaxBytes))
	r.Register(plaintext.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(pdf.New(runner, pdf.WithOCRTimeout(cfg.OCRTimeout)))
	return r
}
