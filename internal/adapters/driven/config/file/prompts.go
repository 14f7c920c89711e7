package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

var _ driven.PromptStore = (*PromptStore)(nil)

// documentPlaceholder must appear in every prompt.
const documentPlaceholder = "{{document}}"

// PromptStore serves prompts from <dir>/<name>.txt. Missing files are
// seeded from the built-in defaults on first use. An edited file that
// drops the document placeholder is ignored in favour of the default.
type PromptStore struct {
	dir string

	seedOnce sync.Once
	seedErr  error

	mu     sync.RWMutex
	loaded map[string]string
}

//nolint:lll // prompt text
var defaultPrompts = map[string]string{
	driven.PromptClassify: `You are a document risk classifier. Read the document and decide how urgently it needs review.

Respond with ONLY a JSON object of this shape:
{"level": "Critical|Warning|Normal", "category": "Legal|Financial|Compliance|Operational|None", "confidence": 0.0-1.0, "explanation": "one sentence", "recommendations": ["..."]}

Document:
{{document}}`,

	driven.PromptExtraction: `You extract structured facts from contracts and business documents.

Respond with ONLY a JSON object of this shape:
{"summary": "two or three sentences", "parties": ["..."], "dates": ["..."], "amounts": ["..."], "key_clauses": ["..."]}

Use empty arrays when nothing is found. Do not invent values.

Document:
{{document}}`,

	driven.PromptRisk: `You assess the risk a document exposes its owner to. Earlier analysis is given as context.

Respond with ONLY a JSON object of this shape:
{"level": "Critical|Warning|Normal", "category": "Legal|Financial|Compliance|Operational|None", "score": 0.0-1.0, "findings": [{"title": "...", "severity": "high|medium|low", "description": "..."}]}

Context:
{{context}}

Document:
{{document}}`,

	driven.PromptCompliance: `You check a document against applicable regulations. Earlier analysis is given as context.

Respond with ONLY a JSON object of this shape:
{"status": "compliant|non_compliant|needs_review", "regulations": ["..."], "issues": [{"regulation": "...", "description": "...", "severity": "high|medium|low"}]}

Context:
{{context}}

Document:
{{document}}`,

	driven.PromptNegotiation: `You advise on negotiating the document's terms. Use the risk and compliance findings in the context.

Respond with ONLY a JSON object of this shape:
{"points": [{"clause": "...", "priority": "high|medium|low", "suggested_language": "...", "rationale": "..."}], "strategy": "one paragraph"}

Context:
{{context}}

Document:
{{document}}`,

	driven.PromptAction: `You turn the analysis in the context into concrete follow-up work.

Respond with ONLY a JSON object of this shape:
{"items": [{"task": "...", "owner": "...", "due": "..."}], "next_steps": ["..."]}

Context:
{{context}}

Document:
{{document}}`,
}

// NewPromptStore creates a store rooted at dir, or ~/.aegis/prompts
// when dir is empty. Nothing is written until the first Load.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".aegis", "prompts")
	}
	return &PromptStore{dir: dir, loaded: make(map[string]string)}, nil
}

// Dir returns the prompt directory.
func (s *PromptStore) Dir() string {
	return s.dir
}

// Load returns the template for name.
func (s *PromptStore) Load(name string) (string, error) {
	fallback, known := defaultPrompts[name]

	s.seedOnce.Do(func() { s.seedErr = s.seed() })
	if s.seedErr != nil {
		if known {
			return fallback, nil
		}
		return "", fmt.Errorf("prompt %q: %w", name, s.seedErr)
	}

	s.mu.RLock()
	cached, ok := s.loaded[name]
	s.mu.RUnlock()
	if ok {
		return cached, nil
	}

	text, err := s.read(name)
	switch {
	case err == nil:
	case known:
		text = fallback
	default:
		return "", fmt.Errorf("prompt %q: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.loaded[name]; ok {
		return existing, nil
	}
	s.loaded[name] = text
	return text, nil
}

// Reload forgets every loaded prompt so the next Load reads disk again.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.loaded = make(map[string]string)
	s.mu.Unlock()
}

func (s *PromptStore) path(name string) string {
	return filepath.Join(s.dir, name+".txt")
}

// read returns the trimmed file content for name. A file without the
// document placeholder is rejected.
func (s *PromptStore) read(name string) (string, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if !strings.Contains(text, documentPlaceholder) {
		return "", fmt.Errorf("%s is missing %s", s.path(name), documentPlaceholder)
	}
	return text, nil
}

// seed creates the directory and writes each default and the README
// unless already on disk. Existing files are never touched.
func (s *PromptStore) seed() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	files := make(map[string]string, len(defaultPrompts)+1)
	for name, text := range defaultPrompts {
		files[s.path(name)] = text
	}
	files[filepath.Join(s.dir, "README.md")] = promptReadme

	for path, text := range files {
		if err := writeIfAbsent(path, text); err != nil {
			return err
		}
	}
	return nil
}

func writeIfAbsent(path, text string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed %s: %w", filepath.Base(path), err)
	}
	if _, err := f.WriteString(text); err != nil {
		_ = f.Close()
		return fmt.Errorf("seed %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// promptReadme explains the directory to whoever opens it.
const promptReadme = `# Aegis Prompts

This directory contains the prompts used by the classifier and the analysis agents.

## Files

- ` + "`classify.txt`" + ` - Risk verdict assigned at ingestion
- ` + "`extraction.txt`" + ` - Parties, dates, amounts and key clauses
- ` + "`risk.txt`" + ` - Risk level, score and findings
- ` + "`compliance.txt`" + ` - Regulatory status and issues
- ` + "`negotiation.txt`" + ` - Negotiation points and strategy
- ` + "`action.txt`" + ` - Action items and next steps

## Customisation

Edit any file to change model behaviour. Changes take effect on the next
command. Delete a file to restore its default.

## Placeholders

- ` + "`{{document}}`" + ` - The document text (truncated for long documents)
- ` + "`{{context}}`" + ` - JSON output of the earlier analysis steps

A file without ` + "`{{document}}`" + ` is ignored and the default is used instead.
Each prompt must still ask for the JSON fields shown in its default, or the
step falls back to an empty result.
`
