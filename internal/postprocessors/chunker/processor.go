// Package chunker splits document text into overlapping sentence-aligned chunks.
package chunker

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of characters carried into the next chunk.
const DefaultChunkOverlap = 200

// MinChunkSize is the smallest chunk size New accepts.
const MinChunkSize = 16

// Processor splits document content on sentence boundaries.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.chunkSize < MinChunkSize {
		p.chunkSize = MinChunkSize
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	texts := p.Split(doc.Content)
	if len(texts) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, 0, len(texts))
	for _, t := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:         uuid.New().String(),
			DocumentID: doc.ID,
			Content:    t.Text,
			Position:   len(chunks),
			Metadata: map[string]any{
				"offset": t.Offset,
				"length": len(t.Text),
			},
		})
	}
	return chunks, nil
}

// Piece is one chunk of text before it becomes a domain.Chunk.
type Piece struct {
	// Text is the chunk content, including any overlap seed.
	Text string

	// Offset is the byte offset in the source of the first sentence
	// that is new to this chunk.
	Offset int
}

// Split accumulates sentences until the next one would push the chunk
// past the size limit, then starts a new chunk seeded with the tail of
// the previous one. Whitespace-only input yields nothing.
func (p *Processor) Split(text string) []Piece {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var (
		pieces  []Piece
		current strings.Builder
		offset  = -1
	)

	flush := func() string {
		s := strings.TrimSpace(current.String())
		if s != "" {
			pieces = append(pieces, Piece{Text: s, Offset: offset})
		}
		current.Reset()
		offset = -1
		return s
	}

	for _, sent := range p.sentences(text) {
		if current.Len() > 0 && current.Len()+1+len(sent.text) > p.chunkSize {
			prev := flush()
			if seed := tail(prev, p.overlap); seed != "" {
				current.WriteString(seed)
			}
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		if offset < 0 {
			offset = sent.offset
		}
		current.WriteString(sent.text)
	}
	flush()

	return pieces
}

type sentence struct {
	text   string
	offset int
}

// sentences breaks text after terminal punctuation followed by whitespace
// and at blank lines. Sentences longer than the chunk size are hard-split.
func (p *Processor) sentences(text string) []sentence {
	var out []sentence
	start := 0

	emit := func(end int) {
		raw := text[start:end]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			lead := strings.Index(raw, trimmed)
			out = append(out, p.hardSplit(trimmed, start+lead)...)
		}
		start = end
	}

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		next := i + size
		switch {
		case r == '.' || r == '!' || r == '?':
			if next >= len(text) {
				break
			}
			if nr, _ := utf8.DecodeRuneInString(text[next:]); unicode.IsSpace(nr) {
				emit(next)
			}
		case r == '\n':
			if next < len(text) && text[next] == '\n' {
				emit(next)
			}
		}
		i = next
	}
	emit(len(text))
	return out
}

// hardSplit cuts an overlong sentence into chunk-sized pieces on rune boundaries.
func (p *Processor) hardSplit(s string, offset int) []sentence {
	if len(s) <= p.chunkSize {
		return []sentence{{text: s, offset: offset}}
	}

	var out []sentence
	for len(s) > 0 {
		end := p.chunkSize
		if end >= len(s) {
			end = len(s)
		} else {
			for end > 0 && !utf8.RuneStart(s[end]) {
				end--
			}
			if end == 0 {
				_, end = utf8.DecodeRuneInString(s)
			}
			if sp := strings.LastIndexByte(s[:end], ' '); sp > end/2 {
				end = sp
			}
		}
		piece := strings.TrimSpace(s[:end])
		if piece != "" {
			out = append(out, sentence{text: piece, offset: offset})
		}
		offset += end
		s = s[end:]
	}
	return out
}

// tail returns up to n trailing bytes of s, starting on a word boundary
// when one is available.
func tail(s string, n int) string {
	if n <= 0 || s == "" {
		return ""
	}
	if len(s) <= n {
		return s
	}
	start := len(s) - n
	for start < len(s) && !utf8.RuneStart(s[start]) {
		start++
	}
	t := s[start:]
	if sp := strings.IndexByte(t, ' '); sp >= 0 && sp < len(t)-1 {
		t = t[sp+1:]
	}
	return strings.TrimSpace(t)
}
