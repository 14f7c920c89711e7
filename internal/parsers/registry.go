package parsers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// DefaultMaxBytes is the largest upload accepted by default (50 MB).
const DefaultMaxBytes = 50 * 1024 * 1024

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry dispatches to the highest-priority parser for a type.
type Registry struct {
	mu       sync.RWMutex
	byType   map[string][]driven.Parser
	maxBytes int
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithMaxBytes overrides the upload size cap.
func WithMaxBytes(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxBytes = n
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		byType:   make(map[string][]driven.Parser),
		maxBytes: DefaultMaxBytes,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a parser under each of its MIME types.
func (r *Registry) Register(p driven.Parser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mt := range p.SupportedMIMETypes() {
		list := append(r.byType[mt], p)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byType[mt] = list
	}
}

// SupportedMIMETypes returns all registered MIME types, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.byType))
	for mt := range r.byType {
		types = append(types, mt)
	}
	sort.Strings(types)
	return types
}

// Parse validates the upload and extracts text with the best parser.
func (r *Registry) Parse(ctx context.Context, data []byte, declaredType string) (*domain.ParseResult, error) {
	if len(data) == 0 {
		return nil, domain.ErrEmptyInput
	}
	if len(data) > r.maxBytes {
		return nil, fmt.Errorf("%w: upload is %d bytes, limit is %d", domain.ErrInvalidInput, len(data), r.maxBytes)
	}

	mimeType := ResolveType(declaredType)

	r.mu.RLock()
	candidates := r.byType[mimeType]
	r.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedType, declaredType)
	}

	result, err := candidates[0].Parse(ctx, data)
	if err != nil {
		return nil, err
	}
	if result.PageCount == 0 {
		result.PageCount = 1
	}
	return result, nil
}
