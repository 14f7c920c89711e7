package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// ==================== Embedding ====================

type mockEmbedder struct {
	mu         sync.Mutex
	dims       int
	batchSizes []int
	failOnCall int // 1-based; 0 never fails
	calls      int
	embedErr   error
	vectors    map[string][]float32
}

var _ driven.EmbeddingService = (*mockEmbedder)(nil)

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dims: 3, vectors: make(map[string][]float32)}
}

func (m *mockEmbedder) vectorFor(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return v
	}
	return []float32{float32(len(text)), 1, 0}
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.vectorFor(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.failOnCall > 0 && m.calls == m.failOnCall {
		return nil, errors.New("provider returned 500")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int              { return m.dims }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// ==================== Text generation ====================

// mockGenerator answers prompts by matching a marker substring.
type mockGenerator struct {
	mu        sync.Mutex
	responses map[string]string
	errs      map[string]error
	panics    map[string]bool
	prompts   []string
}

var _ driven.TextGenerator = (*mockGenerator)(nil)

func newMockGenerator() *mockGenerator {
	return &mockGenerator{
		responses: make(map[string]string),
		errs:      make(map[string]error),
		panics:    make(map[string]bool),
	}
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	for marker, err := range m.errs {
		if strings.Contains(prompt, marker) {
			return "", err
		}
	}
	for marker := range m.panics {
		if strings.Contains(prompt, marker) {
			panic("generator exploded on " + marker)
		}
	}
	for marker, resp := range m.responses {
		if strings.Contains(prompt, marker) {
			return resp, nil
		}
	}
	return "{}", nil
}

func (m *mockGenerator) ModelName() string            { return "mock-llm" }
func (m *mockGenerator) Ping(_ context.Context) error { return nil }
func (m *mockGenerator) Close() error                 { return nil }

// ==================== Prompts ====================

// mockPromptStore returns "<NAME> {{document}} {{context}}" for every prompt
// so generator mocks can route on the upper-cased name.
type mockPromptStore struct{}

var _ driven.PromptStore = mockPromptStore{}

func (mockPromptStore) Load(name string) (string, error) {
	return fmt.Sprintf("<%s> {{document}} {{context}}", strings.ToUpper(name)), nil
}

func (mockPromptStore) Reload() {}

// ==================== Fetch ====================

type mockFetcher struct {
	mu     sync.Mutex
	calls  []domain.FetchRequest
	result *domain.FetchResult
	err    error
}

var _ driven.FetchIntegration = (*mockFetcher)(nil)

func (m *mockFetcher) Fetch(_ context.Context, req domain.FetchRequest) (*domain.FetchResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		r := *m.result
		r.ConsentID = req.ConsentID
		return &r, nil
	}
	per := make(map[string]domain.FetchTypeResult, len(req.DataTypes))
	for _, dt := range req.DataTypes {
		per[dt] = domain.FetchTypeResult{Success: true, Data: []byte(`{"type":"` + dt + `"}`)}
	}
	return &domain.FetchResult{ConsentID: req.ConsentID, Success: true, PerType: per}, nil
}

func (m *mockFetcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// ==================== Notifier ====================

type mockNotifier struct {
	mu         sync.Mutex
	deliveries []domain.WebhookDelivery
}

var _ driven.Notifier = (*mockNotifier)(nil)

func (m *mockNotifier) Notify(_ context.Context, d domain.WebhookDelivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deliveries = append(m.deliveries, d)
	return nil
}

func (m *mockNotifier) events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.deliveries))
	for i, d := range m.deliveries {
		out[i] = d.Event
	}
	return out
}

// ==================== Parser registry ====================

type mockParserRegistry struct {
	result *domain.ParseResult
	err    error
}

var _ driven.ParserRegistry = (*mockParserRegistry)(nil)

func (m *mockParserRegistry) Parse(_ context.Context, data []byte, _ string) (*domain.ParseResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		r := *m.result
		return &r, nil
	}
	return &domain.ParseResult{Text: string(data), PageCount: 1}, nil
}

func (m *mockParserRegistry) Register(driven.Parser) {}

func (m *mockParserRegistry) SupportedMIMETypes() []string { return []string{"text/plain"} }
