package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk

	// FailChunks makes chunk writes fail, for exercising atomicity in tests.
	FailChunks error
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	return nil
}

// SaveChunks replaces every chunk of a document in one step.
// Chunks of an unknown document are rejected.
func (s *DocumentStore) SaveChunks(_ context.Context, documentID string, chunks []domain.Chunk) error {
	stored, err := s.prepareChunks(documentID, chunks)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[documentID]; !ok {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, documentID)
	}
	s.putChunks(documentID, stored)
	return nil
}

// SaveDocumentWithChunks stores doc and replaces its chunks together.
func (s *DocumentStore) SaveDocumentWithChunks(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	stored, err := s.prepareChunks(doc.ID, chunks)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = *doc
	s.putChunks(doc.ID, stored)
	return nil
}

func (s *DocumentStore) prepareChunks(documentID string, chunks []domain.Chunk) ([]domain.Chunk, error) {
	if s.FailChunks != nil {
		return nil, s.FailChunks
	}

	now := time.Now()
	stored := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		if c.DocumentID != documentID {
			return nil, domain.ErrInvalidInput
		}
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		stored[i] = c
	}
	return stored, nil
}

// putChunks must be called with mu held.
func (s *DocumentStore) putChunks(documentID string, stored []domain.Chunk) {
	if len(stored) == 0 {
		delete(s.chunks, documentID)
		return
	}
	s.chunks[documentID] = stored
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// GetChunks returns a document's chunks ordered by position.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks := append([]domain.Chunk(nil), s.chunks[documentID]...)
	sort.Slice(chunks, func(i, j int) bool { return chunks[i].Position < chunks[j].Position })
	return chunks, nil
}

// ListChunks scans chunks, optionally for one document.
func (s *DocumentStore) ListChunks(_ context.Context, filter domain.ChunkFilter) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Chunk
	for docID, chunks := range s.chunks {
		if filter.DocumentID != "" && docID != filter.DocumentID {
			continue
		}
		out = append(out, chunks...)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].Position < out[j].Position
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// DeleteDocument removes a document and its chunks.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// ListDocuments returns an owner's documents, newest first.
// An empty ownerID lists every document.
func (s *DocumentStore) ListDocuments(_ context.Context, ownerID string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []domain.Document
	for _, doc := range s.documents {
		if ownerID == "" || doc.OwnerID == ownerID {
			result = append(result, doc)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

// ListVersions returns the whole version chain containing id, oldest first.
func (s *DocumentStore) ListVersions(_ context.Context, id string) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	chain := []domain.Document{doc}
	seen := map[string]bool{id: true}
	for doc.ParentDocumentID != nil && !seen[*doc.ParentDocumentID] {
		parent, ok := s.documents[*doc.ParentDocumentID]
		if !ok {
			break
		}
		seen[parent.ID] = true
		chain = append(chain, parent)
		doc = parent
	}

	for cur := id; ; {
		next, ok := s.childOf(cur)
		if !ok || seen[next.ID] {
			break
		}
		seen[next.ID] = true
		chain = append(chain, next)
		cur = next.ID
	}

	sort.Slice(chain, func(i, j int) bool { return chain[i].VersionNumber < chain[j].VersionNumber })
	return chain, nil
}

func (s *DocumentStore) childOf(id string) (domain.Document, bool) {
	for _, doc := range s.documents {
		if doc.ParentDocumentID != nil && *doc.ParentDocumentID == id {
			return doc, true
		}
	}
	return domain.Document{}, false
}
