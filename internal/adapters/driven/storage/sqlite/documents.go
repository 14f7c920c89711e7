package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

const documentColumns = `id, owner_id, filename, mime_type, content, page_count,
	risk_level, risk_category, risk_confidence, risk_explanation, recommendations,
	version_number, parent_document_id, folder_id, superseded_at, metadata, created_at, updated_at`

const chunkColumns = `id, document_id, content, position, embedding, metadata, created_at`

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	return saveDocument(ctx, s.store.db, doc)
}

// SaveChunks replaces every chunk of a document in one transaction.
func (s *documentStore) SaveChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := replaceChunks(ctx, tx, documentID, chunks); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SaveDocumentWithChunks writes the document row first so the chunks'
// foreign key holds, all inside one transaction.
func (s *documentStore) SaveDocumentWithChunks(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := saveDocument(ctx, tx, doc); err != nil {
		return err
	}
	if err := replaceChunks(ctx, tx, doc.ID, chunks); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func saveDocument(ctx context.Context, ex execer, doc *domain.Document) error {
	metadataJSON, err := marshalJSON(doc.Metadata, "{}")
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}
	recsJSON, err := marshalJSON(doc.Recommendations, "[]")
	if err != nil {
		return fmt.Errorf("marshalling recommendations: %w", err)
	}

	created := doc.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := doc.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	version := doc.VersionNumber
	if version < 1 {
		version = 1
	}

	_, err = ex.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (`+placeholders(18)+`)
		ON CONFLICT(id) DO UPDATE SET
			owner_id = excluded.owner_id,
			filename = excluded.filename,
			mime_type = excluded.mime_type,
			content = excluded.content,
			page_count = excluded.page_count,
			risk_level = excluded.risk_level,
			risk_category = excluded.risk_category,
			risk_confidence = excluded.risk_confidence,
			risk_explanation = excluded.risk_explanation,
			recommendations = excluded.recommendations,
			version_number = excluded.version_number,
			parent_document_id = excluded.parent_document_id,
			folder_id = excluded.folder_id,
			superseded_at = excluded.superseded_at,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, doc.ID, doc.OwnerID, doc.Filename, doc.MIMEType, doc.Content, doc.PageCount,
		string(doc.RiskLevel), string(doc.RiskCategory), doc.RiskConfidence, doc.RiskExplanation, recsJSON,
		version, doc.ParentDocumentID, doc.FolderID, formatTimePtr(doc.SupersededAt), metadataJSON,
		formatTime(created), formatTime(updated))

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// replaceChunks deletes a document's chunks and inserts chunks within tx.
func replaceChunks(ctx context.Context, tx *sql.Tx, documentID string, chunks []domain.Chunk) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (`+chunkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, chunk := range chunks {
		if chunk.DocumentID != documentID {
			return fmt.Errorf("%w: chunk %s belongs to %s", domain.ErrInvalidInput, chunk.ID, chunk.DocumentID)
		}
		metadataJSON, err := marshalJSON(chunk.Metadata, "{}")
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}
		created := chunk.CreatedAt
		if created.IsZero() {
			created = now
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.Content,
			chunk.Position, float32SliceToBytes(chunk.Embedding), metadataJSON, formatTime(created)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE id = ?
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// GetChunks retrieves all chunks for a document ordered by position.
func (s *documentStore) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	return s.ListChunks(ctx, domain.ChunkFilter{DocumentID: documentID})
}

// ListChunks scans chunks, optionally for one document.
func (s *documentStore) ListChunks(ctx context.Context, filter domain.ChunkFilter) ([]domain.Chunk, error) {
	query := "SELECT " + chunkColumns + " FROM chunks"
	var args []any
	if filter.DocumentID != "" {
		query += " WHERE document_id = ?"
		args = append(args, filter.DocumentID)
	}
	query += " ORDER BY document_id, position"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, *chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	return chunks, nil
}

// DeleteDocument removes a document. Chunks go with it through the foreign key.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListDocuments returns an owner's documents, newest first.
func (s *documentStore) ListDocuments(ctx context.Context, ownerID string) ([]domain.Document, error) {
	query := "SELECT " + documentColumns + " FROM documents"
	var args []any
	if ownerID != "" {
		query += " WHERE owner_id = ?"
		args = append(args, ownerID)
	}
	query += " ORDER BY created_at DESC"

	return s.queryDocuments(ctx, query, args...)
}

// ListVersions returns the whole version chain containing id, oldest first.
func (s *documentStore) ListVersions(ctx context.Context, id string) ([]domain.Document, error) {
	if _, err := s.GetDocument(ctx, id); err != nil {
		return nil, err
	}

	// Walk up to the root, then down through every descendant.
	return s.queryDocuments(ctx, `
		WITH RECURSIVE
		up(id, parent_document_id) AS (
			SELECT id, parent_document_id FROM documents WHERE id = ?
			UNION
			SELECT d.id, d.parent_document_id FROM documents d JOIN up ON d.id = up.parent_document_id
		),
		down(id) AS (
			SELECT id FROM up
			WHERE parent_document_id IS NULL
			   OR parent_document_id NOT IN (SELECT id FROM documents)
			UNION
			SELECT d.id FROM documents d JOIN down ON d.parent_document_id = down.id
		)
		SELECT `+documentColumns+` FROM documents
		WHERE id IN (SELECT id FROM down)
		ORDER BY version_number
	`, id)
}

func (s *documentStore) queryDocuments(ctx context.Context, query string, args ...any) ([]domain.Document, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []domain.Document //nolint:prealloc // size unknown from query
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanDocument scans a single document row.
func scanDocument(row scanner) (*domain.Document, error) {
	var doc domain.Document
	var riskLevel, riskCategory, recsJSON, metadataJSON, createdAt, updatedAt string
	var parentID, folderID, supersededAt sql.NullString

	if err := row.Scan(&doc.ID, &doc.OwnerID, &doc.Filename, &doc.MIMEType, &doc.Content, &doc.PageCount,
		&riskLevel, &riskCategory, &doc.RiskConfidence, &doc.RiskExplanation, &recsJSON,
		&doc.VersionNumber, &parentID, &folderID, &supersededAt, &metadataJSON,
		&createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.RiskLevel = domain.RiskLevel(riskLevel)
	doc.RiskCategory = domain.RiskCategory(riskCategory)
	doc.ParentDocumentID = stringPtr(parentID)
	doc.FolderID = stringPtr(folderID)
	doc.SupersededAt = parseTimePtr(supersededAt)
	doc.CreatedAt = parseTime(createdAt)
	doc.UpdatedAt = parseTime(updatedAt)

	if recsJSON != "" {
		if err := json.Unmarshal([]byte(recsJSON), &doc.Recommendations); err != nil {
			return nil, fmt.Errorf("unmarshaling recommendations: %w", err)
		}
	}
	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}

	return &doc, nil
}

// scanChunk scans a chunk row.
func scanChunk(row scanner) (*domain.Chunk, error) {
	var chunk domain.Chunk
	var embeddingBlob []byte
	var metadataJSON, createdAt string

	if err := row.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Content,
		&chunk.Position, &embeddingBlob, &metadataJSON, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning chunk: %w", err)
	}

	chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
	chunk.CreatedAt = parseTime(createdAt)

	if metadataJSON != "" {
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
		}
	}

	return &chunk, nil
}
