// Package pgvector provides a Postgres vector index using the pgvector
// extension through gorm.
package pgvector

import (
	"context"
	"errors"
	"fmt"

	"github.com/pgvector/pgvector-go"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// TableName is the table holding chunk vectors.
const TableName = "aegis_chunk_vectors"

// chunkVector is one row of TableName.
type chunkVector struct {
	ChunkID    string          `gorm:"column:chunk_id;primaryKey"`
	DocumentID string          `gorm:"column:document_id;index"`
	Position   int             `gorm:"column:position"`
	Content    string          `gorm:"column:content"`
	Embedding  pgvector.Vector `gorm:"column:embedding"`
}

func (chunkVector) TableName() string {
	return TableName
}

// scoredRow is a search result row.
type scoredRow struct {
	ChunkID    string
	DocumentID string
	Position   int
	Content    string
	Similarity float64
}

// Config holds pgvector index configuration.
type Config struct {
	DSN        string
	Dimensions int
}

// Index stores chunk embeddings in Postgres.
type Index struct {
	db        *gorm.DB
	dimension int
}

// New connects to Postgres, enables the extension and creates the table.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.DSN == "" {
		return nil, errors.New("pgvector: DSN is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, errors.New("pgvector: dimensions must be positive")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: pgvector: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return NewWithDB(ctx, db, cfg.Dimensions)
}

// NewWithDB uses an existing gorm connection.
func NewWithDB(ctx context.Context, db *gorm.DB, dimensions int) (*Index, error) {
	idx := &Index{db: db, dimension: dimensions}
	if err := idx.migrate(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func (i *Index) migrate(ctx context.Context) error {
	db := i.db.WithContext(ctx)
	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			chunk_id TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, TableName, i.dimension),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_document ON %s (document_id)", TableName, TableName),
		fmt.Sprintf("CREATE INDEX IF NOT EXISTS idx_%s_hnsw ON %s USING hnsw (embedding vector_cosine_ops)",
			TableName, TableName),
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("pgvector: migrate: %w", err)
		}
	}
	return nil
}

// Upsert stores the embeddings of chunks. Chunks without an embedding are ignored.
func (i *Index) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	rows, err := i.toRows(chunks)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	err = i.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "chunk_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"document_id", "position", "content", "embedding"}),
		}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("%w: pgvector: upsert: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return nil
}

func (i *Index) toRows(chunks []domain.Chunk) ([]chunkVector, error) {
	rows := make([]chunkVector, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			continue
		}
		if len(c.Embedding) != i.dimension {
			return nil, fmt.Errorf("pgvector: chunk %s has %d dimensions, index expects %d: %w",
				c.ID, len(c.Embedding), i.dimension, domain.ErrInvalidInput)
		}
		rows = append(rows, chunkVector{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Position:   c.Position,
			Content:    c.Content,
			Embedding:  pgvector.NewVector(c.Embedding),
		})
	}
	return rows, nil
}

// DeleteDocument removes every vector belonging to a document.
func (i *Index) DeleteDocument(ctx context.Context, documentID string) error {
	err := i.db.WithContext(ctx).Where("document_id = ?", documentID).Delete(&chunkVector{}).Error
	if err != nil {
		return fmt.Errorf("%w: pgvector: delete document %s: %w", domain.ErrVectorIndexUnavailable, documentID, err)
	}
	return nil
}

// Search orders by cosine distance and keeps similarity strictly above threshold.
func (i *Index) Search(
	ctx context.Context, query []float32, k int, threshold float64, documentID string,
) ([]domain.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) != i.dimension {
		return nil, fmt.Errorf("pgvector: query has %d dimensions, index expects %d: %w",
			len(query), i.dimension, domain.ErrInvalidInput)
	}

	vec := pgvector.NewVector(query)
	tx := i.db.WithContext(ctx).
		Table(TableName).
		Select("chunk_id, document_id, position, content, 1 - (embedding <=> ?) AS similarity", vec).
		Where("1 - (embedding <=> ?) > ?", vec, threshold)
	if documentID != "" {
		tx = tx.Where("document_id = ?", documentID)
	}

	var rows []scoredRow
	err := tx.Clauses(clause.OrderBy{
		Expression: clause.Expr{SQL: "embedding <=> ?, chunk_id", Vars: []any{vec}},
	}).Limit(k).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: pgvector: search: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return toHits(rows), nil
}

func toHits(rows []scoredRow) []domain.VectorHit {
	hits := make([]domain.VectorHit, len(rows))
	for n, r := range rows {
		hits[n] = domain.VectorHit{
			Chunk: domain.Chunk{
				ID:         r.ChunkID,
				DocumentID: r.DocumentID,
				Position:   r.Position,
				Content:    r.Content,
			},
			Similarity: r.Similarity,
		}
	}
	return hits
}

// Close closes the underlying connection pool.
func (i *Index) Close() error {
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
