// Package redis provides a RediSearch-backed vector index.
// Chunks are stored as hashes under a key prefix and searched with an
// HNSW KNN query using cosine distance.
package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// Default configuration values.
const (
	DefaultAddr           = "localhost:6379"
	DefaultIndexName      = "aegis-chunks"
	DefaultEFConstruction = 200
	DefaultM              = 16
	deleteBatch           = 1000
)

// Hash field names.
const (
	fieldChunkID    = "chunk_id"
	fieldDocumentID = "document_id"
	fieldPosition   = "position"
	fieldContent    = "content"
	fieldVector     = "vector"
	fieldScore      = "score"
)

// Config holds Redis connection and index configuration.
type Config struct {
	Addr       string
	Password   string
	DB         int
	IndexName  string
	Dimensions int
}

// Index stores chunk embeddings in Redis and searches them with RediSearch.
type Index struct {
	client    *goredis.Client
	indexName string
	keyPrefix string
	dimension int

	mu      sync.Mutex
	created bool
}

// New connects to Redis and creates the HNSW index if it is missing.
func New(ctx context.Context, cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, errors.New("redis: dimensions must be positive")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultIndexName
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		// RESP2 keeps FT.SEARCH replies as flat arrays.
		Protocol: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis: %w", domain.ErrVectorIndexUnavailable, err)
	}

	idx := &Index{
		client:    client,
		indexName: cfg.IndexName,
		keyPrefix: cfg.IndexName + ":",
		dimension: cfg.Dimensions,
	}
	if err := idx.ensureIndex(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return idx, nil
}

// ensureIndex creates the vector index unless FT.INFO finds it.
func (i *Index) ensureIndex(ctx context.Context) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.created {
		return nil
	}
	if _, err := i.client.Do(ctx, "FT.INFO", i.indexName).Result(); err == nil {
		i.created = true
		return nil
	}

	_, err := i.client.Do(ctx, "FT.CREATE", i.indexName,
		"ON", "HASH",
		"PREFIX", "1", i.keyPrefix,
		"SCHEMA",
		fieldVector, "VECTOR", "HNSW", "10",
		"TYPE", "FLOAT32",
		"DIM", strconv.Itoa(i.dimension),
		"DISTANCE_METRIC", "COSINE",
		"EF_CONSTRUCTION", strconv.Itoa(DefaultEFConstruction),
		"M", strconv.Itoa(DefaultM),
		fieldDocumentID, "TAG",
		fieldChunkID, "TAG",
		fieldPosition, "NUMERIC",
		fieldContent, "TEXT",
	).Result()
	if err != nil {
		return fmt.Errorf("redis: create index %s: %w", i.indexName, err)
	}
	i.created = true
	return nil
}

// Upsert stores the embeddings of chunks in one pipeline.
func (i *Index) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	pipe := i.client.Pipeline()
	queued := 0
	for idx := range chunks {
		c := &chunks[idx]
		if len(c.Embedding) == 0 {
			continue
		}
		if len(c.Embedding) != i.dimension {
			return fmt.Errorf("redis: chunk %s has %d dimensions, index expects %d: %w",
				c.ID, len(c.Embedding), i.dimension, domain.ErrInvalidInput)
		}
		pipe.HSet(ctx, i.keyPrefix+c.ID,
			fieldChunkID, c.ID,
			fieldDocumentID, c.DocumentID,
			fieldPosition, c.Position,
			fieldContent, c.Content,
			fieldVector, encodeVector(c.Embedding),
		)
		queued++
	}
	if queued == 0 {
		return nil
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: redis: upsert: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return nil
}

// DeleteDocument removes every hash belonging to a document.
func (i *Index) DeleteDocument(ctx context.Context, documentID string) error {
	query := fmt.Sprintf("@%s:{%s}", fieldDocumentID, escapeTag(documentID))
	for {
		res, err := i.client.Do(ctx, "FT.SEARCH", i.indexName, query,
			"NOCONTENT",
			"LIMIT", "0", strconv.Itoa(deleteBatch),
			"DIALECT", "2",
		).Result()
		if err != nil {
			return fmt.Errorf("%w: redis: find document %s: %w", domain.ErrVectorIndexUnavailable, documentID, err)
		}
		keys := parseKeys(res)
		if len(keys) == 0 {
			return nil
		}
		if err := i.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("%w: redis: delete document %s: %w", domain.ErrVectorIndexUnavailable, documentID, err)
		}
		if len(keys) < deleteBatch {
			return nil
		}
	}
}

// Search runs a KNN query and keeps hits strictly above threshold.
func (i *Index) Search(
	ctx context.Context, query []float32, k int, threshold float64, documentID string,
) ([]domain.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}
	if len(query) != i.dimension {
		return nil, fmt.Errorf("redis: query has %d dimensions, index expects %d: %w",
			len(query), i.dimension, domain.ErrInvalidInput)
	}

	res, err := i.client.Do(ctx, "FT.SEARCH", i.indexName, buildKNNQuery(k, documentID),
		"PARAMS", "2", "vec", encodeVector(query),
		"SORTBY", fieldScore,
		"RETURN", "5", fieldChunkID, fieldDocumentID, fieldPosition, fieldContent, fieldScore,
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis: search: %w", domain.ErrVectorIndexUnavailable, err)
	}
	return parseSearchResults(res, threshold)
}

// Close closes the Redis connection.
func (i *Index) Close() error {
	if i.client == nil {
		return nil
	}
	return i.client.Close()
}

func buildKNNQuery(k int, documentID string) string {
	filter := "*"
	if documentID != "" {
		filter = fmt.Sprintf("(@%s:{%s})", fieldDocumentID, escapeTag(documentID))
	}
	return fmt.Sprintf("%s=>[KNN %d @%s $vec AS %s]", filter, k, fieldVector, fieldScore)
}

// parseKeys extracts the keys of a NOCONTENT FT.SEARCH reply.
func parseKeys(res any) []string {
	values, ok := res.([]any)
	if !ok || len(values) < 2 {
		return nil
	}
	keys := make([]string, 0, len(values)-1)
	for _, v := range values[1:] {
		if key, ok := v.(string); ok {
			keys = append(keys, key)
		}
	}
	return keys
}

// parseSearchResults converts an FT.SEARCH reply of the form
// [total, key, [field, value, ...], key, [...], ...] into hits.
// The score field is cosine distance, so similarity is 1 - score.
func parseSearchResults(res any, threshold float64) ([]domain.VectorHit, error) {
	values, ok := res.([]any)
	if !ok {
		return nil, fmt.Errorf("redis: unexpected search reply %T", res)
	}

	var hits []domain.VectorHit
	for n := 1; n+1 < len(values); n += 2 {
		fields, ok := values[n+1].([]any)
		if !ok {
			continue
		}
		hit, distance, ok := parseHit(fields)
		if !ok {
			continue
		}
		hit.Similarity = 1 - distance
		if hit.Similarity > threshold {
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

func parseHit(fields []any) (domain.VectorHit, float64, bool) {
	var (
		hit      domain.VectorHit
		distance float64
		scored   bool
	)
	for n := 0; n+1 < len(fields); n += 2 {
		name, _ := fields[n].(string)
		value := toString(fields[n+1])
		switch name {
		case fieldChunkID:
			hit.Chunk.ID = value
		case fieldDocumentID:
			hit.Chunk.DocumentID = value
		case fieldPosition:
			hit.Chunk.Position, _ = strconv.Atoi(value)
		case fieldContent:
			hit.Chunk.Content = value
		case fieldScore:
			d, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return hit, 0, false
			}
			distance, scored = d, true
		}
	}
	return hit, distance, scored && hit.Chunk.ID != ""
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprint(t)
	}
}

// encodeVector packs a vector as little-endian FLOAT32 bytes.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for n, f := range v {
		binary.LittleEndian.PutUint32(buf[n*4:], math.Float32bits(f))
	}
	return buf
}

// decodeVector unpacks little-endian FLOAT32 bytes.
func decodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for n := range out {
		out[n] = math.Float32frombits(binary.LittleEndian.Uint32(b[n*4:]))
	}
	return out
}

// escapeTag escapes RediSearch TAG punctuation.
func escapeTag(s string) string {
	var b strings.Builder
	for _, r := range s {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
