package postprocessors

import (
	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/postprocessors/chunker"
	"github.com/custodia-labs/aegis/internal/postprocessors/sanitiser"
)

// RegisterDefaults registers all built-in processors with the registry.
func RegisterDefaults(r *Registry) {
	r.Register("sanitiser", buildSanitiser)
	r.Register("chunker", buildChunker)
}

func buildSanitiser(_ map[string]any) (driven.PostProcessor, error) {
	return sanitiser.New(), nil
}

// buildChunker creates a chunker processor from generic config.
// Supported config keys:
//   - chunk_size (int): target characters per chunk (default: 1000)
//   - overlap (int): characters of the previous chunk seeded into the next (default: 200)
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	var opts []chunker.Option

	if size, ok := intFromConfig(cfg, "chunk_size"); ok {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if overlap, ok := intFromConfig(cfg, "overlap"); ok {
		opts = append(opts, chunker.WithOverlap(overlap))
	}

	return chunker.New(opts...), nil
}

// intFromConfig extracts an int from a generic config map.
// TOML decodes integers as int64 and JSON as float64.
func intFromConfig(cfg map[string]any, key string) (int, bool) {
	switch v := cfg[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// NewDefaultPipeline builds the pipeline described by cfg using the
// built-in processors. An empty processor list falls back to the defaults.
func NewDefaultPipeline(cfg domain.PipelineConfig) (*Pipeline, error) {
	if len(cfg.Processors) == 0 {
		cfg = domain.DefaultPipelineConfig()
	}
	r := NewRegistry()
	RegisterDefaults(r)
	return r.BuildPipeline(cfg)
}
