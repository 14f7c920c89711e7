// Package ai provides factory functions for creating AI service adapters
// and the vector tier they feed.
package ai

import (
	"context"
	"fmt"
	"time"

	openaiembed "github.com/custodia-labs/aegis/internal/adapters/driven/embedding/openai"
	openaillm "github.com/custodia-labs/aegis/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/aegis/internal/adapters/driven/vector/pgvector"
	redisvector "github.com/custodia-labs/aegis/internal/adapters/driven/vector/redis"
	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// InitResult contains the result of AI service initialisation.
type InitResult struct {
	EmbeddingService driven.EmbeddingService
	TextGenerator    driven.TextGenerator
	VectorIndex      driven.VectorIndex
	Warnings         []string // Non-fatal issues that caused fallback.
	FellBack         bool     // True if the vector tier is unavailable.
}

// Close releases all resources held by InitResult.
func (r *InitResult) Close() {
	if r.EmbeddingService != nil {
		r.EmbeddingService.Close()
	}
	if r.VectorIndex != nil {
		r.VectorIndex.Close()
	}
	if r.TextGenerator != nil {
		r.TextGenerator.Close()
	}
}

// Initialise builds every AI collaborator from settings. Failures never
// abort: each one is recorded as a warning and the collaborator is left
// nil, which makes retrieval use its fallback tier and the classifier
// use its default verdict. sqliteIndex serves the sqlite backend.
func Initialise(ctx context.Context, settings domain.AppSettings, sqliteIndex driven.VectorIndex) *InitResult {
	result := &InitResult{}

	embedder, err := CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	if embedder != nil {
		result.EmbeddingService = embedder
	}

	generator, err := CreateAndValidateLLMService(ctx, &settings.LLM)
	if err != nil {
		result.Warnings = append(result.Warnings, err.Error())
	}
	if generator != nil {
		result.TextGenerator = generator
	}

	if result.EmbeddingService != nil {
		vs := settings.VectorIndex
		if vs.Dimensions <= 0 {
			vs.Dimensions = result.EmbeddingService.Dimensions()
		}
		index, err := CreateVectorIndex(ctx, vs, sqliteIndex)
		if err != nil {
			result.Warnings = append(result.Warnings, err.Error())
		}
		if index != nil {
			result.VectorIndex = index
		}
	}
	result.FellBack = result.EmbeddingService == nil || result.VectorIndex == nil
	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(
	ctx context.Context, settings *domain.EmbeddingSettings,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'aegis settings set' to fix", domain.ErrEmbeddingUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrEmbeddingUnavailable, err)
	}
	return svc, nil
}

// CreateAndValidateLLMService creates a text generator and validates connectivity.
func CreateAndValidateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.TextGenerator, error) {
	svc, err := CreateLLMService(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Run 'aegis settings set' to fix", domain.ErrLLMUnavailable, err)
	}
	if svc == nil {
		return nil, nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrLLMUnavailable, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the embedding service for settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(ctx context.Context, settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI, domain.AIProviderCompatible:
		if settings.Provider == domain.AIProviderCompatible && settings.BaseURL == "" {
			return nil, fmt.Errorf("%s requires a base URL", settings.Provider)
		}
		svc, err := openaiembed.NewEmbeddingService(ctx, openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// CreateLLMService creates the text generator for settings.
// Returns nil if the provider is not configured.
func CreateLLMService(ctx context.Context, settings *domain.LLMSettings) (driven.TextGenerator, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOpenAI, domain.AIProviderCompatible:
		if settings.Provider == domain.AIProviderCompatible && settings.BaseURL == "" {
			return nil, fmt.Errorf("%s requires a base URL", settings.Provider)
		}
		svc, err := openaillm.NewLLMService(ctx, openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", settings.Provider)
	}
}

// CreateVectorIndex returns the vector tier selected by settings.
// The none backend returns nil without error.
func CreateVectorIndex(
	ctx context.Context, settings domain.VectorIndexSettings, sqliteIndex driven.VectorIndex,
) (driven.VectorIndex, error) {
	switch settings.Backend {
	case domain.VectorBackendSQLite, "":
		if sqliteIndex == nil {
			return nil, fmt.Errorf("%w: sqlite store not open", domain.ErrVectorIndexUnavailable)
		}
		return sqliteIndex, nil

	case domain.VectorBackendRedis:
		index, err := redisvector.New(ctx, redisvector.Config{
			Addr:       settings.RedisAddr,
			Password:   settings.RedisPassword,
			IndexName:  settings.IndexName,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return index, nil

	case domain.VectorBackendPGVector:
		index, err := pgvector.New(ctx, pgvector.Config{
			DSN:        settings.PostgresDSN,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return index, nil

	case domain.VectorBackendNone:
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: unknown vector backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}
