package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/aegis/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// newSettingsFixture isolates the service from the process environment.
func newSettingsFixture(env map[string]string) (*SettingsService, *memory.ConfigStore) {
	store := memory.NewConfigStore()
	service := NewSettingsService(store, nil)
	service.getenv = func(k string) string { return env[k] }
	return service, store
}

func TestNewSettingsService(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(), nil)
	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service, _ := newSettingsFixture(nil)

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.VectorIndex.Backend, settings.VectorIndex.Backend)
	assert.Equal(t, domain.DefaultRetrievalK, settings.Retrieval.K)
	assert.InDelta(t, domain.DefaultMinSimilarity, settings.Retrieval.MinSimilarity, 1e-9)
	assert.Equal(t, domain.ConfidencePolicyInflateLow, settings.Retrieval.ConfidencePolicy)
	assert.Equal(t, 100, settings.Governor.RateLimit)
	assert.Equal(t, 60*time.Second, settings.Governor.Window)
	assert.Equal(t, []string{"IN"}, settings.Governor.AllowedCountries)
	assert.Equal(t, 30, settings.Governor.RetentionDays)
	assert.Equal(t, 5, settings.Jobs.Concurrency)
	assert.Equal(t, 3, settings.Jobs.MaxAttempts)
	assert.Equal(t, 2*time.Second, settings.Jobs.BaseBackoff)
	assert.Equal(t, 2*time.Minute, settings.Parser.OCRTimeout)
	assert.Equal(t, []string{"sanitiser", "chunker"}, settings.Pipeline.Processors)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	service, store := newSettingsFixture(nil)
	_ = store.Set("embedding.provider", "openai")
	_ = store.Set("embedding.model", "text-embedding-3-large")
	_ = store.Set("vector.backend", "redis")
	_ = store.Set("retrieval.k", int64(8))
	_ = store.Set("retrieval.min_similarity", 0.25)
	_ = store.Set("retrieval.confidence_policy", "calibrated")
	_ = store.Set("governor.window", "2m")
	_ = store.Set("governor.allowed_countries", []any{"IN", "SG"})
	_ = store.Set("jobs.base_backoff", int64(5))

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
	assert.Equal(t, domain.VectorBackendRedis, settings.VectorIndex.Backend)
	assert.Equal(t, 8, settings.Retrieval.K)
	assert.InDelta(t, 0.25, settings.Retrieval.MinSimilarity, 1e-9)
	assert.Equal(t, domain.ConfidencePolicyCalibrated, settings.Retrieval.ConfidencePolicy)
	assert.Equal(t, 2*time.Minute, settings.Governor.Window)
	assert.Equal(t, []string{"IN", "SG"}, settings.Governor.AllowedCountries)
	assert.Equal(t, 5*time.Second, settings.Jobs.BaseBackoff)
}

func TestSettingsService_Get_ZeroMinSimilarityIsHonoured(t *testing.T) {
	service, store := newSettingsFixture(nil)
	_ = store.Set("retrieval.min_similarity", 0.0)

	settings, err := service.Get()
	require.NoError(t, err)
	assert.Zero(t, settings.Retrieval.MinSimilarity)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	service, store := newSettingsFixture(nil)
	_ = store.Set("embedding.provider", "invalid_provider")
	_ = store.Set("vector.backend", "faiss")
	_ = store.Set("retrieval.confidence_policy", "generous")
	_ = store.Set("governor.window", "soon")

	settings, err := service.Get()
	require.NoError(t, err)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.VectorIndex.Backend, settings.VectorIndex.Backend)
	assert.Equal(t, defaults.Retrieval.ConfidencePolicy, settings.Retrieval.ConfidencePolicy)
	assert.Equal(t, defaults.Governor.Window, settings.Governor.Window)
}

func TestSettingsService_Get_EnvOverridesSecrets(t *testing.T) {
	service, store := newSettingsFixture(map[string]string{
		EnvOpenAIAPIKey: "sk-env",
		EnvPostgresDSN:  "postgres://env",
	})
	_ = store.Set("embedding.api_key", "sk-file")
	_ = store.Set("governor.fetch_api_key", "fetch-file")

	settings, err := service.Get()
	require.NoError(t, err)

	assert.Equal(t, "sk-env", settings.Embedding.APIKey)
	assert.Equal(t, "sk-env", settings.LLM.APIKey)
	assert.Equal(t, "postgres://env", settings.VectorIndex.PostgresDSN)
	assert.Equal(t, "fetch-file", settings.Governor.FetchAPIKey)
}

func TestSettingsService_Save(t *testing.T) {
	service, store := newSettingsFixture(nil)

	settings := domain.DefaultAppSettings()
	settings.Embedding = domain.EmbeddingSettings{
		Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-small", APIKey: "sk-test-key", Dimensions: 1536,
	}
	settings.LLM = domain.LLMSettings{Provider: domain.AIProviderCompatible, Model: "llama3", BaseURL: "http://gw:8000/v1"}
	settings.Governor.AllowedCountries = []string{"IN", "AE"}
	settings.Governor.Window = 90 * time.Second

	require.NoError(t, service.Save(&settings))

	retrieved, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, "sk-test-key", retrieved.Embedding.APIKey)
	assert.Equal(t, domain.AIProviderCompatible, retrieved.LLM.Provider)
	assert.Equal(t, "http://gw:8000/v1", retrieved.LLM.BaseURL)
	assert.Equal(t, []string{"IN", "AE"}, retrieved.Governor.AllowedCountries)
	assert.Equal(t, 90*time.Second, retrieved.Governor.Window)

	_, exists := store.Get("llm.api_key")
	assert.False(t, exists, "empty secrets are not written")
}

func TestSettingsService_Save_SkipsEnvSecrets(t *testing.T) {
	service, store := newSettingsFixture(map[string]string{EnvOpenAIAPIKey: "sk-env"})

	settings, err := service.Get()
	require.NoError(t, err)
	settings.Governor.FetchAPIKey = "fetch-key"
	require.NoError(t, service.Save(settings))

	assert.Empty(t, store.GetString("embedding.api_key"))
	assert.Empty(t, store.GetString("llm.api_key"))
	assert.Equal(t, "fetch-key", store.GetString("governor.fetch_api_key"))
}

func TestSettingsService_SetEmbeddingProvider(t *testing.T) {
	t.Run("openai with default model", func(t *testing.T) {
		service, _ := newSettingsFixture(nil)

		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "sk-test-key"))

		settings, _ := service.Get()
		assert.Equal(t, domain.DefaultEmbeddingModels()[domain.AIProviderOpenAI], settings.Embedding.Model)
		assert.Equal(t, "sk-test-key", settings.Embedding.APIKey)
		assert.Empty(t, settings.Embedding.BaseURL)
	})

	t.Run("dimensions follow the model", func(t *testing.T) {
		service, _ := newSettingsFixture(nil)

		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderOpenAI, "text-embedding-3-large", "sk"))

		settings, _ := service.Get()
		assert.Equal(t, 3072, settings.Embedding.Dimensions)
		assert.Equal(t, 3072, settings.VectorIndex.Dimensions)
	})

	t.Run("compatible needs no key", func(t *testing.T) {
		service, _ := newSettingsFixture(nil)

		require.NoError(t, service.SetEmbeddingProvider(domain.AIProviderCompatible, "bge-m3", ""))

		settings, _ := service.Get()
		assert.Equal(t, domain.AIProviderCompatible, settings.Embedding.Provider)
		assert.Equal(t, "bge-m3", settings.Embedding.Model)
	})

	t.Run("openai requires key", func(t *testing.T) {
		service, _ := newSettingsFixture(nil)

		err := service.SetEmbeddingProvider(domain.AIProviderOpenAI, "", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key required")
	})

	t.Run("invalid provider", func(t *testing.T) {
		service, _ := newSettingsFixture(nil)

		err := service.SetEmbeddingProvider(domain.AIProvider("ollama"), "", "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid embedding provider")
	})
}

func TestSettingsService_SetLLMProvider(t *testing.T) {
	service, _ := newSettingsFixture(nil)

	require.NoError(t, service.SetLLMProvider(domain.AIProviderOpenAI, "", "sk-llm"))

	settings, _ := service.Get()
	assert.Equal(t, domain.AIProviderOpenAI, settings.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", settings.LLM.Model)
	assert.Equal(t, "sk-llm", settings.LLM.APIKey)

	assert.Error(t, service.SetLLMProvider(domain.AIProviderOpenAI, "gpt-4o", ""))
	assert.Error(t, service.SetLLMProvider(domain.AIProvider("bogus"), "", "k"))
}

func TestSettingsService_SetConfidencePolicy(t *testing.T) {
	service, _ := newSettingsFixture(nil)

	require.NoError(t, service.SetConfidencePolicy(domain.ConfidencePolicyCalibrated))
	settings, _ := service.Get()
	assert.Equal(t, domain.ConfidencePolicyCalibrated, settings.Retrieval.ConfidencePolicy)

	assert.Error(t, service.SetConfidencePolicy("generous"))
}

func TestSettingsService_SetVectorBackend(t *testing.T) {
	service, _ := newSettingsFixture(nil)

	require.NoError(t, service.SetVectorBackend(domain.VectorBackendPGVector))
	settings, _ := service.Get()
	assert.Equal(t, domain.VectorBackendPGVector, settings.VectorIndex.Backend)

	assert.Error(t, service.SetVectorBackend("faiss"))
}

func TestSettingsService_Validate(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr string
	}{
		{name: "defaults are valid"},
		{
			name:    "compatible llm without base url",
			values:  map[string]any{"llm.provider": "openai-compatible"},
			wantErr: "llm provider openai-compatible requires base_url",
		},
		{
			name:    "pgvector without dsn",
			values:  map[string]any{"vector.backend": "pgvector"},
			wantErr: "vector.postgres_dsn",
		},
		{
			name:    "similarity out of range",
			values:  map[string]any{"retrieval.min_similarity": 1.5},
			wantErr: "min_similarity",
		},
		{
			name: "dimension mismatch",
			values: map[string]any{
				"embedding.provider": "openai", "embedding.api_key": "sk",
				"embedding.dimensions": int64(3072), "vector.dimensions": int64(1536),
			},
			wantErr: "do not match",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, store := newSettingsFixture(nil)
			for k, v := range tt.values {
				_ = store.Set(k, v)
			}

			err := service.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service, _ := newSettingsFixture(nil)
	assert.Equal(t, domain.DefaultAppSettings(), service.GetDefaults())
}

// mockAIValidator records which configs were validated.
type mockAIValidator struct {
	embeddingErr error
	llmErr       error
	embedCalls   int
	llmCalls     int
}

var _ driven.AIConfigValidator = (*mockAIValidator)(nil)

func (m *mockAIValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	m.embedCalls++
	return m.embeddingErr
}

func (m *mockAIValidator) ValidateLLM(_ *domain.LLMSettings) error {
	m.llmCalls++
	return m.llmErr
}

func TestSettingsService_ValidateConfigs(t *testing.T) {
	t.Run("nil validator", func(t *testing.T) {
		service, _ := newSettingsFixture(nil)
		assert.NoError(t, service.ValidateEmbeddingConfig())
		assert.NoError(t, service.ValidateLLMConfig())
	})

	t.Run("delegates to validator", func(t *testing.T) {
		validator := &mockAIValidator{llmErr: errors.New("connection refused")}
		service, _ := newSettingsFixture(nil)
		service.aiValidator = validator

		assert.NoError(t, service.ValidateEmbeddingConfig())
		assert.EqualError(t, service.ValidateLLMConfig(), "connection refused")
		assert.Equal(t, 1, validator.embedCalls)
		assert.Equal(t, 1, validator.llmCalls)
	})
}

func TestSettingsService_GetPipelineConfig(t *testing.T) {
	service, store := newSettingsFixture(nil)
	_ = store.Set("pipeline.chunker.chunk_size", int64(500))

	cfg := service.GetPipelineConfig()

	assert.Equal(t, []string{"sanitiser", "chunker"}, cfg.Processors)
	chunker := cfg.GetProcessorConfig("chunker")
	assert.Equal(t, int64(500), chunker["chunk_size"])
	assert.Equal(t, 200, chunker["overlap"], "unset keys keep defaults")
}

func TestSettingsService_GetSchedulerConfig(t *testing.T) {
	service, store := newSettingsFixture(nil)
	_ = store.Set("scheduler.retention_sweep.interval", "30m")
	_ = store.Set("scheduler.rights_overdue.enabled", false)

	cfg := service.GetSchedulerConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 30*time.Minute, cfg.Task(domain.TaskIDRetentionSweep).Interval)
	assert.False(t, cfg.Task(domain.TaskIDRightsOverdue).Enabled)
	assert.Equal(t, 24*time.Hour, cfg.Task(domain.TaskIDRightsOverdue).Interval)

	_ = store.Set("scheduler.enabled", false)
	assert.False(t, service.GetSchedulerConfig().Enabled)
}
