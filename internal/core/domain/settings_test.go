package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIProvider_IsValid(t *testing.T) {
	assert.True(t, AIProviderOpenAI.IsValid())
	assert.True(t, AIProviderCompatible.IsValid())
	assert.False(t, AIProvider("").IsValid())
	assert.False(t, AIProvider("anthropic").IsValid())
}

func TestAIProvider_RequiresAPIKey(t *testing.T) {
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
	assert.False(t, AIProviderCompatible.RequiresAPIKey())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		want     bool
	}{
		{"empty", EmbeddingSettings{}, false},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"}, true},
		{"compatible without key", EmbeddingSettings{Provider: AIProviderCompatible, BaseURL: "http://localhost:8000/v1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.settings.IsConfigured())
		})
	}
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.False(t, LLMSettings{}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOpenAI, APIKey: "sk-test"}.IsConfigured())
}

func TestVectorBackend_IsValid(t *testing.T) {
	for _, b := range AllVectorBackends() {
		assert.True(t, b.IsValid(), b)
		assert.NotEqual(t, unknownDescription, b.Description())
	}
	assert.False(t, VectorBackend("qdrant").IsValid())
	assert.Equal(t, unknownDescription, VectorBackend("qdrant").Description())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.Equal(t, VectorBackendSQLite, s.VectorIndex.Backend)
	assert.Equal(t, 5, s.Retrieval.K)
	assert.InDelta(t, 0.3, s.Retrieval.MinSimilarity, 1e-9)
	assert.Equal(t, ConfidencePolicyInflateLow, s.Retrieval.ConfidencePolicy)

	assert.Equal(t, 100, s.Governor.RateLimit)
	assert.Equal(t, 60*time.Second, s.Governor.Window)
	assert.Equal(t, []string{"IN"}, s.Governor.AllowedCountries)
	assert.Equal(t, 30*24*time.Hour, s.Governor.RetentionWindow())

	assert.Equal(t, 5, s.Jobs.Concurrency)
	assert.Equal(t, 3, s.Jobs.MaxAttempts)
	assert.Equal(t, 2*time.Second, s.Jobs.BaseBackoff)

	assert.Equal(t, 50*1024*1024, s.Parser.MaxBytes)
	assert.False(t, s.Embedding.IsConfigured())
	assert.False(t, s.LLM.IsConfigured())
}

func TestDefaultPipelineConfig(t *testing.T) {
	cfg := DefaultPipelineConfig()

	require.Equal(t, []string{"sanitiser", "chunker"}, cfg.Processors)
	chunker := cfg.GetProcessorConfig("chunker")
	require.NotNil(t, chunker)
	assert.Equal(t, 1000, chunker["chunk_size"])
	assert.Equal(t, 200, chunker["overlap"])
	assert.Nil(t, cfg.GetProcessorConfig("missing"))

	var empty PipelineConfig
	assert.Nil(t, empty.GetProcessorConfig("chunker"))
}
