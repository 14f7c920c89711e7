package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOpenAI is the OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderCompatible is any OpenAI-compatible endpoint (vLLM, LM Studio, gateways).
	AIProviderCompatible AIProvider = "openai-compatible"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderCompatible:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderCompatible:
		return "OpenAI-compatible endpoint"
	default:
		return unknownDescription
	}
}

// VectorBackend selects the vector tier implementation.
type VectorBackend string

// Available vector backends.
const (
	// VectorBackendSQLite scans stored embeddings in process.
	VectorBackendSQLite VectorBackend = "sqlite"

	// VectorBackendRedis uses RediSearch KNN queries.
	VectorBackendRedis VectorBackend = "redis"

	// VectorBackendPGVector uses Postgres with the pgvector extension.
	VectorBackendPGVector VectorBackend = "pgvector"

	// VectorBackendNone disables the vector tier; retrieval always falls back.
	VectorBackendNone VectorBackend = "none"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendRedis, VectorBackendPGVector, VectorBackendNone:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the backend.
func (b VectorBackend) Description() string {
	switch b {
	case VectorBackendSQLite:
		return "SQLite (in-process cosine scan)"
	case VectorBackendRedis:
		return "Redis (RediSearch HNSW)"
	case VectorBackendPGVector:
		return "Postgres (pgvector)"
	case VectorBackendNone:
		return "Disabled (text fallback only)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key.
	APIKey string

	// Dimensions is the vector size produced by Model.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds text-generation provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key.
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorIndexSettings holds vector tier configuration.
type VectorIndexSettings struct {
	// Backend selects the implementation.
	Backend VectorBackend

	// RedisAddr is the Redis address for the redis backend.
	RedisAddr string

	// RedisPassword authenticates to Redis.
	RedisPassword string

	// IndexName is the RediSearch index name.
	IndexName string

	// PostgresDSN is the connection string for the pgvector backend.
	PostgresDSN string

	// Dimensions is the embedding vector size.
	Dimensions int
}

// RetrievalSettings holds retrieval engine configuration.
type RetrievalSettings struct {
	// K is the default number of hits.
	K int

	// MinSimilarity is the default vector tier threshold.
	MinSimilarity float64

	// ConfidencePolicy controls displayed confidence.
	ConfidencePolicy ConfidencePolicy
}

// GovernorSettings holds rate-limit, transfer and retention configuration.
type GovernorSettings struct {
	// RateLimit is the number of outbound fetches allowed per Window.
	RateLimit int

	// Window is the sliding window length.
	Window time.Duration

	// Burst caps back-to-back fetches; zero disables pacing.
	Burst int

	// AllowedCountries is the cross-border transfer allow-list.
	AllowedCountries []string

	// RetentionDays is how long fetched data is cached.
	RetentionDays int

	// FetchURL is the external data-fetch endpoint.
	FetchURL string

	// FetchAPIKey authenticates to the fetch endpoint.
	FetchAPIKey string
}

// RetentionWindow returns the cache retention as a duration.
func (g GovernorSettings) RetentionWindow() time.Duration {
	return time.Duration(g.RetentionDays) * 24 * time.Hour
}

// JobSettings holds analysis job runner configuration.
type JobSettings struct {
	// Concurrency is the number of workers.
	Concurrency int

	// MaxAttempts is the number of tries per job.
	MaxAttempts int

	// BaseBackoff is the first retry delay; later delays double.
	BaseBackoff time.Duration
}

// ParserSettings holds parser configuration.
type ParserSettings struct {
	// OCRTimeout bounds a single OCR invocation.
	OCRTimeout time.Duration

	// MaxBytes is the largest accepted upload.
	MaxBytes int
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding   EmbeddingSettings
	LLM         LLMSettings
	VectorIndex VectorIndexSettings
	Retrieval   RetrievalSettings
	Governor    GovernorSettings
	Jobs        JobSettings
	Parser      ParserSettings
	Pipeline    PipelineConfig
}

// DefaultAppSettings returns settings with sensible defaults.
// AI features are left unconfigured until a key is provided.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{},
		LLM:       LLMSettings{},
		VectorIndex: VectorIndexSettings{
			Backend:    VectorBackendSQLite,
			RedisAddr:  "localhost:6379",
			IndexName:  "aegis-chunks",
			Dimensions: 1536,
		},
		Retrieval: RetrievalSettings{
			K:                DefaultRetrievalK,
			MinSimilarity:    DefaultMinSimilarity,
			ConfidencePolicy: ConfidencePolicyInflateLow,
		},
		Governor: GovernorSettings{
			RateLimit:        100,
			Window:           60 * time.Second,
			AllowedCountries: []string{"IN"},
			RetentionDays:    30,
		},
		Jobs: JobSettings{
			Concurrency: 5,
			MaxAttempts: 3,
			BaseBackoff: 2 * time.Second,
		},
		Parser: ParserSettings{
			OCRTimeout: 2 * time.Minute,
			MaxBytes:   50 * 1024 * 1024,
		},
		Pipeline: DefaultPipelineConfig(),
	}
}

// AllAIProviders returns all available AI providers.
func AllAIProviders() []AIProvider {
	return []AIProvider{AIProviderOpenAI, AIProviderCompatible}
}

// AllVectorBackends returns all available vector backends.
func AllVectorBackends() []VectorBackend {
	return []VectorBackend{
		VectorBackendSQLite,
		VectorBackendRedis,
		VectorBackendPGVector,
		VectorBackendNone,
	}
}

// DefaultEmbeddingModels returns the default embedding model for each provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns the default LLM for each provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOpenAI: "gpt-4o-mini",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}

// PipelineConfig holds post-processor pipeline configuration.
// Uses generic map-based config for extensibility - new processors can be added
// without modifying this struct.
type PipelineConfig struct {
	// Processors is the ordered list of processor names to run.
	Processors []string

	// ProcessorConfigs holds per-processor configuration as generic maps.
	// Key is processor name, value is processor-specific config.
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns config for a specific processor, or nil if not set.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	if c.ProcessorConfigs == nil {
		return nil
	}
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig returns the default pipeline configuration:
// control-character sanitising followed by sentence chunking.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"sanitiser", "chunker"},
		ProcessorConfigs: map[string]map[string]any{
			"chunker": {
				"chunk_size": 1000,
				"overlap":    200,
			},
		},
	}
}
