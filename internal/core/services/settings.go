package services

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
	"github.com/custodia-labs/aegis/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedDims        = "embedding.dimensions"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyVectorBackend    = "vector.backend"
	keyVectorRedisAddr  = "vector.redis_addr"
	keyVectorRedisPass  = "vector.redis_password"
	keyVectorIndexName  = "vector.index_name"
	keyVectorPGDSN      = "vector.postgres_dsn"
	keyVectorDims       = "vector.dimensions"
	keyRetrievalK       = "retrieval.k"
	keyRetrievalMinSim  = "retrieval.min_similarity"
	keyRetrievalPolicy  = "retrieval.confidence_policy"
	keyGovRateLimit     = "governor.rate_limit"
	keyGovWindow        = "governor.window"
	keyGovBurst         = "governor.burst"
	keyGovCountries     = "governor.allowed_countries"
	keyGovRetentionDays = "governor.retention_days"
	keyGovFetchURL      = "governor.fetch_url"
	keyGovFetchAPIKey   = "governor.fetch_api_key"
	keyJobsConcurrency  = "jobs.concurrency"
	keyJobsMaxAttempts  = "jobs.max_attempts"
	keyJobsBaseBackoff  = "jobs.base_backoff"
	keyParserOCRTimeout = "parser.ocr_timeout"
	keyParserMaxBytes   = "parser.max_bytes"
)

// Environment variables that override secrets and DSNs from the config file.
//
//nolint:gosec // G101: These are variable names, not actual credentials.
const (
	EnvOpenAIAPIKey  = "OPENAI_API_KEY"
	EnvRedisPassword = "AEGIS_REDIS_PASSWORD"
	EnvPostgresDSN   = "AEGIS_POSTGRES_DSN"
	EnvFetchAPIKey   = "AEGIS_FETCH_API_KEY"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:      s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL), // Empty means the provider's default endpoint
			APIKey:     s.secret(keyEmbedAPIKey, EnvOpenAIAPIKey),
			Dimensions: s.getInt(keyEmbedDims, defaults.VectorIndex.Dimensions),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.secret(keyLLMAPIKey, EnvOpenAIAPIKey),
		},
		VectorIndex: domain.VectorIndexSettings{
			Backend:       s.getVectorBackend(defaults.VectorIndex.Backend),
			RedisAddr:     s.getString(keyVectorRedisAddr, defaults.VectorIndex.RedisAddr),
			RedisPassword: s.secret(keyVectorRedisPass, EnvRedisPassword),
			IndexName:     s.getString(keyVectorIndexName, defaults.VectorIndex.IndexName),
			PostgresDSN:   s.secret(keyVectorPGDSN, EnvPostgresDSN),
			Dimensions:    s.getInt(keyVectorDims, defaults.VectorIndex.Dimensions),
		},
		Retrieval: domain.RetrievalSettings{
			K:                s.getInt(keyRetrievalK, defaults.Retrieval.K),
			MinSimilarity:    s.getFloat(keyRetrievalMinSim, defaults.Retrieval.MinSimilarity),
			ConfidencePolicy: s.getConfidencePolicy(defaults.Retrieval.ConfidencePolicy),
		},
		Governor: domain.GovernorSettings{
			RateLimit:        s.getInt(keyGovRateLimit, defaults.Governor.RateLimit),
			Window:           s.getDuration(keyGovWindow, defaults.Governor.Window),
			Burst:            s.configStore.GetInt(keyGovBurst),
			AllowedCountries: s.getStringSlice(keyGovCountries, defaults.Governor.AllowedCountries),
			RetentionDays:    s.getInt(keyGovRetentionDays, defaults.Governor.RetentionDays),
			FetchURL:         s.configStore.GetString(keyGovFetchURL),
			FetchAPIKey:      s.secret(keyGovFetchAPIKey, EnvFetchAPIKey),
		},
		Jobs: domain.JobSettings{
			Concurrency: s.getInt(keyJobsConcurrency, defaults.Jobs.Concurrency),
			MaxAttempts: s.getInt(keyJobsMaxAttempts, defaults.Jobs.MaxAttempts),
			BaseBackoff: s.getDuration(keyJobsBaseBackoff, defaults.Jobs.BaseBackoff),
		},
		Parser: domain.ParserSettings{
			OCRTimeout: s.getDuration(keyParserOCRTimeout, defaults.Parser.OCRTimeout),
			MaxBytes:   s.getInt(keyParserMaxBytes, defaults.Parser.MaxBytes),
		},
		Pipeline: s.GetPipelineConfig(),
	}

	return settings, nil
}

// Save persists application settings.
// Secrets are only written when set, so an env-provided key never lands on disk.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	entries := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDims, settings.Embedding.Dimensions},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyVectorBackend, string(settings.VectorIndex.Backend)},
		{keyVectorRedisAddr, settings.VectorIndex.RedisAddr},
		{keyVectorIndexName, settings.VectorIndex.IndexName},
		{keyVectorDims, settings.VectorIndex.Dimensions},
		{keyRetrievalK, settings.Retrieval.K},
		{keyRetrievalMinSim, settings.Retrieval.MinSimilarity},
		{keyRetrievalPolicy, string(settings.Retrieval.ConfidencePolicy)},
		{keyGovRateLimit, settings.Governor.RateLimit},
		{keyGovWindow, settings.Governor.Window.String()},
		{keyGovBurst, settings.Governor.Burst},
		{keyGovCountries, settings.Governor.AllowedCountries},
		{keyGovRetentionDays, settings.Governor.RetentionDays},
		{keyGovFetchURL, settings.Governor.FetchURL},
		{keyJobsConcurrency, settings.Jobs.Concurrency},
		{keyJobsMaxAttempts, settings.Jobs.MaxAttempts},
		{keyJobsBaseBackoff, settings.Jobs.BaseBackoff.String()},
		{keyParserOCRTimeout, settings.Parser.OCRTimeout.String()},
		{keyParserMaxBytes, settings.Parser.MaxBytes},
	}
	batch := make(map[string]any, len(entries))
	for _, e := range entries {
		batch[e.key] = e.value
	}

	// Secrets supplied through the environment stay out of the config file.
	secrets := []struct {
		key, env, value string
	}{
		{keyEmbedAPIKey, EnvOpenAIAPIKey, settings.Embedding.APIKey},
		{keyLLMAPIKey, EnvOpenAIAPIKey, settings.LLM.APIKey},
		{keyVectorRedisPass, EnvRedisPassword, settings.VectorIndex.RedisPassword},
		{keyVectorPGDSN, EnvPostgresDSN, settings.VectorIndex.PostgresDSN},
		{keyGovFetchAPIKey, EnvFetchAPIKey, settings.Governor.FetchAPIKey},
	}
	for _, sec := range secrets {
		if sec.value == "" {
			continue
		}
		if s.getenv != nil && s.getenv(sec.env) == sec.value {
			continue
		}
		batch[sec.key] = sec.value
	}

	if err := s.configStore.SetAll(batch); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	// Cloud providers use their own endpoint
	if provider == domain.AIProviderOpenAI {
		settings.Embedding.BaseURL = ""
	}

	settings.Embedding.APIKey = apiKey

	// Keep vector dimensions in step with the model
	if d, ok := domain.EmbeddingDimensions()[settings.Embedding.Model]; ok {
		settings.Embedding.Dimensions = d
		settings.VectorIndex.Dimensions = d
	}

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}

	// Validate API key if required
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider

	// Set model - use provided or default
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider == domain.AIProviderOpenAI {
		settings.LLM.BaseURL = ""
	}

	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetConfidencePolicy selects how retrieval confidence is displayed.
func (s *SettingsService) SetConfidencePolicy(policy domain.ConfidencePolicy) error {
	if !policy.IsValid() {
		return fmt.Errorf("invalid confidence policy: %s", policy)
	}
	return s.configStore.Set(keyRetrievalPolicy, string(policy))
}

// SetVectorBackend selects the vector tier implementation.
func (s *SettingsService) SetVectorBackend(backend domain.VectorBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("invalid vector backend: %s", backend)
	}
	return s.configStore.Set(keyVectorBackend, string(backend))
}

// Validate checks if current settings are internally consistent.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var problems []string
	if settings.Embedding.Provider == domain.AIProviderCompatible && settings.Embedding.BaseURL == "" {
		problems = append(problems, "embedding provider openai-compatible requires base_url")
	}
	if settings.LLM.Provider == domain.AIProviderCompatible && settings.LLM.BaseURL == "" {
		problems = append(problems, "llm provider openai-compatible requires base_url")
	}

	vec := settings.VectorIndex
	switch vec.Backend {
	case domain.VectorBackendRedis:
		if vec.RedisAddr == "" {
			problems = append(problems, "vector backend redis requires vector.redis_addr")
		}
	case domain.VectorBackendPGVector:
		if vec.PostgresDSN == "" {
			problems = append(problems, "vector backend pgvector requires vector.postgres_dsn or "+EnvPostgresDSN)
		}
	}
	if vec.Backend != domain.VectorBackendNone && settings.Embedding.IsConfigured() &&
		settings.Embedding.Dimensions > 0 && vec.Dimensions != settings.Embedding.Dimensions {
		problems = append(problems, fmt.Sprintf("vector dimensions %d do not match embedding dimensions %d",
			vec.Dimensions, settings.Embedding.Dimensions))
	}

	if settings.Retrieval.K <= 0 {
		problems = append(problems, "retrieval.k must be positive")
	}
	if settings.Retrieval.MinSimilarity < 0 || settings.Retrieval.MinSimilarity > 1 {
		problems = append(problems, "retrieval.min_similarity must be within [0, 1]")
	}
	if settings.Governor.RateLimit <= 0 || settings.Governor.Window <= 0 {
		problems = append(problems, "governor rate_limit and window must be positive")
	}
	if settings.Governor.RetentionDays <= 0 {
		problems = append(problems, "governor.retention_days must be positive")
	}
	if settings.Jobs.Concurrency <= 0 || settings.Jobs.MaxAttempts <= 0 {
		problems = append(problems, "jobs concurrency and max_attempts must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", domain.ErrInvalidInput, strings.Join(problems, "; "))
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetDuration(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getStringSlice(key string, defaultVal []string) []string {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetStringSlice(key)
}

// secret prefers the environment over the config file.
func (s *SettingsService) secret(key, env string) string {
	if s.getenv != nil {
		if val := s.getenv(env); val != "" {
			return val
		}
	}
	return s.configStore.GetString(key)
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getVectorBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	backend := domain.VectorBackend(s.configStore.GetString(keyVectorBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getConfidencePolicy(defaultVal domain.ConfidencePolicy) domain.ConfidencePolicy {
	policy := domain.ConfidencePolicy(s.configStore.GetString(keyRetrievalPolicy))
	if !policy.IsValid() {
		return defaultVal
	}
	return policy
}

// GetPipelineConfig returns the post-processor pipeline configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetPipelineConfig() domain.PipelineConfig {
	defaults := domain.DefaultPipelineConfig()

	if processors := s.configStore.GetStringSlice("pipeline.processors"); len(processors) > 0 {
		defaults.Processors = processors
	}

	// Merge per-processor keys over the defaults
	for _, name := range defaults.Processors {
		cfg := s.loadProcessorConfig("pipeline." + name + ".")
		if len(cfg) == 0 {
			continue
		}
		if defaults.ProcessorConfigs == nil {
			defaults.ProcessorConfigs = make(map[string]map[string]any)
		}
		existing := defaults.ProcessorConfigs[name]
		if existing == nil {
			existing = make(map[string]any)
		}
		for k, v := range cfg {
			existing[k] = v
		}
		defaults.ProcessorConfigs[name] = existing
	}

	return defaults
}

// loadProcessorConfig loads config keys with a given prefix into a map.
func (s *SettingsService) loadProcessorConfig(prefix string) map[string]any {
	cfg := make(map[string]any)

	knownKeys := []string{"chunk_size", "overlap", "max_length"}
	for _, key := range knownKeys {
		if val, exists := s.configStore.Get(prefix + key); exists {
			cfg[key] = val
		}
	}

	return cfg
}

// GetSchedulerConfig returns the scheduler configuration.
// Each task reads [scheduler.<config_key>] enabled and interval.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	cfg := domain.DefaultSchedulerConfig()
	cfg.Enabled = s.getBool("scheduler.enabled", cfg.Enabled)

	for _, spec := range domain.GovernanceTasks() {
		prefix := "scheduler." + spec.ConfigKey + "."
		task := cfg.Tasks[spec.ID]
		task.Enabled = s.getBool(prefix+"enabled", task.Enabled)
		task.Interval = s.getDuration(prefix+"interval", task.Interval)
		cfg.Tasks[spec.ID] = task
	}
	return cfg
}
