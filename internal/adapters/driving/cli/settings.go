package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/aegis/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure AI providers, the vector tier, retrieval confidence
and governor limits.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long:  `Configure the embedding provider used by the vector tier.`,
	RunE:  runSettingsEmbedding,
}

var settingsLLMCmd = &cobra.Command{
	Use:   "llm",
	Short: "Configure LLM provider",
	Long:  `Configure the LLM provider used by the classifier and the analysis agents.`,
	RunE:  runSettingsLLM,
}

var settingsVectorCmd = &cobra.Command{
	Use:   "vector [sqlite|redis|pgvector|none]",
	Short: "Select the vector backend",
	Long: `Select where chunk embeddings are stored and searched.

Available backends:
  sqlite   - In-process cosine scan over the local store (default)
  redis    - RediSearch KNN index
  pgvector - Postgres with the pgvector extension
  none     - Disable the vector tier; retrieval always uses the fallback`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsVector,
}

var settingsPolicyCmd = &cobra.Command{
	Use:   "policy [inflate_low|calibrated]",
	Short: "Select how retrieval confidence is displayed",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsPolicy,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:   "set-key [embedding|llm|fetch]",
	Short: "Store an API key",
	Long: `Prompt for an API key and store it in the config file.
Keys set through OPENAI_API_KEY or AEGIS_FETCH_API_KEY take precedence.`,
	Args: cobra.ExactArgs(1),
	RunE: runSettingsSetKey,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	settingsCmd.AddCommand(settingsLLMCmd)
	settingsCmd.AddCommand(settingsVectorCmd)
	settingsCmd.AddCommand(settingsPolicyCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	printProvider(cmd, settings.Embedding.Provider, settings.Embedding.Model,
		settings.Embedding.BaseURL, settings.Embedding.APIKey, settings.Embedding.IsConfigured())
	cmd.Println()

	cmd.Println("[LLM]")
	printProvider(cmd, settings.LLM.Provider, settings.LLM.Model,
		settings.LLM.BaseURL, settings.LLM.APIKey, settings.LLM.IsConfigured())
	cmd.Println()

	cmd.Println("[Vector Index]")
	cmd.Printf("  Backend: %s\n", settings.VectorIndex.Backend.Description())
	switch settings.VectorIndex.Backend {
	case domain.VectorBackendRedis:
		cmd.Printf("  Redis: %s (index %s)\n", settings.VectorIndex.RedisAddr, settings.VectorIndex.IndexName)
	case domain.VectorBackendPGVector:
		dsn := "(not set)"
		if settings.VectorIndex.PostgresDSN != "" {
			dsn = "(set)"
		}
		cmd.Printf("  Postgres DSN: %s\n", dsn)
	}
	cmd.Printf("  Dimensions: %d\n", settings.VectorIndex.Dimensions)
	cmd.Println()

	cmd.Println("[Retrieval]")
	cmd.Printf("  K: %d\n", settings.Retrieval.K)
	cmd.Printf("  Min similarity: %.2f\n", settings.Retrieval.MinSimilarity)
	cmd.Printf("  Confidence policy: %s\n", settings.Retrieval.ConfidencePolicy)
	cmd.Println()

	cmd.Println("[Governor]")
	cmd.Printf("  Rate limit: %d per %s\n", settings.Governor.RateLimit, settings.Governor.Window)
	if settings.Governor.Burst > 0 {
		cmd.Printf("  Burst: %d\n", settings.Governor.Burst)
	}
	cmd.Printf("  Allowed countries: %s\n", strings.Join(settings.Governor.AllowedCountries, ", "))
	cmd.Printf("  Retention: %d days\n", settings.Governor.RetentionDays)
	if settings.Governor.FetchURL != "" {
		cmd.Printf("  Fetch URL: %s\n", settings.Governor.FetchURL)
	} else {
		cmd.Printf("  Fetch URL: (not set)\n")
	}
	cmd.Println()

	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'aegis settings embedding' or 'aegis settings llm' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func printProvider(cmd *cobra.Command, provider domain.AIProvider, model, baseURL, apiKey string, configured bool) {
	cmd.Printf("  Provider: %s\n", provider.Description())
	cmd.Printf("  Model: %s\n", model)
	if baseURL != "" {
		cmd.Printf("  Base URL: %s\n", baseURL)
	}
	if provider.RequiresAPIKey() {
		if apiKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(apiKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	status := "configured"
	if !configured {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(os.Stdin)
	return configureEmbeddingProvider(cmd, reader)
}

func runSettingsLLM(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	reader := bufio.NewReader(os.Stdin)
	return configureLLMProvider(cmd, reader)
}

func runSettingsVector(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	backend := domain.VectorBackend(args[0])
	if err := settingsService.SetVectorBackend(backend); err != nil {
		return fmt.Errorf("failed to set vector backend: %w", err)
	}

	cmd.Printf("Vector backend set to: %s\n", backend.Description())
	return nil
}

func runSettingsPolicy(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	policy := domain.ConfidencePolicy(args[0])
	if err := settingsService.SetConfidencePolicy(policy); err != nil {
		return fmt.Errorf("failed to set confidence policy: %w", err)
	}

	cmd.Printf("Confidence policy set to: %s\n", policy)
	return nil
}

func runSettingsSetKey(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Print("Enter API key: ")
	key := readPassword()
	cmd.Println()
	if key == "" {
		return errors.New("API key must not be empty")
	}

	switch args[0] {
	case "embedding":
		settings.Embedding.APIKey = key
	case "llm":
		settings.LLM.APIKey = key
	case "fetch":
		settings.Governor.FetchAPIKey = key
	default:
		return fmt.Errorf("unknown key target %q (want embedding, llm or fetch)", args[0])
	}

	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}

	cmd.Printf("%s API key saved.\n", args[0])
	return nil
}

//nolint:dupl // Similar to configureLLMProvider but for embeddings - intentional for CLI flow clarity
func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllAIProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	if selectedProvider == domain.AIProviderCompatible {
		if err := setBaseURL(cmd, reader, func(s *domain.AppSettings, url string) { s.Embedding.BaseURL = url }); err != nil {
			return err
		}
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

//nolint:dupl // Similar to configureEmbeddingProvider but for LLM - intentional for CLI flow clarity
func configureLLMProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select LLM Provider")
	providers := domain.AllAIProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultLLMModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key: ")
		apiKey = readPassword()
		cmd.Println()
		if apiKey == "" {
			return errors.New("API key is required for this provider")
		}
	}

	if err := settingsService.SetLLMProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure LLM provider: %w", err)
	}
	if selectedProvider == domain.AIProviderCompatible {
		if err := setBaseURL(cmd, reader, func(s *domain.AppSettings, url string) { s.LLM.BaseURL = url }); err != nil {
			return err
		}
	}

	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateLLMConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("LLM configuration validation failed: %w", err)
	}
	cmd.Println("OK")

	cmd.Printf("LLM provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

// setBaseURL prompts for an OpenAI-compatible endpoint and stores it.
func setBaseURL(cmd *cobra.Command, reader *bufio.Reader, apply func(*domain.AppSettings, string)) error {
	cmd.Print("Enter base URL (e.g. http://localhost:8000/v1): ")
	url := readLine(reader)
	if url == "" {
		return errors.New("base URL is required for an OpenAI-compatible endpoint")
	}
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	apply(settings, url)
	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save base URL: %w", err)
	}
	return nil
}

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

//nolint:errcheck // CLI helper, error ignored for UX
func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
