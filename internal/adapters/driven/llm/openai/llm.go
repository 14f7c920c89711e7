// Package openai provides a text generation adapter backed by the eino
// OpenAI chat model. It also serves OpenAI-compatible endpoints.
package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.TextGenerator = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "https://api.openai.com/v1"
	DefaultLLMModel   = "gpt-4o-mini"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig holds configuration for the OpenAI LLM service.
type LLMConfig struct {
	// APIKey is the API key. Compatible endpoints may leave it empty.
	APIKey string

	// BaseURL is the API base URL (default: https://api.openai.com/v1).
	BaseURL string

	// Model is the LLM model to use (default: gpt-4o-mini).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration

	// Temperature is passed through when non-zero.
	Temperature float32
}

// LLMService generates text with an eino chat model.
type LLMService struct {
	chat    model.BaseChatModel
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewLLMService creates a new OpenAI LLM service.
func NewLLMService(ctx context.Context, cfg LLMConfig) (*LLMService, error) {
	cfg = withLLMDefaults(cfg)

	einoCfg := &einoopenai.ChatModelConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}
	if cfg.Temperature > 0 {
		temp := cfg.Temperature
		einoCfg.Temperature = &temp
	}

	chat, err := einoopenai.NewChatModel(ctx, einoCfg)
	if err != nil {
		return nil, fmt.Errorf("openai: create chat model: %w", err)
	}
	return newLLMService(chat, cfg), nil
}

// NewLLMServiceWithModel wraps an existing eino chat model.
func NewLLMServiceWithModel(chat model.BaseChatModel, cfg LLMConfig) *LLMService {
	return newLLMService(chat, withLLMDefaults(cfg))
}

func newLLMService(chat model.BaseChatModel, cfg LLMConfig) *LLMService {
	return &LLMService{
		chat:    chat,
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}
}

func withLLMDefaults(cfg LLMConfig) LLMConfig {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return cfg
}

// Generate returns the model completion for a single user prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := s.chat.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("openai: generate: %w", err)
	}
	if msg == nil {
		return "", errors.New("openai: empty response")
	}
	return msg.Content, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping validates the service is reachable by checking the /models endpoint.
// This is a lightweight check that validates the API key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return pingModels(ctx, s.client, s.baseURL, s.apiKey)
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}

// pingModels issues GET {baseURL}/models.
func pingModels(ctx context.Context, client *http.Client, baseURL, apiKey string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/models", http.NoBody)
	if err != nil {
		return fmt.Errorf("openai: failed to create ping request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("openai: ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if err != nil {
			return fmt.Errorf("openai: API returned status %d (failed to read body: %w)", resp.StatusCode, err)
		}
		return fmt.Errorf("openai: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
