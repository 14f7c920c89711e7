package ai

import (
	"context"
	"time"

	"github.com/custodia-labs/aegis/internal/core/domain"
	"github.com/custodia-labs/aegis/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// pinger is the part of a provider client the validator needs.
type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

// ConfigValidator checks settings by building a throwaway client and
// pinging it. Unconfigured settings are valid.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator returns a validator that waits pingTimeout per check.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{timeout: pingTimeout}
}

// ValidateEmbedding pings the embedding provider described by config.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(context.Background(), config)
	if err != nil || svc == nil {
		return err
	}
	return v.ping(svc)
}

// ValidateLLM pings the LLM provider described by config.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	svc, err := CreateLLMService(context.Background(), config)
	if err != nil || svc == nil {
		return err
	}
	return v.ping(svc)
}

func (v *ConfigValidator) ping(p pinger) error {
	defer func() { _ = p.Close() }()
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	return p.Ping(ctx)
}
