package driven

import "context"

// TextGenerator produces completions for the analysis agents and the classifier.
// Implementations are injected; nothing in core holds a global client.
type TextGenerator interface {
	// Generate returns the model completion for prompt.
	// A transport or API failure is returned as an error.
	Generate(ctx context.Context, prompt string) (string, error)

	// ModelName returns the name of the model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
