package model

import (
	"context"
	"fmt"
)

// Config selects and configures a chat provider.
type Config struct {
	// Provider is one of "openai", "anthropic", "google", "mock".
	Provider string

	// APIKey authenticates with the provider.
	APIKey string

	// Model is the provider-specific model name. Empty selects the
	// provider's default.
	Model string
}

// New creates the chat provider selected by cfg.Provider.
//
// The "mock" provider needs no credentials and is intended for tests
// and offline development.
func New(ctx context.Context, cfg Config) (ChatModel, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIModel(cfg.APIKey, cfg.Model)
	case "anthropic":
		return NewAnthropicModel(cfg.APIKey, cfg.Model)
	case "google":
		return NewGoogleModel(ctx, cfg.APIKey, cfg.Model)
	case "mock":
		return &MockModel{Responses: []ChatOut{{Text: "mock response"}}}, nil
	default:
		return nil, fmt.Errorf("unknown model provider: %q", cfg.Provider)
	}
}
