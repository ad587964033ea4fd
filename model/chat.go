// Package model provides LLM chat adapters for the research workflow.
//
// It abstracts the differences between providers (OpenAI, Anthropic,
// Google) behind a single ChatModel interface so workflow nodes never
// depend on a specific SDK.
package model

import "context"

// Role identifies the author of a chat message.
type Role string

const (
	// RoleSystem sets context and behavior for the conversation.
	RoleSystem Role = "system"

	// RoleUser is input from the end user or the workflow.
	RoleUser Role = "user"

	// RoleAssistant is a prior model response.
	RoleAssistant Role = "assistant"
)

// Message represents a single message in an LLM conversation.
//
// Messages follow the common chat format used by OpenAI, Anthropic, and
// Google.
type Message struct {
	// Role identifies the message author.
	Role Role

	// Content is the message text.
	Content string
}

// ChatOut is the result of a chat completion.
type ChatOut struct {
	// Text is the model's response content.
	Text string

	// TokensUsed is the total token count reported by the provider
	// (input plus output). Zero when the provider doesn't report usage.
	TokensUsed int
}

// ChatModel defines the interface for LLM chat providers.
//
// Implementations should:
//   - Handle provider-specific authentication
//   - Convert the standard Message format to the provider's format
//   - Parse provider responses back to ChatOut
//   - Respect context cancellation and timeouts
//
// Example usage:
//
//	m, err := model.New(model.Config{Provider: "anthropic", APIKey: key})
//	out, err := m.Chat(ctx, []model.Message{
//	    {Role: model.RoleUser, Content: "Summarize these findings."},
//	})
type ChatModel interface {
	// Chat sends messages to the LLM and returns the response.
	//
	// Returns a GenerationError for provider failures, or the context's
	// error when the call is canceled.
	Chat(ctx context.Context, messages []Message) (ChatOut, error)

	// Name returns the provider identifier ("openai", "anthropic",
	// "google", "mock"). Used in health reporting and logs.
	Name() string
}

// GenerationError represents a failure from an LLM provider.
//
// Retryable distinguishes transient failures (rate limits, server
// errors, network problems) from permanent ones (bad API key, quota).
type GenerationError struct {
	// Code is a machine-readable error code (rate_limited,
	// invalid_api_key, quota_exceeded, server_error, network_error,
	// api_error, timeout, empty_response).
	Code string

	// Message is the human-readable error description.
	Message string

	// Retryable indicates whether the call may succeed if retried.
	Retryable bool

	// Provider identifies which provider produced the error.
	Provider string
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Provider != "" {
		return e.Provider + ": " + e.Message
	}
	return e.Message
}
