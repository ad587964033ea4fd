package model

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GoogleModel implements ChatModel using Google's Gemini API.
//
// Gemini has no native system role; system messages are prepended to
// the conversation as plain text.
type GoogleModel struct {
	client *genai.Client
	model  string
}

// DefaultGoogleModel is used when no model name is configured.
const DefaultGoogleModel = "gemini-1.5-flash"

// NewGoogleModel creates a new Gemini chat provider.
//
// Callers should Close the provider when done to release the underlying
// client connection.
func NewGoogleModel(ctx context.Context, apiKey, modelName string) (*GoogleModel, error) {
	if apiKey == "" {
		return nil, errors.New("API key cannot be empty")
	}
	if modelName == "" {
		modelName = DefaultGoogleModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &GoogleModel{
		client: client,
		model:  modelName,
	}, nil
}

// Name returns "google" as the provider identifier.
func (m *GoogleModel) Name() string {
	return "google"
}

// Close closes the underlying Gemini client and releases resources.
func (m *GoogleModel) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// Chat sends messages to Gemini and returns the response.
func (m *GoogleModel) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return ChatOut{}, err
	}

	gm := m.client.GenerativeModel(m.model)

	parts := make([]genai.Part, 0, len(messages))
	for _, msg := range messages {
		parts = append(parts, genai.Text(msg.Content))
	}

	resp, err := gm.GenerateContent(ctx, parts...)
	if err != nil {
		return ChatOut{}, classifyError(m.Name(), err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ChatOut{}, &GenerationError{
			Code:     "empty_response",
			Message:  "no candidates in response",
			Provider: m.Name(),
		}
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}

	var tokens int
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return ChatOut{Text: text, TokensUsed: tokens}, nil
}
