package model

import (
	"context"
	"errors"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicModel implements ChatModel using Anthropic's Messages API.
//
// Anthropic treats the system prompt as a top-level parameter rather
// than a message, so system messages are lifted out of the conversation
// before the call.
type AnthropicModel struct {
	client    *anthropic.Client
	model     string
	maxTokens int64
}

// DefaultAnthropicModel is used when no model name is configured.
const DefaultAnthropicModel = "claude-3-5-sonnet-latest"

// NewAnthropicModel creates a new Anthropic chat provider.
//
// The API key can be obtained from https://console.anthropic.com/
func NewAnthropicModel(apiKey, modelName string) (*AnthropicModel, error) {
	if apiKey == "" {
		return nil, errors.New("API key cannot be empty")
	}
	if modelName == "" {
		modelName = DefaultAnthropicModel
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicModel{
		client:    &client,
		model:     modelName,
		maxTokens: 4096,
	}, nil
}

// Name returns "anthropic" as the provider identifier.
func (m *AnthropicModel) Name() string {
	return "anthropic"
}

// Chat sends messages to Anthropic and returns the response.
func (m *AnthropicModel) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return ChatOut{}, err
	}

	var system string
	params := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = msg.Content
		case RoleAssistant:
			params = append(params, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params = append(params, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	req := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: m.maxTokens,
		Messages:  params,
	}
	if system != "" {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}

	message, err := m.client.Messages.New(ctx, req)
	if err != nil {
		return ChatOut{}, classifyError(m.Name(), err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		return ChatOut{}, &GenerationError{
			Code:     "empty_response",
			Message:  "no text content in message",
			Provider: m.Name(),
		}
	}

	return ChatOut{
		Text:       text,
		TokensUsed: int(message.Usage.InputTokens + message.Usage.OutputTokens),
	}, nil
}
