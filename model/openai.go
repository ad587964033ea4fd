package model

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

// OpenAIModel implements ChatModel using OpenAI's chat completions API.
//
// The provider is safe for concurrent use as the underlying OpenAI client
// handles thread-safety internally.
type OpenAIModel struct {
	client *openai.Client
	model  string
}

// DefaultOpenAIModel is used when no model name is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// NewOpenAIModel creates a new OpenAI chat provider.
//
// Parameters:
//   - apiKey: OpenAI API key (required)
//   - modelName: Model to use (e.g. "gpt-4o", "gpt-4o-mini"); empty
//     selects DefaultOpenAIModel
func NewOpenAIModel(apiKey, modelName string) (*OpenAIModel, error) {
	if apiKey == "" {
		return nil, errors.New("API key cannot be empty")
	}
	if modelName == "" {
		modelName = DefaultOpenAIModel
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &OpenAIModel{
		client: &client,
		model:  modelName,
	}, nil
}

// Name returns "openai" as the provider identifier.
func (m *OpenAIModel) Name() string {
	return "openai"
}

// Chat sends messages to OpenAI and returns the response.
func (m *OpenAIModel) Chat(ctx context.Context, messages []Message) (ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return ChatOut{}, err
	}

	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			params = append(params, openai.ChatCompletionMessageParamUnion{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			})
		case RoleAssistant:
			params = append(params, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Content: openai.ChatCompletionAssistantMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			})
		default:
			params = append(params, openai.ChatCompletionMessageParamUnion{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfString: openai.String(msg.Content),
					},
				},
			})
		}
	}

	completion, err := m.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.model),
		Messages: params,
	})
	if err != nil {
		return ChatOut{}, classifyError(m.Name(), err)
	}

	if len(completion.Choices) == 0 {
		return ChatOut{}, &GenerationError{
			Code:     "empty_response",
			Message:  "no choices in completion",
			Provider: m.Name(),
		}
	}

	return ChatOut{
		Text:       completion.Choices[0].Message.Content,
		TokensUsed: int(completion.Usage.TotalTokens),
	}, nil
}
