package core

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// ChatMessage is the (role, content) projection of a stored message that is
// submitted to the external model. Timestamps and identifiers never cross
// this boundary.
type ChatMessage struct {
	Role    string
	Content string
}

// CompletionClient is the surface the chat and summarization services need
// from the external model. Implementations must treat any transport or
// schema deviation as an error.
type CompletionClient interface {
	ChatCompletion(ctx context.Context, messages []ChatMessage) (string, error)
}

// OpenAIService calls the OpenAI chat completions API with a fixed model
// identifier and no additional generation parameters.
type OpenAIService struct {
	client *openai.Client
	model  string
}

func NewOpenAIService(apiKey, model string) *OpenAIService {
	return &OpenAIService{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

func (s *OpenAIService) ChatCompletion(ctx context.Context, messages []ChatMessage) (string, error) {
	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		role := m.Role
		if role != openai.ChatMessageRoleSystem && role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			// coerce anything unknown to user
			role = openai.ChatMessageRoleUser
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: oaMsgs,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
