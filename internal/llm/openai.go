// Package llm wraps the generative-AI collaborator behind a small client
// interface so services never depend on a concrete provider.
package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/haneul-lab/storybook-api/internal/models"
	"github.com/haneul-lab/storybook-api/internal/secretstore"
)

// Client produces one assistant reply for a conversation.
type Client interface {
	Complete(ctx context.Context, system string, history []models.ChatMessage, userMessage string) (string, error)
}

// OpenAIClient implements Client over the OpenAI chat completion API.
type OpenAIClient struct {
	client *openai.Client
	model  string
}

// NewOpenAIClient builds a client with the key from the secret store.
func NewOpenAIClient(secrets secretstore.Store, model string) (*OpenAIClient, error) {
	apiKey, err := secrets.Get()
	if err != nil {
		return nil, fmt.Errorf("assistant API key: %w", err)
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{client: openai.NewClient(apiKey), model: model}, nil
}

// Complete sends the system prompt, prior turns and the new user message.
func (c *OpenAIClient) Complete(ctx context.Context, system string, history []models.ChatMessage, userMessage string) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: system})
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == models.MessageRoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: userMessage})

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
