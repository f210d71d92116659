package ai

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps the OpenAI chat-completion API. It carries no session state;
// callers pass the full prompt context on every call.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
}

// New creates a new completion client from the environment.
func New() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	model := os.Getenv("LANGUAGE_MODEL")
	if model == "" {
		model = openai.GPT3Dot5Turbo
	}

	temperature := float32(0.7)
	if tempStr := os.Getenv("TEMPERATURE"); tempStr != "" {
		if t, err := strconv.ParseFloat(tempStr, 32); err == nil {
			temperature = float32(t)
		}
	}

	return &Client{
		api:         openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
	}, nil
}

// Complete sends one prompt to the model and returns its text. The
// serialized conversation history rides along in the user message so the
// model sees the full conversational context on every call.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt, history string) (string, error) {
	content := userPrompt
	if history != "" {
		content = userPrompt + "\n\nConversation history:\n" + history
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
	})
	if err != nil {
		return "", fmt.Errorf("completion request failed: %v", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
