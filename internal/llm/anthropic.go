package llm

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient is the production Client, backed by anthropic-sdk-go.
type AnthropicClient struct {
	api   anthropic.Client
	model anthropic.Model
}

// NewAnthropicClient builds a Client using apiKey and model (e.g.
// anthropic.ModelClaude3_5HaikuLatest) for the summarize-for-indexing call.
func NewAnthropicClient(apiKey string, model anthropic.Model) *AnthropicClient {
	return &AnthropicClient{
		api:   anthropic.NewClient(option.WithAPIKey(apiKey)),
		model: model,
	}
}

// Run sends prompt as a single user message and returns the concatenated
// text blocks of the reply.
func (c *AnthropicClient) Run(ctx context.Context, prompt string) (string, error) {
	msg, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     c.model,
		MaxTokens: 1024,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("llm: anthropic run: %w", err)
	}
	var out string
	for _, block := range msg.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out, nil
}
