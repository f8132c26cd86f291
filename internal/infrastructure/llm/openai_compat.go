package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"SentinelAI/internal/config"
	"SentinelAI/internal/ports"
)

const systemPrompt = "You are a threat-intelligence analyst. Answer concisely and follow the requested output format exactly."

// Client is one OpenAI-compatible chat endpoint reduced to the pipeline's
// Complete operation. Moonshot, Grok, DeepSeek, and OpenAI all speak this
// protocol; only the base URL, model, and key differ.
type Client struct {
	name   string
	model  string
	client *openai.Client
}

var _ ports.Completer = (*Client)(nil)

// NewClient builds a provider client from configuration.
func NewClient(cfg config.ProviderConfig) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		name:   cfg.Name,
		model:  cfg.Model,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

// Complete sends one prompt and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	if c.model == "" {
		return "", fmt.Errorf("provider %s misconfigured: no model", c.name)
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("provider %s: %w", c.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("provider %s returned no choices", c.name)
	}
	return resp.Choices[0].Message.Content, nil
}

// BuildClients constructs the provider id -> client map the router
// resolves against. Providers without an API key are still constructed;
// their calls fail and the circuit opens, which is the intended
// degradation path.
func BuildClients(providers []config.ProviderConfig) map[string]ports.Completer {
	clients := make(map[string]ports.Completer, len(providers))
	for _, cfg := range providers {
		clients[cfg.Name] = NewClient(cfg)
	}
	return clients
}
