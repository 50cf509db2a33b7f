package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/comigor/bertbot/internal/config"
	"github.com/comigor/bertbot/internal/conversation"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultAnthropicModel     = "claude-3-5-sonnet-latest"
	defaultAnthropicMaxTokens = 1024
)

// AnthropicClient talks to the Anthropic messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
}

// NewAnthropicClient creates a provider backed by the Anthropic API.
func NewAnthropicClient(cfg config.ProviderConfig) *AnthropicClient {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	return &AnthropicClient{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

// Complete sends the ordered messages and returns the assistant text.
// System messages are lifted into the API's system field; position priority
// is preserved by concatenating them in order.
func (c *AnthropicClient) Complete(ctx context.Context, messages []conversation.Message) (string, error) {
	var system []string
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: defaultAnthropicMaxTokens,
	}

	for _, m := range messages {
		switch m.Role {
		case conversation.RoleSystem:
			system = append(system, m.Content)
		case conversation.RoleAssistant:
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			params.Messages = append(params.Messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	if len(system) > 0 {
		params.System = []anthropic.TextBlockParam{{Type: "text", Text: strings.Join(system, "\n\n")}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	return out.String(), nil
}
