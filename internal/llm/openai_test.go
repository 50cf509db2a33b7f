package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/comigor/bertbot/internal/config"
	"github.com/comigor/bertbot/internal/conversation"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

type mockCompleter struct {
	resp openai.ChatCompletionResponse
	err  error
	seen []openai.ChatCompletionRequest
}

func (m *mockCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.seen = append(m.seen, req)
	return m.resp, m.err
}

func TestOpenAIComplete(t *testing.T) {
	mock := &mockCompleter{
		resp: openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Content: "hello"}},
			},
		},
	}
	c := &OpenAIClient{client: mock, model: "test-model"}

	out, err := c.Complete(context.Background(), []conversation.Message{
		{Role: conversation.RoleSystem, Content: "be nice"},
		{Role: conversation.RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	require.Equal(t, "hello", out)

	require.Len(t, mock.seen, 1)
	req := mock.seen[0]
	require.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 2)
	require.Equal(t, openai.ChatMessageRoleSystem, req.Messages[0].Role)
	require.Equal(t, "be nice", req.Messages[0].Content)
	require.Equal(t, "hi", req.Messages[1].Content)
}

func TestOpenAIComplete_Error(t *testing.T) {
	c := &OpenAIClient{client: &mockCompleter{err: errors.New("boom")}, model: "m"}

	_, err := c.Complete(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Content: "hi"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "boom")
}

func TestOpenAIComplete_EmptyChoices(t *testing.T) {
	c := &OpenAIClient{client: &mockCompleter{}, model: "m"}

	_, err := c.Complete(context.Background(), []conversation.Message{{Role: conversation.RoleUser, Content: "hi"}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "empty choices")
}

func TestNewClient(t *testing.T) {
	c, err := NewClient(config.ProviderConfig{Type: "openai", APIKey: "k"})
	require.NoError(t, err)
	require.IsType(t, &OpenAIClient{}, c)

	c, err = NewClient(config.ProviderConfig{APIKey: "k"})
	require.NoError(t, err)
	require.IsType(t, &OpenAIClient{}, c)

	c, err = NewClient(config.ProviderConfig{Type: "anthropic", APIKey: "k"})
	require.NoError(t, err)
	require.IsType(t, &AnthropicClient{}, c)

	_, err = NewClient(config.ProviderConfig{Type: "carrier-pigeon"})
	require.Error(t, err)
}

func TestDefaultModel(t *testing.T) {
	c := NewOpenAIClient(config.ProviderConfig{APIKey: "k"})
	require.Equal(t, defaultOpenAIModel, c.model)

	c = NewOpenAIClient(config.ProviderConfig{APIKey: "k", Model: "custom"})
	require.Equal(t, "custom", c.model)
}
