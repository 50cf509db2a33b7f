package service

import (
	"context"
	"errors"
	"testing"

	"github.com/comigor/bertbot/internal/agent"
	"github.com/comigor/bertbot/internal/config"
	"github.com/comigor/bertbot/internal/conversation"
	"github.com/comigor/bertbot/internal/security"
	"github.com/comigor/bertbot/internal/session"
	"github.com/comigor/bertbot/pkg/tools"

	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	replies []string
	err     error
	seen    [][]conversation.Message
}

func (c *fakeClient) Complete(ctx context.Context, messages []conversation.Message) (string, error) {
	c.seen = append(c.seen, messages)
	if c.err != nil {
		return "", c.err
	}
	reply := c.replies[0]
	c.replies = c.replies[1:]
	return reply, nil
}

func newService(t *testing.T, client *fakeClient, allowlist *security.Allowlist) *AgentService {
	t.Helper()
	store := session.NewStore(config.SessionsConfig{})
	t.Cleanup(store.Close)
	runtime := agent.New(client, tools.NewManager(), config.ProviderConfig{})
	return New(runtime, store, allowlist, nil)
}

func TestHandleMessage_RepliesAndPersistsTurn(t *testing.T) {
	client := &fakeClient{replies: []string{
		`{"type":"final","content":"hello alice"}`,
		`{"type":"final","content":"hello again"}`,
	}}
	svc := newService(t, client, nil)

	reply, err := svc.HandleMessage(context.Background(), ChannelMessage{Channel: "discord", UserID: "alice", Text: "hi"})
	require.NoError(t, err)
	require.Equal(t, "hello alice", reply)

	// The second turn must see the first turn pair as prior history.
	reply, err = svc.HandleMessage(context.Background(), ChannelMessage{Channel: "discord", UserID: "alice", Text: "hi again"})
	require.NoError(t, err)
	require.Equal(t, "hello again", reply)

	second := client.seen[1]
	var haveUser, haveAssistant bool
	for _, m := range second {
		if m.Role == conversation.RoleUser && m.Content == "hi" {
			haveUser = true
		}
		if m.Role == conversation.RoleAssistant && m.Content == "hello alice" {
			haveAssistant = true
		}
	}
	require.True(t, haveUser)
	require.True(t, haveAssistant)
}

func TestHandleMessage_AllowlistDenial(t *testing.T) {
	client := &fakeClient{}
	svc := newService(t, client, security.NewAllowlist("alice"))

	reply, err := svc.HandleMessage(context.Background(), ChannelMessage{Channel: "discord", UserID: "mallory", Text: "hi"})
	require.NoError(t, err)
	require.Equal(t, "Access denied. Your user ID is not allowlisted.", reply)
	require.Empty(t, client.seen, "denied messages must never reach the provider")
}

func TestHandleMessage_AllowlistedUserPasses(t *testing.T) {
	client := &fakeClient{replies: []string{`{"type":"final","content":"ok"}`}}
	svc := newService(t, client, security.NewAllowlist("alice"))

	reply, err := svc.HandleMessage(context.Background(), ChannelMessage{Channel: "discord", UserID: "alice", Text: "hi"})
	require.NoError(t, err)
	require.Equal(t, "ok", reply)
}

func TestHandleMessage_ProviderErrorPropagates(t *testing.T) {
	client := &fakeClient{err: errors.New("backend down")}
	svc := newService(t, client, nil)

	_, err := svc.HandleMessage(context.Background(), ChannelMessage{Channel: "discord", UserID: "alice", Text: "hi"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "backend down")
}
