// Package service hosts the channel-facing entry point: every adapter,
// whatever its wire protocol, hands a plain ChannelMessage to the
// AgentService and gets back a reply string.
package service

import (
	"context"
	"time"

	"github.com/comigor/bertbot/internal/agent"
	"github.com/comigor/bertbot/internal/conversation"
	"github.com/comigor/bertbot/internal/history"
	"github.com/comigor/bertbot/internal/logger"
	"github.com/comigor/bertbot/internal/security"
	"github.com/comigor/bertbot/internal/session"
)

const accessDeniedMessage = "Access denied. Your user ID is not allowlisted."

// ChannelMessage is the contract between channel adapters and the core.
type ChannelMessage struct {
	Channel   string    `json:"channel"`
	UserID    string    `json:"userId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// AgentService runs one conversational turn per inbound message.
type AgentService struct {
	runtime   *agent.Runtime
	sessions  *session.Store
	allowlist *security.Allowlist // nil disables filtering
	history   *history.Log        // nil disables the transcript
}

func New(runtime *agent.Runtime, sessions *session.Store, allowlist *security.Allowlist, transcript *history.Log) *AgentService {
	return &AgentService{
		runtime:   runtime,
		sessions:  sessions,
		allowlist: allowlist,
		history:   transcript,
	}
}

// HandleMessage runs the agent loop for one message and persists the
// turn pair. Provider errors propagate to the adapter; persistence
// errors are logged and the reply is returned anyway.
func (s *AgentService) HandleMessage(ctx context.Context, msg ChannelMessage) (string, error) {
	if s.allowlist != nil && !s.allowlist.Has(msg.UserID) {
		logger.L.Warn("Rejected message from non-allowlisted user", "channel", msg.Channel, "userId", msg.UserID)
		return accessDeniedMessage, nil
	}

	sess, err := s.sessions.GetOrCreate(msg.Channel, msg.UserID)
	if err != nil {
		return "", err
	}

	reply, err := s.runtime.Run(ctx, msg.Text, sess.Context())
	if err != nil {
		return "", err
	}

	if err := s.sessions.Append(sess, conversation.RoleUser, msg.Text); err != nil {
		logger.L.Error("Failed to persist user turn", "session", sess.ID, "error", err)
	}
	if err := s.sessions.Append(sess, conversation.RoleAssistant, reply); err != nil {
		logger.L.Error("Failed to persist assistant turn", "session", sess.ID, "error", err)
	}

	if s.history != nil {
		now := time.Now()
		s.history.Save(history.Message{SessionID: sess.ID, Role: conversation.RoleUser, Content: msg.Text, CreatedAt: now})
		s.history.Save(history.Message{SessionID: sess.ID, Role: conversation.RoleAssistant, Content: reply, CreatedAt: now})
	}

	return reply, nil
}
