package llm

import (
	"context"

	"github.com/comigor/bertbot/internal/conversation"
)

// Client is the provider abstraction the agent runtime depends on.
// One blocking call per model turn; no streaming.
type Client interface {
	Complete(ctx context.Context, messages []conversation.Message) (string, error)
}
