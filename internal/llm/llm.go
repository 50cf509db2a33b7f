package llm

import (
	"fmt"

	"github.com/comigor/bertbot/internal/config"
)

// NewClient builds the provider selected in the configuration.
func NewClient(cfg config.ProviderConfig) (Client, error) {
	switch cfg.Type {
	case "openai", "":
		return NewOpenAIClient(cfg), nil
	case "anthropic":
		return NewAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Type)
	}
}
