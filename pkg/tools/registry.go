package tools

import (
	"github.com/comigor/bertbot/internal/config"
	"github.com/comigor/bertbot/internal/logger"
)

// NewDefaultManager builds the startup registry: the three core
// capability tools always, plus each optional integration whose feature
// flag and credentials are present.
func NewDefaultManager(cfg *config.Config) *Manager {
	manager := NewManager()

	manager.Register(NewBashTool())
	manager.Register(NewFilesTool(cfg.Security.WorkspaceRoot))
	manager.Register(NewHTTPTool())

	if cfg.Notion.APIKey != "" {
		manager.Register(NewNotionTool(cfg.Notion))
		logger.L.Info("notion tool registered")
	}

	if len(cfg.MCPServers) > 0 {
		RegisterMCPServers(manager, cfg.MCPServers)
	}

	return manager
}
