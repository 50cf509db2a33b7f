package config

import (
	"os"

	"github.com/spf13/viper"
)

// ClientType identifies the transport used to reach an MCP server.
type ClientType string

const (
	ClientTypeSSE            ClientType = "sse"
	ClientTypeStreamableHTTP ClientType = "streamable_http"
	ClientTypeStdio          ClientType = "stdio"
)

// Config holds the application configuration
type Config struct {
	Provider   ProviderConfig
	Gateway    GatewayConfig
	Sessions   SessionsConfig
	Security   SecurityConfig
	RateLimit  RateLimitConfig `mapstructure:"rate_limit"`
	Notion     NotionConfig
	History    HistoryConfig
	Log        LogConfig
	MCPServers []MCPServerConfig `mapstructure:"mcp_servers"`
}

// ProviderConfig holds the LLM provider configuration
type ProviderConfig struct {
	Type         string `mapstructure:"type"`
	BaseURL      string `mapstructure:"base_url"`
	APIKey       string `mapstructure:"api_key"`
	Model        string `mapstructure:"model"`
	SystemPrompt string `mapstructure:"system_prompt"`
	MaxToolSteps int    `mapstructure:"max_tool_steps"`
}

// GatewayConfig holds the transport configuration
type GatewayConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

// SessionsConfig holds the session store configuration
type SessionsConfig struct {
	Persist      bool   `mapstructure:"persist"`
	Dir          string `mapstructure:"dir"`
	Secret       string `mapstructure:"secret"`
	TTLHours     int    `mapstructure:"ttl_hours"`
	SweepMinutes int    `mapstructure:"sweep_minutes"`
}

// SecurityConfig holds the security configuration
type SecurityConfig struct {
	AllowlistPath string `mapstructure:"allowlist_path"`
	WorkspaceRoot string `mapstructure:"workspace_root"`
}

// RateLimitConfig holds the gateway rate limiter configuration
type RateLimitConfig struct {
	Enabled              bool `mapstructure:"enabled"`
	MaxMessagesPerWindow int  `mapstructure:"max_messages_per_window"`
	WindowSeconds        int  `mapstructure:"window_seconds"`
	MaxConnectionsPerIP  int  `mapstructure:"max_connections_per_ip"`
}

// NotionConfig holds the optional Notion integration configuration
type NotionConfig struct {
	APIKey          string `mapstructure:"api_key"`
	DatabaseID      string `mapstructure:"database_id"`
	DefaultParentID string `mapstructure:"default_parent_id"`
}

// HistoryConfig holds the optional sqlite transcript configuration
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DBPath  string `mapstructure:"db_path"`
}

// LogConfig holds the logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// MCPServerConfig describes one optional external MCP tool server
type MCPServerConfig struct {
	Name    string            `mapstructure:"name"`
	Type    ClientType        `mapstructure:"type"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
}

// Load loads the configuration from the config.yaml file.
// CONFIG_PATH overrides the default search location.
func Load() (*Config, error) {
	v := viper.New()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.port", "18789")
	v.SetDefault("provider.type", "openai")
	v.SetDefault("provider.max_tool_steps", 4)
	v.SetDefault("sessions.dir", "data/sessions")
	v.SetDefault("sessions.ttl_hours", 24)
	v.SetDefault("sessions.sweep_minutes", 60)
	v.SetDefault("security.workspace_root", "workspace")
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.max_messages_per_window", 60)
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("rate_limit.max_connections_per_ip", 5)
	v.SetDefault("history.db_path", "history.db")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}
