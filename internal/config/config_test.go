package config

import (
	"os"
	"testing"
)

const sampleConfig = `
provider:
  type: openai
  base_url: https://api.example.com
  api_key: dummy
  model: gpt-4o
gateway:
  host: 0.0.0.0
  port: "8080"
sessions:
  persist: true
  dir: /tmp/sessions
  secret: 0123456789abcdef0123456789abcdef
security:
  allowlist_path: allowlist.json
  workspace_root: /srv/workspace
rate_limit:
  max_messages_per_window: 3
  window_seconds: 10
mcp_servers:
  - type: stdio
    command: ./mock
    args: ["--flag"]
    env:
      FOO: bar
`

// TestLoad verifies that Load unmarshals every section of the config file.
func TestLoad(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	if _, err := tmp.WriteString(sampleConfig); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmp.Close()

	t.Setenv("CONFIG_PATH", tmp.Name())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Provider.Model != "gpt-4o" {
		t.Fatalf("unexpected model: %s", cfg.Provider.Model)
	}
	if !cfg.Sessions.Persist || cfg.Sessions.Dir != "/tmp/sessions" {
		t.Fatalf("sessions not parsed: %+v", cfg.Sessions)
	}
	if cfg.Security.WorkspaceRoot != "/srv/workspace" {
		t.Fatalf("workspace root not parsed: %s", cfg.Security.WorkspaceRoot)
	}
	if cfg.RateLimit.MaxMessagesPerWindow != 3 || cfg.RateLimit.WindowSeconds != 10 {
		t.Fatalf("rate limit not parsed: %+v", cfg.RateLimit)
	}
	if len(cfg.MCPServers) != 1 {
		t.Fatalf("expected 1 mcp server, got %d", len(cfg.MCPServers))
	}
	s := cfg.MCPServers[0]
	if s.Type != ClientTypeStdio {
		t.Fatalf("expected type stdio, got %s", s.Type)
	}
	if s.Command != "./mock" {
		t.Fatalf("unexpected command: %s", s.Command)
	}
	if len(s.Args) != 1 || s.Args[0] != "--flag" {
		t.Fatalf("unexpected args: %v", s.Args)
	}
	if v := s.Env["foo"]; v != "bar" {
		t.Fatalf("env not parsed: %v", s.Env)
	}
}

// TestLoad_Defaults checks the defaults applied when sections are omitted.
func TestLoad_Defaults(t *testing.T) {
	tmp, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	if _, err := tmp.WriteString("provider:\n  api_key: k\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmp.Close()

	t.Setenv("CONFIG_PATH", tmp.Name())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Provider.MaxToolSteps != 4 {
		t.Fatalf("expected default max_tool_steps 4, got %d", cfg.Provider.MaxToolSteps)
	}
	if cfg.Sessions.TTLHours != 24 || cfg.Sessions.SweepMinutes != 60 {
		t.Fatalf("unexpected session defaults: %+v", cfg.Sessions)
	}
	if !cfg.RateLimit.Enabled || cfg.RateLimit.MaxConnectionsPerIP != 5 {
		t.Fatalf("unexpected rate limit defaults: %+v", cfg.RateLimit)
	}
}
