package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/comigor/bertbot/internal/config"
	"github.com/comigor/bertbot/internal/logger"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPClient is the subset of the mcp-go client used here; it keeps the
// registration code mockable in tests.
type MCPClient interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
	Close() error
}

// mcpTool wraps one remote MCP tool behind the local Tool interface.
type mcpTool struct {
	name        string
	description string
	client      MCPClient
}

func (t *mcpTool) Name() string        { return t.name }
func (t *mcpTool) Description() string { return t.description }

// Run forwards the call to the MCP server. Input is parsed as a JSON
// argument object; non-JSON input is passed under an "input" key.
func (t *mcpTool) Run(input string) (string, error) {
	args := map[string]any{}
	if input != "" {
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			args = map[string]any{"input": input}
		}
	}

	result, err := t.client.CallTool(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: t.name, Arguments: args},
	})
	if err != nil {
		return "", fmt.Errorf("mcp call %s: %w", t.name, err)
	}

	var text string
	for _, item := range result.Content {
		if tc, ok := item.(mcp.TextContent); ok {
			text = tc.Text
			break
		}
	}
	if result.IsError {
		if text == "" {
			text = "tool execution resulted in an error"
		}
		return "", fmt.Errorf("mcp tool %s: %s", t.name, text)
	}
	if text == "" {
		b, merr := json.Marshal(result)
		if merr != nil {
			return "tool executed successfully, but result could not be formatted", nil
		}
		text = string(b)
	}
	return text, nil
}

// newMCPClient builds a client for one configured server.
func newMCPClient(serverCfg config.MCPServerConfig) (*client.Client, error) {
	switch serverCfg.Type {
	case config.ClientTypeSSE:
		var opts []transport.ClientOption
		if len(serverCfg.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(serverCfg.Headers))
		}
		return client.NewSSEMCPClient(serverCfg.URL, opts...)
	case config.ClientTypeStreamableHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(serverCfg.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(serverCfg.Headers))
		}
		return client.NewStreamableHttpClient(serverCfg.URL, opts...)
	case config.ClientTypeStdio:
		var env []string
		for k, v := range serverCfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		return client.NewStdioMCPClient(serverCfg.Command, env, serverCfg.Args...)
	default:
		return nil, fmt.Errorf("unsupported MCP server type: %q", serverCfg.Type)
	}
}

// RegisterMCPServers connects to each configured MCP server and registers
// its tools. Failures are logged and skipped so one bad server never
// blocks the rest of the registry.
func RegisterMCPServers(manager *Manager, servers []config.MCPServerConfig) {
	ctx := context.Background()

	for _, serverCfg := range servers {
		mcpC, err := newMCPClient(serverCfg)
		if err != nil {
			logger.L.Error("failed to create MCP client", "name", serverCfg.Name, "error", err)
			continue
		}

		if serverCfg.Type != config.ClientTypeStdio {
			if err := mcpC.Start(ctx); err != nil {
				logger.L.Error("failed to start MCP client transport", "name", serverCfg.Name, "error", err)
				if cerr := mcpC.Close(); cerr != nil {
					logger.L.Warn("MCP client close error after start failure", "error", cerr)
				}
				continue
			}
		}

		if _, err := mcpC.Initialize(ctx, mcp.InitializeRequest{
			Params: mcp.InitializeParams{Capabilities: mcp.ClientCapabilities{}},
		}); err != nil {
			logger.L.Error("failed to initialize MCP client", "name", serverCfg.Name, "error", err)
			if cerr := mcpC.Close(); cerr != nil {
				logger.L.Warn("MCP client close error after init failure", "error", cerr)
			}
			continue
		}

		RegisterMCPTools(manager, serverCfg.Name, mcpC)
	}
}

// RegisterMCPTools lists the server's tools and registers a wrapper for
// each. Duplicate names keep the first registration.
func RegisterMCPTools(manager *Manager, serverName string, mcpC MCPClient) {
	serverTools, err := mcpC.ListTools(context.Background(), mcp.ListToolsRequest{})
	if err != nil {
		logger.L.Warn("failed to list tools for MCP client", "name", serverName, "error", err)
		return
	}

	for _, remote := range serverTools.Tools {
		if manager.Has(remote.Name) {
			logger.L.Warn("MCP tool already registered, skipping", "tool", remote.Name, "name", serverName)
			continue
		}
		manager.Register(&mcpTool{
			name:        remote.Name,
			description: remote.Description,
			client:      mcpC,
		})
		logger.L.Info("registered tool from MCP server", "tool", remote.Name, "name", serverName)
	}
}
