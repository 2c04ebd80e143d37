package hooks

import (
	"context"
	"fmt"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// MCPToolConfig configures an MCPToolHook's connection to a single MCP
// server over stdio.
type MCPToolConfig struct {
	// Name identifies the hook for Registry bookkeeping.
	Name string
	// Command and Args launch the MCP server subprocess.
	Command string
	Args    []string
	Env     map[string]string
}

// MCPToolHook is the sanctioned seam into an external MCP tool server.
// Its PreToolUse and PostToolUse hooks only observe and never deny; a
// tool call reaches the MCP server, as a tools/call request, only
// through Call.
type MCPToolHook struct {
	cfg MCPToolConfig

	mu        sync.Mutex
	mcpClient *client.Client
	connected bool
	toolNames map[string]struct{}
}

// NewMCPToolHook constructs an MCPToolHook with a lazy connection; the
// subprocess is only started on the first Call.
func NewMCPToolHook(cfg MCPToolConfig) *MCPToolHook {
	return &MCPToolHook{cfg: cfg}
}

func (h *MCPToolHook) Name() string  { return h.cfg.Name }
func (h *MCPToolHook) Priority() int { return 50 }

func (h *MCPToolHook) connect(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.connected {
		return nil
	}

	env := make([]string, 0, len(h.cfg.Env))
	for k, v := range h.cfg.Env {
		env = append(env, k+"="+v)
	}

	mcpClient, err := client.NewStdioMCPClient(h.cfg.Command, env, h.cfg.Args...)
	if err != nil {
		return fmt.Errorf("create mcp client: %w", err)
	}
	if err := mcpClient.Start(ctx); err != nil {
		return fmt.Errorf("start mcp client: %w", err)
	}

	initReq := mcp.InitializeRequest{}
	initReq.Params.ClientInfo = mcp.Implementation{Name: "ccswarmd", Version: "0.1.0"}
	initReq.Params.ProtocolVersion = "2024-11-05"
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		return fmt.Errorf("initialize mcp client: %w", err)
	}

	listResp, err := mcpClient.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("list mcp tools: %w", err)
	}
	names := make(map[string]struct{}, len(listResp.Tools))
	for _, t := range listResp.Tools {
		names[t.Name] = struct{}{}
	}

	h.mcpClient = mcpClient
	h.toolNames = names
	h.connected = true
	return nil
}

// PreToolUse is a pure observer: it never denies a call. Dispatching a
// tool call to the MCP server happens through Call, invoked directly by
// whatever owns the tool registry once it decides a call is MCP-owned.
func (h *MCPToolHook) PreToolUse(context.Context, ToolUseInput, Context) Result {
	return resultContinue
}

func (h *MCPToolHook) PostToolUse(context.Context, ToolUseInput, Context) Result {
	return resultContinue
}

// Call executes toolName against the connected MCP server, returning
// its parsed text result. Callers (the IPC/session layer) invoke this
// directly; PreToolUse/PostToolUse neither dispatch nor gate MCP calls.
func (h *MCPToolHook) Call(ctx context.Context, toolName string, args map[string]any) (string, error) {
	if err := h.connect(ctx); err != nil {
		return "", err
	}

	h.mu.Lock()
	mcpClient := h.mcpClient
	h.mu.Unlock()

	req := mcp.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	resp, err := mcpClient.CallTool(ctx, req)
	if err != nil {
		return "", fmt.Errorf("mcp call failed: %w", err)
	}
	if resp.IsError {
		return "", fmt.Errorf("mcp tool %q returned an error result", toolName)
	}

	for _, content := range resp.Content {
		if text, ok := content.(mcp.TextContent); ok {
			return text.Text, nil
		}
	}
	return "", nil
}

// Tools returns the names of the tools the connected MCP server
// exposes. Returns an empty slice if not yet connected.
func (h *MCPToolHook) Tools() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.toolNames))
	for name := range h.toolNames {
		names = append(names, name)
	}
	return names
}
