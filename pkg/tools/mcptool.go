package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MCPTool exposes a single remote server tool through the registry under
// the name mcp__<server>__<tool>.
type MCPTool struct {
	ServerName string
	ToolName   string
	Desc       string
	RawSchema  json.RawMessage
	Client     MCPCaller
}

func (m *MCPTool) Name() string {
	return fmt.Sprintf("mcp__%s__%s", m.ServerName, m.ToolName)
}

func (m *MCPTool) Description() string { return m.Desc }

func (m *MCPTool) InputSchema() map[string]any {
	if len(m.RawSchema) > 0 {
		var schema map[string]any
		if err := json.Unmarshal(m.RawSchema, &schema); err == nil {
			return schema
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (m *MCPTool) Execute(ctx context.Context, input map[string]any) (ToolOutput, error) {
	result := m.Client.CallTool(ctx, m.ServerName, m.ToolName, input)

	// Concatenate text content blocks
	var b strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" && block.Text != "" {
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			b.WriteString(block.Text)
		}
	}

	return ToolOutput{
		Content: b.String(),
		IsError: result.IsError,
	}, nil
}

// RegisterMCPTool adds a dynamic MCP tool to the registry. Tools rejected by
// the registry's filter are skipped.
func (r *Registry) RegisterMCPTool(serverName, toolName, description string, schema json.RawMessage, client MCPCaller) {
	tool := &MCPTool{
		ServerName: serverName,
		ToolName:   toolName,
		Desc:       description,
		RawSchema:  schema,
		Client:     client,
	}
	if r.filter != nil && !r.filter.Allowed(tool.Name()) {
		return
	}
	r.Register(tool)
}

// UnregisterMCPTools removes all tools for a given MCP server.
func (r *Registry) UnregisterMCPTools(serverName string) {
	prefix := fmt.Sprintf("mcp__%s__", serverName)
	for name := range r.tools {
		if strings.HasPrefix(name, prefix) {
			delete(r.tools, name)
		}
	}
}
