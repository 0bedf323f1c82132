package tools

import "context"

// ToolOutput is the result of a tool execution.
type ToolOutput struct {
	Content string // text content for the tool_result
	IsError bool   // when true, content is an error message
}

// Tool is the interface every tool must implement.
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any // JSON Schema object for the tools array
	Execute(ctx context.Context, input map[string]any) (ToolOutput, error)
}

// MCPContentBlock is one content item returned by a remote tool.
type MCPContentBlock struct {
	Type     string // "text", "image", "resource"
	Text     string
	MimeType string
	Data     string
	URI      string
}

// MCPCallResult is the uniform outcome shape of a remote tool call.
// Failures are carried as IsError with explanatory text, never as a Go
// error, so every caller branches on the same shape.
type MCPCallResult struct {
	Content []MCPContentBlock
	IsError bool
}

// MCPCaller invokes tools on remote tool-execution servers.
type MCPCaller interface {
	CallTool(ctx context.Context, serverName, toolName string, args map[string]any) MCPCallResult
}
