package mcp

// ServerStatus is an external view of a server's state. Configured servers
// that were never connected appear with Connected=false and no InstanceID.
type ServerStatus struct {
	Name       string      `json:"name"`
	InstanceID string      `json:"instanceId,omitempty"`
	Connected  bool        `json:"connected"`
	ServerInfo *ServerInfo `json:"serverInfo,omitempty"`
	Error      string      `json:"error,omitempty"`
	Tools      []ToolInfo  `json:"tools,omitempty"`
}

// SetServersResult reports what changed after a SetServers call.
type SetServersResult struct {
	Added   []string          `json:"added,omitempty"`
	Removed []string          `json:"removed,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}
