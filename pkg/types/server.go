package types

// ServerConfig describes how to launch a tool-execution server process.
// Configs are loaded externally and treated as immutable once read.
type ServerConfig struct {
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	CWD     string            `json:"cwd,omitempty" yaml:"cwd,omitempty"`
}

// ConfigDocument is the on-disk shape consumed by the client:
//
//	{ "mcpServers": { "<name>": { "command": ..., "args": [...] } } }
type ConfigDocument struct {
	MCPServers map[string]ServerConfig `json:"mcpServers" yaml:"mcpServers"`
}
