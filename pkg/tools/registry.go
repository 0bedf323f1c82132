package tools

import "sort"

// Registry holds available tools and resolves them by name.
type Registry struct {
	tools  map[string]Tool
	filter *Filter
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithFilter installs an allow/deny filter applied when MCP tools are
// registered.
func WithFilter(f *Filter) RegistryOption {
	return func(r *Registry) { r.filter = f }
}

// NewRegistry creates a new tool registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		tools: make(map[string]Tool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) {
	r.tools[tool.Name()] = tool
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
