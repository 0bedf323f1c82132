package mcp

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tbaird/lynx/pkg/tools"
	"github.com/tbaird/lynx/pkg/types"
)

// Default deadlines. Tool execution is open-ended, so calls get a much
// longer leash than the handshake round-trips.
const (
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultCallTimeout      = 60 * time.Second
)

type timeoutConfig struct {
	Handshake time.Duration
	Call      time.Duration
}

// dialFunc creates a transport for a server config. Swapped out in tests.
type dialFunc func(cfg types.ServerConfig, onExit func(error)) (Transport, error)

// Client owns the set of configured tool-execution servers and all live
// instances. It mediates connection, reconnection, invocation, and teardown;
// nothing else in the application touches a server process directly.
//
// Per server the lifecycle is absent → connecting → connected ⇄ disconnected.
// A failed connect leaves no instance behind; a crashed instance is retained,
// disconnected, for status reporting until the next call reconnects it.
type Client struct {
	mu       sync.RWMutex
	configs  map[string]types.ServerConfig
	servers  map[string]*ServerConnection
	registry *tools.Registry
	resolver CommandResolver
	timeouts timeoutConfig
	dial     dialFunc
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRegistry makes the client register discovered tools in reg on connect
// and unregister them on disconnect.
func WithRegistry(reg *tools.Registry) ClientOption {
	return func(c *Client) { c.registry = reg }
}

// WithResolver overrides the command resolver used when spawning processes.
func WithResolver(r CommandResolver) ClientOption {
	return func(c *Client) { c.resolver = r }
}

// WithTimeouts overrides the handshake and tool-call deadlines.
func WithTimeouts(handshake, call time.Duration) ClientOption {
	return func(c *Client) {
		c.timeouts = timeoutConfig{Handshake: handshake, Call: call}
	}
}

// NewClient creates a client over an externally loaded server configuration.
// An empty config is fine; ListServers will just be empty.
func NewClient(configs map[string]types.ServerConfig, opts ...ClientOption) *Client {
	c := &Client{
		configs:  make(map[string]types.ServerConfig, len(configs)),
		servers:  make(map[string]*ServerConnection),
		resolver: defaultResolver{},
		timeouts: timeoutConfig{
			Handshake: DefaultHandshakeTimeout,
			Call:      DefaultCallTimeout,
		},
	}
	for name, cfg := range configs {
		c.configs[name] = cfg
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.dial == nil {
		c.dial = func(cfg types.ServerConfig, onExit func(error)) (Transport, error) {
			return newStdioTransport(cfg, c.resolver, onExit)
		}
	}
	return c
}

// ListServers returns every configured server name, sorted. Presence in the
// config is independent of connectivity.
func (c *Client) ListServers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.configs))
	for name := range c.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connect spawns the named server, runs the handshake, and caches its tool
// list. Any existing instance for the name is torn down first. On failure no
// instance is left behind and the error is returned to the caller, who
// decides whether to retry.
func (c *Client) Connect(ctx context.Context, name string) ([]ToolInfo, error) {
	c.mu.RLock()
	cfg, ok := c.configs[name]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown server: %q", name)
	}

	// Reconnects always start from a fresh process.
	c.Disconnect(name)

	conn := newServerConnection(name, cfg)
	transport, err := c.dial(cfg, c.exitHandler(name, conn.InstanceID))
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", name, err)
	}

	if err := conn.runHandshake(ctx, transport, c.timeouts); err != nil {
		return nil, fmt.Errorf("connect %s: %w", name, err)
	}

	c.mu.Lock()
	c.servers[name] = conn
	c.mu.Unlock()

	c.registerTools(name, conn.Tools())
	return conn.Tools(), nil
}

// exitHandler flips the instance to disconnected when its process dies
// unexpectedly. The instance id guards against a stale exit notification
// from a replaced process touching its successor.
func (c *Client) exitHandler(name, instanceID string) func(error) {
	return func(exitErr error) {
		c.mu.RLock()
		conn := c.servers[name]
		c.mu.RUnlock()

		if conn == nil || conn.InstanceID != instanceID {
			return
		}

		reason := "process exited"
		if exitErr != nil {
			reason = exitErr.Error()
		}
		debugf("server %s: %s", name, reason)
		conn.markDisconnected(reason)
	}
}

// CallTool invokes a tool on the named server. It never returns a Go error:
// every failure comes back as a ToolResult with IsError set and a classified,
// user-facing message. A missing or disconnected instance gets exactly one
// reconnect attempt before the call is given up.
func (c *Client) CallTool(ctx context.Context, serverName, toolName string, args map[string]any) ToolResult {
	c.mu.RLock()
	conn := c.servers[serverName]
	c.mu.RUnlock()

	if conn == nil || !conn.isConnected() {
		if _, err := c.Connect(ctx, serverName); err != nil {
			return textResult(FormatConnectError(serverName, err), true)
		}
		c.mu.RLock()
		conn = c.servers[serverName]
		c.mu.RUnlock()
	}

	result, err := conn.callTool(ctx, toolName, args, c.timeouts)
	if err != nil {
		return textResult(formatCallError(serverName, toolName, err), true)
	}
	return *result
}

// Disconnect tears down the named server's instance, if any, killing its
// process and unregistering its tools.
func (c *Client) Disconnect(name string) error {
	c.mu.Lock()
	conn, ok := c.servers[name]
	delete(c.servers, name)
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("not connected: %q", name)
	}
	if c.registry != nil {
		c.registry.UnregisterMCPTools(name)
	}
	return conn.disconnect()
}

// Close disconnects every live server. It is the single teardown path:
// callers defer it at session start so processes are reaped and pending
// requests settled on every exit route.
func (c *Client) Close() error {
	c.mu.Lock()
	names := make([]string, 0, len(c.servers))
	for name := range c.servers {
		names = append(names, name)
	}
	c.mu.Unlock()

	var errs []string
	for _, name := range names {
		if err := c.Disconnect(name); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SetServers reconciles the configured set against a newly loaded config:
// servers that disappeared are torn down, new ones are connected, unchanged
// ones are left alone.
func (c *Client) SetServers(ctx context.Context, configs map[string]types.ServerConfig) *SetServersResult {
	result := &SetServersResult{Errors: make(map[string]string)}

	c.mu.Lock()
	existing := make(map[string]bool, len(c.configs))
	for name := range c.configs {
		existing[name] = true
	}
	c.configs = make(map[string]types.ServerConfig, len(configs))
	for name, cfg := range configs {
		c.configs[name] = cfg
	}
	c.mu.Unlock()

	for name := range existing {
		if _, keep := configs[name]; !keep {
			if err := c.Disconnect(name); err == nil {
				result.Removed = append(result.Removed, name)
			}
		}
	}

	for name := range configs {
		if !existing[name] {
			if _, err := c.Connect(ctx, name); err != nil {
				result.Errors[name] = err.Error()
			} else {
				result.Added = append(result.Added, name)
			}
		}
	}

	sort.Strings(result.Added)
	sort.Strings(result.Removed)
	return result
}

// ConnectedServers returns the names of servers that are currently
// connected, sorted.
func (c *Client) ConnectedServers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.servers))
	for name, conn := range c.servers {
		if conn.isConnected() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// AllTools returns the cached tool snapshot per connected server.
func (c *Client) AllTools() map[string][]ToolInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := make(map[string][]ToolInfo)
	for name, conn := range c.servers {
		if conn.isConnected() {
			all[name] = conn.Tools()
		}
	}
	return all
}

// TotalToolCount returns the number of tools across all connected servers.
func (c *Client) TotalToolCount() int {
	total := 0
	for _, list := range c.AllTools() {
		total += len(list)
	}
	return total
}

// Status reports the state of every configured server, including ones that
// were never connected or have crashed.
func (c *Client) Status() []ServerStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	statuses := make([]ServerStatus, 0, len(c.configs))
	for name := range c.configs {
		if conn, ok := c.servers[name]; ok {
			statuses = append(statuses, conn.status())
		} else {
			statuses = append(statuses, ServerStatus{Name: name})
		}
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

// ServerStatus reports the state of one configured server.
func (c *Client) ServerStatus(name string) (*ServerStatus, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.configs[name]; !ok {
		return nil, fmt.Errorf("unknown server: %q", name)
	}
	if conn, ok := c.servers[name]; ok {
		s := conn.status()
		return &s, nil
	}
	return &ServerStatus{Name: name}, nil
}

// registerTools mirrors the tool snapshot into the shared tool registry.
func (c *Client) registerTools(serverName string, infos []ToolInfo) {
	if c.registry == nil {
		return
	}
	for _, t := range infos {
		c.registry.RegisterMCPTool(serverName, t.Name, t.Description, t.InputSchema, registryAdapter{c})
	}
}

// registryAdapter implements tools.MCPCaller on top of Client.CallTool.
type registryAdapter struct{ c *Client }

func (a registryAdapter) CallTool(ctx context.Context, serverName, toolName string, args map[string]any) tools.MCPCallResult {
	result := a.c.CallTool(ctx, serverName, toolName, args)

	blocks := make([]tools.MCPContentBlock, len(result.Content))
	for i, cb := range result.Content {
		blocks[i] = tools.MCPContentBlock{
			Type:     cb.Type,
			Text:     cb.Text,
			MimeType: cb.MimeType,
			Data:     cb.Data,
			URI:      cb.URI,
		}
	}
	return tools.MCPCallResult{Content: blocks, IsError: result.IsError}
}

// formatCallError renders a tool-call failure with classified wording.
func formatCallError(serverName, toolName string, err error) string {
	switch ClassifyError(err) {
	case ErrorTimeout:
		return fmt.Sprintf("%s/%s timed out; the server may be hung, the next call will reconnect it", serverName, toolName)
	default:
		return fmt.Sprintf("%s/%s failed: %v", serverName, toolName, err)
	}
}
