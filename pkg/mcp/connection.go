package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/tbaird/lynx/pkg/types"
)

// ServerConnection is one live (or crashed-but-retained) server instance:
// the transport to its process, the tool snapshot captured at connect time,
// and a monotonic request counter. Ids are never reused within an instance,
// so a response for an expired request is always detectable.
type ServerConnection struct {
	Name       string
	Config     types.ServerConfig
	InstanceID string // distinguishes this spawn from any replacement

	mu        sync.Mutex
	transport Transport
	connected bool
	lastError string
	info      *ServerInfo
	tools     []ToolInfo

	nextID atomic.Int32
}

func newServerConnection(name string, cfg types.ServerConfig) *ServerConnection {
	return &ServerConnection{
		Name:       name,
		Config:     cfg,
		InstanceID: uuid.NewString(),
	}
}

// runHandshake drives a freshly created transport through the strict
// initialize → initialized-notification → tools/list sequence. Only after
// tools/list succeeds is the connection marked connected. Any failure
// closes the transport (killing the process) and returns the step's error;
// the caller discards the instance.
func (sc *ServerConnection) runHandshake(ctx context.Context, transport Transport, timeout timeoutConfig) error {
	initParams := InitializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    ClientCapabilities{},
		ClientInfo:      ClientInfo{Name: clientName, Version: clientVersion},
	}
	resp, err := transport.Send(ctx, newRequest(sc.nextRequestID(), MethodInitialize, initParams), timeout.Handshake)
	if err != nil {
		return sc.failHandshake(transport, fmt.Errorf("initialize: %w", err))
	}
	if resp.Error != nil {
		return sc.failHandshake(transport, fmt.Errorf("initialize error: %s", resp.Error.Message))
	}

	var initResult InitializeResult
	if err := json.Unmarshal(resp.Result, &initResult); err != nil {
		return sc.failHandshake(transport, fmt.Errorf("parse initialize result: %w", err))
	}

	if err := transport.Notify(ctx, MethodInitialized, nil); err != nil {
		return sc.failHandshake(transport, fmt.Errorf("send initialized: %w", err))
	}

	resp, err = transport.Send(ctx, newRequest(sc.nextRequestID(), MethodToolsList, nil), timeout.Handshake)
	if err != nil {
		return sc.failHandshake(transport, fmt.Errorf("list tools: %w", err))
	}
	if resp.Error != nil {
		return sc.failHandshake(transport, fmt.Errorf("list tools error: %s", resp.Error.Message))
	}

	var listResult ToolsListResult
	if err := json.Unmarshal(resp.Result, &listResult); err != nil {
		return sc.failHandshake(transport, fmt.Errorf("parse tools list: %w", err))
	}

	sc.mu.Lock()
	sc.transport = transport
	sc.info = &initResult.ServerInfo
	sc.tools = listResult.Tools
	sc.connected = true
	sc.lastError = ""
	sc.mu.Unlock()
	return nil
}

// failHandshake kills the half-initialized process and records the failure.
func (sc *ServerConnection) failHandshake(transport Transport, err error) error {
	transport.Close()
	sc.mu.Lock()
	sc.connected = false
	sc.lastError = err.Error()
	sc.mu.Unlock()
	return err
}

// callTool performs tools/call on this instance. On any failure, be it a
// transport error, a timeout, or a remote error object, the instance flips to
// disconnected so the next call triggers a reconnect.
func (sc *ServerConnection) callTool(ctx context.Context, toolName string, args map[string]any, timeout timeoutConfig) (*ToolResult, error) {
	sc.mu.Lock()
	transport := sc.transport
	connected := sc.connected
	sc.mu.Unlock()

	if transport == nil || !connected {
		return nil, fmt.Errorf("not connected")
	}

	resp, err := transport.Send(ctx, newRequest(sc.nextRequestID(), MethodToolsCall, ToolCallParams{
		Name:      toolName,
		Arguments: args,
	}), timeout.Call)
	if err != nil {
		sc.markDisconnected(err.Error())
		return nil, err
	}
	if resp.Error != nil {
		sc.markDisconnected(resp.Error.Message)
		return nil, resp.Error
	}

	var result ToolResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		sc.markDisconnected(err.Error())
		return nil, fmt.Errorf("parse tool result: %w", err)
	}
	return &result, nil
}

// disconnect closes the transport, killing the process.
func (sc *ServerConnection) disconnect() error {
	sc.mu.Lock()
	transport := sc.transport
	sc.transport = nil
	sc.connected = false
	sc.tools = nil
	sc.info = nil
	sc.mu.Unlock()

	if transport != nil {
		return transport.Close()
	}
	return nil
}

// markDisconnected flips the instance to disconnected with a reason. The
// instance stays in the registry for status reporting until the next
// reconnect or an explicit disconnect.
func (sc *ServerConnection) markDisconnected(reason string) {
	sc.mu.Lock()
	sc.connected = false
	sc.lastError = reason
	sc.mu.Unlock()
}

func (sc *ServerConnection) isConnected() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.connected
}

// Tools returns the tool snapshot captured at connect time.
func (sc *ServerConnection) Tools() []ToolInfo {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.tools
}

func (sc *ServerConnection) nextRequestID() int {
	return int(sc.nextID.Add(1))
}

func (sc *ServerConnection) status() ServerStatus {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	return ServerStatus{
		Name:       sc.Name,
		InstanceID: sc.InstanceID,
		Connected:  sc.connected,
		ServerInfo: sc.info,
		Error:      sc.lastError,
		Tools:      sc.tools,
	}
}
