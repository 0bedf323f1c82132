package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// mockTransport implements Transport with pre-programmed responses.
type mockTransport struct {
	mu        sync.Mutex
	responses map[string]json.RawMessage // method → result JSON
	errors    map[string]error           // method → transport-level error
	delays    map[string]time.Duration   // method → simulated processing time
	closed    bool
	notified  []string // methods that were notified
	sent      []string // methods that were sent
	onExit    func(error)
}

func newMockTransport() *mockTransport {
	return &mockTransport{
		responses: make(map[string]json.RawMessage),
		errors:    make(map[string]error),
		delays:    make(map[string]time.Duration),
	}
}

// withInitialize configures a standard initialize response.
func (m *mockTransport) withInitialize() *mockTransport {
	result := InitializeResult{
		ProtocolVersion: protocolVersion,
		Capabilities:    ServerCapabilities{Tools: &ToolsCapability{}},
		ServerInfo:      ServerInfo{Name: "mock-server", Version: "1.0"},
	}
	data, _ := json.Marshal(result)
	m.responses[MethodInitialize] = data
	return m
}

// withTools configures the tools/list response.
func (m *mockTransport) withTools(tools []ToolInfo) *mockTransport {
	data, _ := json.Marshal(ToolsListResult{Tools: tools})
	m.responses[MethodToolsList] = data
	return m
}

// withToolCall configures the tools/call response.
func (m *mockTransport) withToolCall(result ToolResult) *mockTransport {
	data, _ := json.Marshal(result)
	m.responses[MethodToolsCall] = data
	return m
}

// withError makes a method fail at the transport level.
func (m *mockTransport) withError(method string, err error) *mockTransport {
	m.errors[method] = err
	return m
}

// withDelay makes a method block before responding, to exercise timeouts.
func (m *mockTransport) withDelay(method string, d time.Duration) *mockTransport {
	m.delays[method] = d
	return m
}

func (m *mockTransport) Send(ctx context.Context, req JSONRPCRequest, timeout time.Duration) (JSONRPCResponse, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return JSONRPCResponse{}, ErrClosed
	}
	m.sent = append(m.sent, req.Method)
	delay := m.delays[req.Method]
	err := m.errors[req.Method]
	result, ok := m.responses[req.Method]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return JSONRPCResponse{}, ctx.Err()
		}
		if delay >= timeout {
			return JSONRPCResponse{}, ErrTimeout
		}
	}
	if err != nil {
		return JSONRPCResponse{}, err
	}

	if !ok {
		return JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &JSONRPCError{Code: -32601, Message: "Method not found: " + req.Method},
		}, nil
	}

	return JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
	}, nil
}

func (m *mockTransport) Notify(_ context.Context, method string, _ any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	m.notified = append(m.notified, method)
	return nil
}

func (m *mockTransport) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

func (m *mockTransport) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// reportExit simulates the supervised process dying out from under the
// client.
func (m *mockTransport) reportExit(err error) {
	m.mu.Lock()
	m.closed = true
	onExit := m.onExit
	m.mu.Unlock()
	if onExit != nil {
		onExit(err)
	}
}

