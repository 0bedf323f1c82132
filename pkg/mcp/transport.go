package mcp

import (
	"context"
	"time"
)

// Transport abstracts request/response JSON-RPC communication with a
// tool-execution server. The only production implementation speaks over a
// child process's stdio pipes; the interface exists so connection and
// registry logic can be tested against a mock.
type Transport interface {
	// Send sends a JSON-RPC request and returns the correlated response.
	// The timeout bounds this one request; responses arriving after it
	// fires are discarded.
	Send(ctx context.Context, req JSONRPCRequest, timeout time.Duration) (JSONRPCResponse, error)
	// Notify sends a JSON-RPC notification (no response expected).
	Notify(ctx context.Context, method string, params any) error
	// Close terminates the transport and settles every pending request.
	Close() error
}
