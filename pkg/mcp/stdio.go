package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tbaird/lynx/pkg/types"
)

// terminateGrace is how long Close waits for a SIGTERM'd process before
// escalating to SIGKILL.
const terminateGrace = 5 * time.Second

// StdioTransport speaks newline-delimited JSON-RPC with a spawned server
// process over its stdin/stdout pipes. A reader goroutine decodes frames
// and a dispatcher matches them against the pending table, so I/O never
// touches correlation bookkeeping directly.
type StdioTransport struct {
	proc    *process
	pending *pendingTable

	writeMu sync.Mutex // serializes writes to stdin

	closing   atomic.Bool
	closeOnce sync.Once
	done      chan struct{} // closed when the dispatcher exits
}

// newStdioTransport spawns the configured process and starts its reader and
// dispatcher. onExit, if non-nil, is invoked once when the process ends for
// any reason other than a deliberate Close; it receives the exit error
// (including the stderr tail on abnormal exit) or nil.
func newStdioTransport(cfg types.ServerConfig, resolve CommandResolver, onExit func(error)) (*StdioTransport, error) {
	proc, err := spawnProcess(cfg, resolve)
	if err != nil {
		return nil, err
	}

	t := &StdioTransport{
		proc:    proc,
		pending: newPendingTable(),
		done:    make(chan struct{}),
	}

	go t.dispatch(readFrames(proc.stdout), onExit)

	return t, nil
}

// dispatch consumes decoded frames until stdout closes, then settles every
// pending request and reports the exit upstream.
func (t *StdioTransport) dispatch(frames <-chan JSONRPCResponse, onExit func(error)) {
	for frame := range frames {
		if frame.ID == nil {
			// Server-initiated notification; nothing to correlate.
			debugf("ignoring notification %q", frame.Method)
			continue
		}
		if !t.pending.resolve(*frame.ID, frame) {
			// Late response for a request that already timed out, or a
			// duplicate. Dropping it is the intended behavior.
			debugf("dropping response for unknown id %d", *frame.ID)
		}
	}

	// Stdout is gone: the process exited or Close tore it down.
	<-t.proc.exited
	exitErr := t.proc.exitError()

	failErr := error(ErrClosed)
	if exitErr != nil {
		failErr = fmt.Errorf("%w: %v", ErrClosed, exitErr)
	}
	t.pending.failAll(failErr)
	close(t.done)

	if onExit != nil && !t.closing.Load() {
		onExit(exitErr)
	}
}

// Send writes a JSON-RPC request to stdin and waits for the correlated
// response, the per-request deadline, or ctx cancellation, whichever is
// first.
func (t *StdioTransport) Send(ctx context.Context, req JSONRPCRequest, timeout time.Duration) (JSONRPCResponse, error) {
	if req.ID == nil {
		return JSONRPCResponse{}, fmt.Errorf("Send requires a request with an ID; use Notify for notifications")
	}
	id := *req.ID

	select {
	case <-t.done:
		return JSONRPCResponse{}, t.closedError()
	default:
	}

	data, err := json.Marshal(req)
	if err != nil {
		return JSONRPCResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	// Register before writing so a fast response cannot race the table.
	ch := t.pending.register(id, timeout)

	t.writeMu.Lock()
	_, writeErr := t.proc.stdin.Write(append(data, '\n'))
	t.writeMu.Unlock()

	if writeErr != nil {
		t.pending.drop(id)
		return JSONRPCResponse{}, fmt.Errorf("write to stdin: %w", writeErr)
	}

	select {
	case out := <-ch:
		return out.resp, out.err
	case <-ctx.Done():
		t.pending.drop(id)
		return JSONRPCResponse{}, ctx.Err()
	}
}

// Notify writes a JSON-RPC notification (no ID, no response expected).
func (t *StdioTransport) Notify(_ context.Context, method string, params any) error {
	data, err := json.Marshal(newNotification(method, params))
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if _, err := t.proc.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

// Close terminates the child process and waits for the dispatcher to settle
// every pending request. Safe to call more than once.
func (t *StdioTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closing.Store(true)
		t.proc.terminate(terminateGrace)
		<-t.done
	})
	return nil
}

// closedError wraps ErrClosed with the process exit detail when there is one.
func (t *StdioTransport) closedError() error {
	if exitErr := t.proc.exitError(); exitErr != nil {
		return fmt.Errorf("%w: %v", ErrClosed, exitErr)
	}
	return ErrClosed
}
