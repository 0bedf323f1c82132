package mcp

import (
	"sync"
	"time"
)

// callOutcome is delivered to a waiting caller: a correlated response, or
// the error that settled the call instead.
type callOutcome struct {
	resp JSONRPCResponse
	err  error
}

// pendingCall is one outstanding request: a oneshot delivery channel plus
// the deadline timer that rejects it if no response arrives in time.
type pendingCall struct {
	ch    chan callOutcome // buffered, capacity 1
	timer *time.Timer
}

// pendingTable maps outstanding request ids to pending calls. An entry is
// consumed exactly once, by whichever of resolve, reject, timeout, or
// failAll gets there first; every later consumer finds the entry gone and
// no-ops. Responses for unknown ids (already timed out, already resolved)
// are deliberately discarded.
type pendingTable struct {
	mu    sync.Mutex
	calls map[int]*pendingCall
}

func newPendingTable() *pendingTable {
	return &pendingTable{calls: make(map[int]*pendingCall)}
}

// register stores a pending entry for id and arms its deadline. The returned
// channel yields exactly one outcome; if the deadline fires first it yields
// ErrTimeout.
func (p *pendingTable) register(id int, timeout time.Duration) <-chan callOutcome {
	p.mu.Lock()
	defer p.mu.Unlock()

	call := &pendingCall{ch: make(chan callOutcome, 1)}
	call.timer = time.AfterFunc(timeout, func() {
		p.reject(id, ErrTimeout)
	})
	p.calls[id] = call
	return call.ch
}

// resolve delivers a response to the caller waiting on id. Returns false if
// no entry exists, in which case the response is dropped.
func (p *pendingTable) resolve(id int, resp JSONRPCResponse) bool {
	call := p.take(id)
	if call == nil {
		return false
	}
	call.ch <- callOutcome{resp: resp}
	return true
}

// reject settles the call for id with an error. Returns false if no entry
// exists.
func (p *pendingTable) reject(id int, err error) bool {
	call := p.take(id)
	if call == nil {
		return false
	}
	call.ch <- callOutcome{err: err}
	return true
}

// drop removes the entry for id without delivering anything. Used when the
// caller itself gives up (context cancellation, failed write).
func (p *pendingTable) drop(id int) {
	p.take(id)
}

// failAll settles every outstanding call with err and clears the table.
// No timers remain armed afterwards.
func (p *pendingTable) failAll(err error) {
	p.mu.Lock()
	calls := p.calls
	p.calls = make(map[int]*pendingCall)
	p.mu.Unlock()

	for _, call := range calls {
		call.timer.Stop()
		call.ch <- callOutcome{err: err}
	}
}

// take removes and returns the entry for id, stopping its timer.
// Returns nil if the entry was already consumed.
func (p *pendingTable) take(id int) *pendingCall {
	p.mu.Lock()
	defer p.mu.Unlock()

	call, ok := p.calls[id]
	if !ok {
		return nil
	}
	delete(p.calls, id)
	call.timer.Stop()
	return call
}

// size reports how many calls are outstanding.
func (p *pendingTable) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}
