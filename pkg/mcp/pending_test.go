package mcp

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestPendingTable_ResolveDelivers(t *testing.T) {
	p := newPendingTable()

	ch := p.register(1, time.Minute)
	id := 1
	if !p.resolve(1, JSONRPCResponse{JSONRPC: "2.0", ID: &id}) {
		t.Fatal("resolve should find the entry")
	}

	out := <-ch
	if out.err != nil {
		t.Fatalf("unexpected error: %v", out.err)
	}
	if out.resp.ID == nil || *out.resp.ID != 1 {
		t.Errorf("unexpected response: %+v", out.resp)
	}
	if p.size() != 0 {
		t.Errorf("expected empty table, got %d entries", p.size())
	}
}

func TestPendingTable_TimeoutFires(t *testing.T) {
	p := newPendingTable()

	ch := p.register(1, 10*time.Millisecond)

	select {
	case out := <-ch:
		if !errors.Is(out.err, ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", out.err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout never fired")
	}

	if p.size() != 0 {
		t.Error("timed-out entry should be removed")
	}
}

func TestPendingTable_LateResolveIsNoop(t *testing.T) {
	p := newPendingTable()

	ch := p.register(7, 10*time.Millisecond)
	<-ch // consume the timeout

	id := 7
	if p.resolve(7, JSONRPCResponse{ID: &id}) {
		t.Error("resolve after timeout should report the entry as gone")
	}
}

func TestPendingTable_ResolveThenTimeoutIsNoop(t *testing.T) {
	p := newPendingTable()

	ch := p.register(3, 20*time.Millisecond)
	id := 3
	p.resolve(3, JSONRPCResponse{ID: &id})

	out := <-ch
	if out.err != nil {
		t.Fatalf("expected response, got error %v", out.err)
	}

	// Give the (stopped) timer a chance to misbehave.
	time.Sleep(50 * time.Millisecond)
	select {
	case extra := <-ch:
		t.Errorf("unexpected second outcome: %+v", extra)
	default:
	}
}

func TestPendingTable_RejectDelivers(t *testing.T) {
	p := newPendingTable()

	ch := p.register(2, time.Minute)
	want := errors.New("boom")
	if !p.reject(2, want) {
		t.Fatal("reject should find the entry")
	}

	out := <-ch
	if !errors.Is(out.err, want) {
		t.Errorf("expected boom, got %v", out.err)
	}
}

func TestPendingTable_FailAllSettlesEverything(t *testing.T) {
	p := newPendingTable()

	const n = 10
	chans := make([]<-chan callOutcome, n)
	for i := 0; i < n; i++ {
		chans[i] = p.register(i, time.Minute)
	}

	p.failAll(ErrClosed)

	for i, ch := range chans {
		select {
		case out := <-ch:
			if !errors.Is(out.err, ErrClosed) {
				t.Errorf("call %d: expected ErrClosed, got %v", i, out.err)
			}
		case <-time.After(time.Second):
			t.Fatalf("call %d never settled", i)
		}
	}

	if p.size() != 0 {
		t.Error("failAll should clear the table")
	}
}

func TestPendingTable_DropRemovesSilently(t *testing.T) {
	p := newPendingTable()

	ch := p.register(5, time.Minute)
	p.drop(5)

	if p.size() != 0 {
		t.Error("drop should remove the entry")
	}
	select {
	case out := <-ch:
		t.Errorf("drop should not deliver an outcome, got %+v", out)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestPendingTable_ConcurrentConsumers(t *testing.T) {
	p := newPendingTable()

	const n = 100
	var delivered sync.Map

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		ch := p.register(i, 5*time.Millisecond)

		wg.Add(2)
		// Racer 1: resolve
		go func(id int) {
			defer wg.Done()
			p.resolve(id, JSONRPCResponse{ID: &id})
		}(i)
		// Racer 2: reject (in addition to the armed timeout)
		go func(id int) {
			defer wg.Done()
			p.reject(id, fmt.Errorf("raced"))
		}(i)

		wg.Add(1)
		go func(id int, ch <-chan callOutcome) {
			defer wg.Done()
			out := <-ch
			if _, dup := delivered.LoadOrStore(id, out); dup {
				t.Errorf("call %d settled twice", id)
			}
			// Exactly one outcome per id; a second would hang below.
			select {
			case extra := <-ch:
				t.Errorf("call %d: second outcome %+v", id, extra)
			case <-time.After(20 * time.Millisecond):
			}
		}(i, ch)
	}
	wg.Wait()

	if p.size() != 0 {
		t.Errorf("expected empty table, got %d", p.size())
	}
}
