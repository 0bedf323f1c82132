package mcp

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/tbaird/lynx/pkg/types"
)

// stderrTailSize bounds how much trailing stderr is retained for diagnostics.
const stderrTailSize = 4 * 1024

// tailBuffer is an io.Writer that keeps only the last N bytes written.
// Stderr is never parsed as protocol; it exists purely so a crash report
// can show what the server said on the way down.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.buf = append(t.buf, p...)
	if len(t.buf) > t.max {
		t.buf = t.buf[len(t.buf)-t.max:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.buf)
}

// process is a spawned server process with its protocol pipes wired up:
// stdin as the request sink, stdout as the frame source, stderr into a
// bounded trailing buffer.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr *tailBuffer

	exited  chan struct{} // closed once the wait goroutine observes exit
	waitErr error         // valid after exited is closed
}

// spawnProcess launches the server described by cfg. The child inherits the
// parent environment plus any overrides, and runs in cfg.CWD when set.
// A missing or unexecutable binary surfaces here, from Start.
func spawnProcess(cfg types.ServerConfig, resolve CommandResolver) (*process, error) {
	command := cfg.Command
	if resolve != nil {
		command = resolve.Resolve(command)
	}

	cmd := exec.Command(command, cfg.Args...)
	cmd.Env = os.Environ()
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	if cfg.CWD != "" {
		cmd.Dir = cfg.CWD
	}

	stdinPipe, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderr := newTailBuffer(stderrTailSize)
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}

	p := &process{
		cmd:    cmd,
		stdin:  stdinPipe,
		stdout: stdoutPipe,
		stderr: stderr,
		exited: make(chan struct{}),
	}

	// Single owner of cmd.Wait; everyone else watches the exited channel.
	go func() {
		p.waitErr = cmd.Wait()
		close(p.exited)
	}()

	return p, nil
}

// exitError describes how the process ended, folding in the stderr tail on
// abnormal exit. Returns nil while the process is still running or if it
// exited cleanly.
func (p *process) exitError() error {
	select {
	case <-p.exited:
	default:
		return nil
	}

	if p.waitErr == nil {
		return nil
	}
	if tail := p.stderr.String(); tail != "" {
		return fmt.Errorf("process %w: %s", p.waitErr, tail)
	}
	return fmt.Errorf("process %w", p.waitErr)
}

// terminate shuts the process down: close stdin, SIGTERM, wait up to the
// grace period, then SIGKILL.
func (p *process) terminate(grace time.Duration) {
	p.stdin.Close()

	if p.cmd.Process != nil {
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
	}

	select {
	case <-p.exited:
	case <-time.After(grace):
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		<-p.exited
	}
}
