package mcp

import "os/exec"

// CommandResolver rewrites a configured command before the process is
// spawned. It exists so the "prefer a faster package runner when one is
// installed" behavior is a pluggable strategy rather than baked into the
// supervisor.
type CommandResolver interface {
	Resolve(command string) string
}

// defaultResolver swaps npx for bunx when bunx is on PATH. Everything else
// passes through untouched.
type defaultResolver struct{}

func (defaultResolver) Resolve(command string) string {
	if command == "npx" {
		if _, err := exec.LookPath("bunx"); err == nil {
			return "bunx"
		}
	}
	return command
}

// passthroughResolver leaves every command as configured.
type passthroughResolver struct{}

func (passthroughResolver) Resolve(command string) string { return command }
