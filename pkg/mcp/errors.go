package mcp

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for transport-level failures.
var (
	// ErrTimeout is returned when a request deadline fires before a
	// matching response arrives.
	ErrTimeout = errors.New("request timed out")

	// ErrClosed is returned for operations on a closed transport.
	ErrClosed = errors.New("transport closed")
)

// ErrorKind is a coarse classification of connection failures, used only to
// pick user-facing wording. It never changes control flow inside the client.
type ErrorKind string

const (
	ErrorOccupied ErrorKind = "occupied"  // another client already holds the server
	ErrorNotFound ErrorKind = "not-found" // server binary missing
	ErrorTimeout  ErrorKind = "timeout"   // deadline exceeded
	ErrorGeneric  ErrorKind = "generic"   // everything else
)

// Classify maps a raw failure message to an ErrorKind by substring matching.
func Classify(msg string) ErrorKind {
	lower := strings.ToLower(msg)

	switch {
	case strings.Contains(lower, "already connected"),
		strings.Contains(lower, "in use"),
		strings.Contains(lower, "eaddrinuse"):
		return ErrorOccupied
	case strings.Contains(lower, "enoent"),
		strings.Contains(lower, "not found"),
		strings.Contains(lower, "no such file"),
		strings.Contains(lower, "executable file not found"):
		return ErrorNotFound
	case strings.Contains(lower, "timed out"),
		strings.Contains(lower, "timeout"),
		strings.Contains(lower, "deadline exceeded"):
		return ErrorTimeout
	default:
		return ErrorGeneric
	}
}

// ClassifyError classifies a Go error, preferring sentinel checks over
// substring matching.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrorGeneric
	}
	if errors.Is(err, ErrTimeout) {
		return ErrorTimeout
	}
	return Classify(err.Error())
}

// FormatConnectError renders a connection failure as actionable guidance
// for the operator.
func FormatConnectError(serverName string, err error) string {
	switch ClassifyError(err) {
	case ErrorOccupied:
		return fmt.Sprintf("%s is occupied by another client; close it first, then retry", serverName)
	case ErrorNotFound:
		return fmt.Sprintf("%s command not found; check that it is installed and on PATH", serverName)
	case ErrorTimeout:
		return fmt.Sprintf("%s did not respond in time; the server may be slow to start or hung", serverName)
	default:
		return fmt.Sprintf("%s connection failed: %v", serverName, err)
	}
}
