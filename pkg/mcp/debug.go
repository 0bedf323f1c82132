package mcp

import (
	"log"
	"sync/atomic"
)

var debugEnabled atomic.Bool

// SetDebug toggles debug logging of protocol noise (dropped lines, late
// responses, process exits). Off by default.
func SetDebug(on bool) {
	debugEnabled.Store(on)
}

func debugf(format string, args ...any) {
	if debugEnabled.Load() {
		log.Printf("mcp: "+format, args...)
	}
}
