package mcp

import (
	"bufio"
	"encoding/json"
	"io"
)

// readFrames splits r into newline-terminated records, parses each as a
// JSON-RPC message, and forwards parsed frames on the returned channel.
// The channel closes when r reaches EOF or an unrecoverable read error.
//
// Child processes routinely write non-protocol banners to stdout, especially
// when launched through a package-runner shim, so anything that does not
// start with '{' is dropped. Malformed JSON after that check is dropped too;
// a bad line must never take down the reader.
func readFrames(r io.Reader) <-chan JSONRPCResponse {
	frames := make(chan JSONRPCResponse)

	go func() {
		defer close(frames)

		scanner := bufio.NewScanner(r)
		// Allow large JSON payloads (1 MB)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}
			if line[0] != '{' {
				debugf("dropping non-protocol line: %.80q", line)
				continue
			}

			var frame JSONRPCResponse
			if err := json.Unmarshal(line, &frame); err != nil {
				debugf("dropping malformed frame: %v", err)
				continue
			}
			frames <- frame
		}
	}()

	return frames
}
