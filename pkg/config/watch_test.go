package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/tbaird/lynx/pkg/types"
)

func TestWatcher_ReloadOnWrite(t *testing.T) {
	path := writeConfig(t, "lynx.json", `{"mcpServers": {}}`)

	updates := make(chan map[string]types.ServerConfig, 4)
	w := NewWatcher(path, func(servers map[string]types.ServerConfig) {
		updates <- servers
	})
	w.debounce = 50 * time.Millisecond

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	content := `{"mcpServers": {"fs": {"command": "node"}}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case servers := <-updates:
		if _, ok := servers["fs"]; !ok {
			t.Errorf("reloaded map missing fs: %v", servers)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("no reload after write")
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	path := writeConfig(t, "lynx.json", `{"mcpServers": {}}`)

	updates := make(chan map[string]types.ServerConfig, 4)
	w := NewWatcher(path, func(servers map[string]types.ServerConfig) {
		updates <- servers
	})
	w.debounce = 50 * time.Millisecond

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	sibling := path + ".other"
	if err := os.WriteFile(sibling, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-updates:
		t.Error("sibling write triggered a reload")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_SkipsBadReload(t *testing.T) {
	path := writeConfig(t, "lynx.json", `{"mcpServers": {}}`)

	updates := make(chan map[string]types.ServerConfig, 4)
	w := NewWatcher(path, func(servers map[string]types.ServerConfig) {
		updates <- servers
	})
	w.debounce = 50 * time.Millisecond

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte(`{broken`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-updates:
		t.Error("malformed config should not reach the callback")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	path := writeConfig(t, "lynx.json", `{"mcpServers": {}}`)
	w := NewWatcher(path, func(map[string]types.ServerConfig) {})

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	w.Stop()
	w.Stop()
}
