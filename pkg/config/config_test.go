package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeConfig(t, "lynx.json", `{
		"mcpServers": {
			"fs": {
				"command": "node",
				"args": ["server.js", "--root", "/data"],
				"env": {"LOG_LEVEL": "debug"},
				"cwd": "/srv/fs"
			},
			"github": {"command": "npx", "args": ["-y", "@x/github-mcp"]}
		}
	}`)

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.MCPServers) != 2 {
		t.Fatalf("got %d servers", len(doc.MCPServers))
	}

	fs := doc.MCPServers["fs"]
	if fs.Command != "node" {
		t.Errorf("command = %q", fs.Command)
	}
	if len(fs.Args) != 3 || fs.Args[1] != "--root" {
		t.Errorf("args = %v", fs.Args)
	}
	if fs.Env["LOG_LEVEL"] != "debug" {
		t.Errorf("env = %v", fs.Env)
	}
	if fs.CWD != "/srv/fs" {
		t.Errorf("cwd = %q", fs.CWD)
	}
}

func TestLoad_YAML(t *testing.T) {
	path := writeConfig(t, "lynx.yaml", `
mcpServers:
  fs:
    command: node
    args: [server.js]
    env:
      DEBUG: "1"
`)

	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fs, ok := doc.MCPServers["fs"]
	if !ok {
		t.Fatal("fs server missing")
	}
	if fs.Command != "node" || fs.Env["DEBUG"] != "1" {
		t.Errorf("server = %+v", fs)
	}
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	doc, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if doc.MCPServers == nil || len(doc.MCPServers) != 0 {
		t.Errorf("expected empty server map, got %v", doc.MCPServers)
	}
}

func TestLoad_EmptyDocument(t *testing.T) {
	doc, err := Load(writeConfig(t, "lynx.json", `{}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if doc.MCPServers == nil {
		t.Error("server map should be non-nil")
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	_, err := Load(writeConfig(t, "lynx.json", `{not json`))
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Errorf("err = %v", err)
	}
}

func TestLoad_MissingCommand(t *testing.T) {
	_, err := Load(writeConfig(t, "lynx.json", `{"mcpServers": {"broken": {"args": ["x"]}}}`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), `"broken"`) {
		t.Errorf("error should name the server: %v", err)
	}
}
