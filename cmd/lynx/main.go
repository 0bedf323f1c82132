// lynx drives tool-execution servers configured in an mcpServers document.
//
// Usage:
//
//	lynx [-config path] servers
//	lynx [-config path] status
//	lynx [-config path] tools
//	lynx [-config path] call <server> <tool> [json-args]
//	lynx [-config path] watch
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/tbaird/lynx/pkg/config"
	"github.com/tbaird/lynx/pkg/mcp"
	"github.com/tbaird/lynx/pkg/tools"
	"github.com/tbaird/lynx/pkg/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", defaultConfigPath(), "Path to the mcpServers config (JSON or YAML)")
	allow := flag.String("allow-tools", "", "Comma-separated glob patterns of tools to register (empty = all)")
	deny := flag.String("deny-tools", "", "Comma-separated glob patterns of tools to reject")
	debug := flag.Bool("debug", false, "Log dropped frames and process exits")
	flag.Parse()

	mcp.SetDebug(*debug)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return 2
	}

	doc, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	registry := tools.NewRegistry(tools.WithFilter(tools.NewFilter(splitPatterns(*allow), splitPatterns(*deny))))
	client := mcp.NewClient(doc.MCPServers, mcp.WithRegistry(registry))
	// Single teardown path: every exit route below runs through this.
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "servers":
		for _, name := range client.ListServers() {
			fmt.Println(name)
		}
		return 0

	case "status":
		connectAll(ctx, client)
		for _, s := range client.Status() {
			state := "disconnected"
			if s.Connected {
				state = "connected"
			}
			fmt.Printf("%-20s %-13s tools=%d", s.Name, state, len(s.Tools))
			if s.Error != "" {
				fmt.Printf("  (%s)", s.Error)
			}
			fmt.Println()
		}
		return 0

	case "tools":
		connectAll(ctx, client)
		for _, name := range registry.Names() {
			tool, _ := registry.Get(name)
			fmt.Printf("%s\t%s\n", name, tool.Description())
		}
		fmt.Printf("%d tools from %d servers\n", client.TotalToolCount(), len(client.ConnectedServers()))
		return 0

	case "call":
		if len(args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: lynx call <server> <tool> [json-args]")
			return 2
		}
		var callArgs map[string]any
		if len(args) > 3 {
			if err := json.Unmarshal([]byte(args[3]), &callArgs); err != nil {
				fmt.Fprintf(os.Stderr, "Error: bad json-args: %v\n", err)
				return 2
			}
		}
		result := client.CallTool(ctx, args[1], args[2], callArgs)
		printResult(result)
		if result.IsError {
			return 1
		}
		return 0

	case "watch":
		connectAll(ctx, client)
		watcher := config.NewWatcher(*configPath, func(servers map[string]types.ServerConfig) {
			changed := client.SetServers(ctx, servers)
			for _, name := range changed.Added {
				fmt.Printf("connected %s\n", name)
			}
			for _, name := range changed.Removed {
				fmt.Printf("removed %s\n", name)
			}
			for name, msg := range changed.Errors {
				fmt.Fprintf(os.Stderr, "%s: %s\n", name, msg)
			}
		})
		if err := watcher.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		defer watcher.Stop()
		fmt.Printf("watching %s (%d servers connected); ctrl-c to stop\n", *configPath, len(client.ConnectedServers()))
		<-ctx.Done()
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
		flag.Usage()
		return 2
	}
}

// connectAll attempts every configured server, reporting failures without
// stopping; a server that cannot connect still shows up in status.
func connectAll(ctx context.Context, client *mcp.Client) {
	for _, name := range client.ListServers() {
		if _, err := client.Connect(ctx, name); err != nil {
			fmt.Fprintln(os.Stderr, mcp.FormatConnectError(name, err))
		}
	}
}

func printResult(result mcp.ToolResult) {
	out := os.Stdout
	if result.IsError {
		out = os.Stderr
	}
	for _, block := range result.Content {
		switch block.Type {
		case "text":
			fmt.Fprintln(out, block.Text)
		case "image":
			fmt.Fprintf(out, "[image %s, %d bytes base64]\n", block.MimeType, len(block.Data))
		case "resource":
			fmt.Fprintf(out, "[resource %s]\n", block.URI)
		}
	}
}

func splitPatterns(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func defaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".lynx.json"
	}
	return filepath.Join(home, ".lynx.json")
}
