package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/tbaird/lynx/pkg/types"
)

// Load reads a server configuration document from path. JSON is the default;
// .yaml/.yml paths are parsed as YAML. A missing file is not an error: the
// result is simply an empty server map.
//
// Reads take a shared advisory lock so another lynx process writing the same
// file cannot hand us a half-written document.
func Load(path string) (*types.ConfigDocument, error) {
	data, err := readLocked(path)
	if os.IsNotExist(err) {
		return &types.ConfigDocument{MCPServers: map[string]types.ServerConfig{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var doc types.ConfigDocument
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if doc.MCPServers == nil {
		doc.MCPServers = map[string]types.ServerConfig{}
	}

	for name, server := range doc.MCPServers {
		if server.Command == "" {
			return nil, fmt.Errorf("config %s: server %q has no command", path, name)
		}
	}

	return &doc, nil
}

// readLocked reads the file under a shared flock. The lock file sits next to
// the config so writers and readers contend on the same path.
func readLocked(path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	fl := flock.New(path + ".lock")
	if err := fl.RLock(); err != nil {
		// Lock failure degrades to an unlocked read rather than blocking
		// the CLI on a stuck lock holder.
		return os.ReadFile(path)
	}
	defer fl.Unlock()

	return os.ReadFile(path)
}
