// Package config loads and validates wastewise configuration from viper.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

const appName = "wastewise"

// ConfigDir is where config.yaml is looked up by default.
const ConfigDir = "~/.config/" + appName

// DataDir holds the database and the JSON file store by default.
const DataDir = "~/.local/share/" + appName

// ExpandPath expands a leading ~ and $VAR references in path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}

	return os.ExpandEnv(path)
}
