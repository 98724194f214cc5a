package infra

import (
	"os"
	"path/filepath"
	"strings"
)

// defaultDataDirName is created under the user config directory.
const defaultDataDirName = "appblock"

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	return expandHomeWith(path, userHome())
}

func expandHomeWith(path, home string) string {
	if home == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		return home
	}
	return path
}

// DefaultDataDir returns the per-user data directory, e.g.
// ~/.config/appblock on Linux or ~/Library/Application Support/appblock on macOS.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, defaultDataDirName)
	}
	return filepath.Join(userHome(), "."+defaultDataDirName)
}

// ResolveDataDir expands dir, falling back to DefaultDataDir when empty.
func ResolveDataDir(dir string) string {
	if strings.TrimSpace(dir) == "" {
		return DefaultDataDir()
	}
	return ExpandHome(dir)
}

func userHome() string {
	home, _ := os.UserHomeDir()
	return home
}
