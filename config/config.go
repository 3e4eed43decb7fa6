// Package config locates tern's per-user configuration.
package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// EnvDir overrides the configuration directory when set. Useful for
// trying out a scratch profile without touching the real one.
const EnvDir = "TERN_CONFIG_DIR"

// Dir returns the configuration directory: $TERN_CONFIG_DIR when set,
// otherwise the platform convention (XDG on Unix, APPDATA on Windows).
func Dir() string {
	if dir := os.Getenv(EnvDir); dir != "" {
		return dir
	}

	if runtime.GOOS == "windows" {
		if base := os.Getenv("APPDATA"); base != "" {
			return filepath.Join(base, "tern")
		}
		return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming", "tern")
	}

	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(base, "tern")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tern")
}

// InitFile returns the path of the startup script run at launch.
func InitFile() string {
	return filepath.Join(Dir(), "init.lua")
}
