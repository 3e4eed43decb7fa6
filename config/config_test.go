package config

import (
	"path/filepath"
	"runtime"
	"testing"
)

func TestDirEnvOverride(t *testing.T) {
	t.Setenv(EnvDir, "/tmp/tern-profile")

	if got := Dir(); got != "/tmp/tern-profile" {
		t.Errorf("override ignored, got %q", got)
	}
	if got := InitFile(); got != filepath.Join("/tmp/tern-profile", "init.lua") {
		t.Errorf("unexpected init file %q", got)
	}
}

func TestDirXDG(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG path only applies off Windows")
	}
	t.Setenv(EnvDir, "")
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	if got := Dir(); got != filepath.Join("/tmp/xdg", "tern") {
		t.Errorf("unexpected dir %q", got)
	}
}
