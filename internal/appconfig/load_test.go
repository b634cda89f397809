package appconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want, err := DefaultConfig()
	if err != nil {
		t.Fatalf("defaults: %v", err)
	}
	if cfg.HTTP.PreferredPort != want.HTTP.PreferredPort {
		t.Fatalf("preferred_port = %d, want %d", cfg.HTTP.PreferredPort, want.HTTP.PreferredPort)
	}
	if cfg.UI.MaxLogBytes != want.UI.MaxLogBytes {
		t.Fatalf("max_log_bytes = %d, want %d", cfg.UI.MaxLogBytes, want.UI.MaxLogBytes)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "config_version: 1\nhttp:\n  preferred_port: 9000\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.PreferredPort != 9000 {
		t.Fatalf("preferred_port = %d, want 9000", cfg.HTTP.PreferredPort)
	}
	if cfg.HTTP.PortProbeSpan == 0 {
		t.Fatalf("port_probe_span default was not merged")
	}
}

func TestLoadRejectsUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("config_version: 99\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestWriteDefaultRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if _, err := WriteDefault(path, false); err != nil {
		t.Fatalf("write default: %v", err)
	}
	if _, err := WriteDefault(path, false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	if _, err := WriteDefault(path, true); err != nil {
		t.Fatalf("forced overwrite: %v", err)
	}
}
