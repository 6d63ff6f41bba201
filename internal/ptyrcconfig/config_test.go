package ptyrcconfig

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromMissingFileReturnsDefault(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.StartPort != 34012 || cfg.PortRange != 10 {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadFromOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("start_port: 40000\nverbose: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.StartPort != 40000 {
		t.Fatalf("start_port not overridden: %d", cfg.StartPort)
	}
	if !cfg.Verbose {
		t.Fatal("verbose not overridden")
	}
	if cfg.PortRange != 10 {
		t.Fatalf("port_range default lost: %d", cfg.PortRange)
	}
}

func TestLoadFromRejectsBadPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("start_port: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for start_port: 0")
	}
}
