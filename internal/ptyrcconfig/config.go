// Package ptyrcconfig loads the optional YAML configuration shared by the
// driver and pilot binaries.
package ptyrcconfig

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the driver/pilot rendezvous and logging
// layers read. Every field has a default; the file need not exist.
type Config struct {
	StartPort        int      `yaml:"start_port"`
	PortRange        int      `yaml:"port_range"`
	InitialLatencyMs int      `yaml:"initial_latency_ms"`
	Verbose          bool     `yaml:"verbose"`
	EditorFallbacks  []string `yaml:"editor_fallbacks"`
}

// Default returns the built-in configuration used when no file is found.
func Default() *Config {
	return &Config{
		StartPort:        34012,
		PortRange:        10,
		InitialLatencyMs: 1000,
		Verbose:          false,
		EditorFallbacks:  []string{"vim", "nano", "bash", "sh"},
	}
}

// Dir returns the ptyrc configuration directory (~/.ptyrc/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".ptyrc")
	}
	return filepath.Join(home, ".ptyrc")
}

// Load reads the config from $PTYRC_CONFIG, falling back to
// ~/.ptyrc/config.yaml. A missing file is not an error: Default() is
// returned unchanged.
func Load() (*Config, error) {
	path := os.Getenv("PTYRC_CONFIG")
	if path == "" {
		path = filepath.Join(Dir(), "config.yaml")
	}
	return LoadFrom(path)
}

// LoadFrom reads the config from the given path, merging onto Default().
func LoadFrom(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.StartPort <= 0 || cfg.StartPort > 65535 {
		return nil, fmt.Errorf("config: start_port out of range: %d", cfg.StartPort)
	}
	if cfg.PortRange <= 0 {
		return nil, fmt.Errorf("config: port_range must be positive: %d", cfg.PortRange)
	}
	if len(cfg.EditorFallbacks) == 0 {
		cfg.EditorFallbacks = Default().EditorFallbacks
	}
	return cfg, nil
}
