// Package config provides configuration loading and structs for emotags.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug   bool          `yaml:"debug"`
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Vault   VaultConfig   `yaml:"vault"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the rename journal location.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// VaultConfig describes the note directories and how they are watched.
type VaultConfig struct {
	Directories  []string `yaml:"directories"`
	Extensions   []string `yaml:"extensions"`
	Recursive    *bool    `yaml:"recursive"`
	DebounceMS   int      `yaml:"debounce_ms"`
	ApplyOnStart bool     `yaml:"apply_on_start"`
}

// RecursiveOrDefault returns whether to walk subdirectories; defaults to true when unset.
func (v *VaultConfig) RecursiveOrDefault() bool {
	if v.Recursive != nil {
		return *v.Recursive
	}
	return true
}

// Debounce returns the watcher quiet period.
func (v *VaultConfig) Debounce() time.Duration {
	return time.Duration(v.DebounceMS) * time.Millisecond
}

// Address returns host:port for the HTTP server.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	for i := range cfg.Vault.Directories {
		cfg.Vault.Directories[i] = expandPath(cfg.Vault.Directories[i], configDir)
	}

	return &cfg, nil
}

// Save writes the config to path atomically. Used for persisting vault directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir,
// "~/" is the home directory, and other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return path
}
