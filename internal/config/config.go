// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading for bondchat.
//
// Configuration is TOML with environment variable overrides:
//   - ~/.bondchat/config.toml
//   - BONDCHAT_AGENT_URL, BONDCHAT_API_KEY, BONDCHAT_AGENT_ID
//   - Built-in defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete bondchat configuration.
type Config struct {
	Version string `toml:"version"`

	// Agent service connection
	Agent AgentConfig `toml:"agent"`

	// Local state
	HistoryPath string `toml:"history_path"`
	LogPath     string `toml:"log_path"`

	// UI configuration
	UI UIConfig `toml:"ui"`
}

// AgentConfig contains agent service connection settings.
type AgentConfig struct {
	// BaseURL is the agent service root.
	BaseURL string `toml:"base_url"`
	// APIKey authenticates requests (prefer the env var over the file).
	APIKey string `toml:"api_key"`
	// DefaultAgent is the agent id used when none is given.
	DefaultAgent string `toml:"default_agent"`
	// Introduction is sent automatically when opening a fresh thread.
	Introduction string `toml:"introduction"`
}

// UIConfig contains TUI settings.
type UIConfig struct {
	// Markdown enables glamour rendering of settled assistant messages.
	Markdown bool `toml:"markdown"`
	// ShowTimestamps displays message timestamps in the transcript.
	ShowTimestamps bool `toml:"show_timestamps"`
}

// =============================================================================
// DEFAULTS AND LOADING
// =============================================================================

var (
	globalMu  sync.RWMutex
	globalCfg *Config
)

// Default returns the built-in defaults.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Version:     "1",
		HistoryPath: filepath.Join(home, ".bondchat", "history.db"),
		LogPath:     filepath.Join(home, ".bondchat", "bondchat.log"),
		UI: UIConfig{
			Markdown:       true,
			ShowTimestamps: false,
		},
	}
}

// Path returns the default config file location.
func Path() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".bondchat", "config.toml")
}

// Load reads the config file at path, layering it over the defaults and
// then applying environment overrides. A missing file is not an error;
// it just means defaults plus environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv layers environment variables over file values.
func applyEnv(cfg *Config) {
	if v := os.Getenv("BONDCHAT_AGENT_URL"); v != "" {
		cfg.Agent.BaseURL = v
	}
	if v := os.Getenv("BONDCHAT_API_KEY"); v != "" {
		cfg.Agent.APIKey = v
	}
	if v := os.Getenv("BONDCHAT_AGENT_ID"); v != "" {
		cfg.Agent.DefaultAgent = v
	}
}

// Global returns the process-wide configuration, loading it on first
// use.
func Global() *Config {
	globalMu.RLock()
	if globalCfg != nil {
		defer globalMu.RUnlock()
		return globalCfg
	}
	globalMu.RUnlock()

	cfg, err := Load(Path())
	if err != nil {
		cfg = Default()
		applyEnv(cfg)
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalCfg == nil {
		globalCfg = cfg
	}
	return globalCfg
}

// SetGlobal replaces the process-wide configuration (used by the
// file watcher on reload, and by tests).
func SetGlobal(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalCfg = cfg
}

// Save writes cfg to path as TOML, creating parent directories.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(cfg)
}
