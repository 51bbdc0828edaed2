// Package config loads ZoteroBridge settings from an optional HuJSON
// config file and fills in per-OS defaults for everything else.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

var (
	errConfigRead    = errors.New("cannot read config file")
	errConfigInvalid = errors.New("invalid config file")
)

// Config holds all configuration options.
type Config struct {
	// DataDir is the Zotero data directory containing zotero.sqlite and
	// the storage/ subdirectory. Defaults to ~/Zotero.
	DataDir string `json:"data_dir,omitempty"`

	// DatabasePath overrides the database file location. When empty it is
	// derived as <DataDir>/zotero.sqlite.
	DatabasePath string `json:"database_path,omitempty"`

	// BackupDir receives timestamped copies of the database before the
	// first overwrite of a session. Defaults to DataDir.
	BackupDir string `json:"backup_dir,omitempty"`

	// ProcessNames are the owning application's process names checked by
	// the live-writer guard.
	ProcessNames []string `json:"process_names,omitempty"`

	// ReadOnly disables the save path entirely: no backups, no mutation.
	ReadOnly bool `json:"read_only,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ProcessNames: []string{"zotero", "zotero-bin", "Zotero"},
	}
}

// configFilePath returns $XDG_CONFIG_HOME/zoterobridge/config.json if set,
// otherwise ~/.config/zoterobridge/config.json. Empty when the home
// directory cannot be determined.
func configFilePath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "zoterobridge", "config.json")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "zoterobridge", "config.json")
}

// Load reads configuration with the following precedence (highest wins):
// defaults, user config file, explicit config file via path. A missing user
// config file is not an error; a missing explicit file is.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = configFilePath()
		if path == "" {
			return cfg.withDefaults()
		}
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg.withDefaults()
		}
		return Config{}, fmt.Errorf("%w: %w", errConfigRead, err)
	}

	std, err := hujson.Standardize(raw)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", errConfigInvalid, path, err)
	}
	if err := json.Unmarshal(std, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %s: %w", errConfigInvalid, path, err)
	}

	return cfg.withDefaults()
}

// withDefaults fills the derived fields that depend on other settings.
func (c Config) withDefaults() (Config, error) {
	if c.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("cannot determine home directory: %w", err)
		}
		c.DataDir = filepath.Join(home, "Zotero")
	}
	if c.DatabasePath == "" {
		c.DatabasePath = filepath.Join(c.DataDir, "zotero.sqlite")
	}
	if c.BackupDir == "" {
		c.BackupDir = c.DataDir
	}
	if len(c.ProcessNames) == 0 {
		c.ProcessNames = DefaultConfig().ProcessNames
	}
	return c, nil
}
