package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	// HuJSON: comments and trailing commas are allowed.
	content := `{
		// where the library lives
		"data_dir": "/srv/zotero",
		"process_names": ["zotero"],
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := Config{
		DataDir:      "/srv/zotero",
		DatabasePath: filepath.Join("/srv/zotero", "zotero.sqlite"),
		BackupDir:    "/srv/zotero",
		ProcessNames: []string{"zotero"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadExplicitFileMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("Expected error for missing explicit config file")
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for malformed config file")
	}
}

func TestDefaultsDeriveDatabasePath(t *testing.T) {
	cfg, err := Config{DataDir: "/data"}.withDefaults()
	if err != nil {
		t.Fatalf("withDefaults failed: %v", err)
	}

	if cfg.DatabasePath != filepath.Join("/data", "zotero.sqlite") {
		t.Errorf("Unexpected database path %q", cfg.DatabasePath)
	}
	if cfg.BackupDir != "/data" {
		t.Errorf("Unexpected backup dir %q", cfg.BackupDir)
	}
	if len(cfg.ProcessNames) == 0 {
		t.Error("Expected default process names")
	}
}
