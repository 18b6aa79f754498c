package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg != Default() {
		t.Fatalf("got %+v, want defaults", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "db_path = \"/var/lib/cnchaindb\"\nsync_mode = \"fastest\"\nblocks_per_sync = 500\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DBPath != "/var/lib/cnchaindb" {
		t.Errorf("db_path = %q", cfg.DBPath)
	}
	if cfg.SyncMode != "fastest" {
		t.Errorf("sync_mode = %q", cfg.SyncMode)
	}
	if cfg.BlocksPerSync != 500 {
		t.Errorf("blocks_per_sync = %d", cfg.BlocksPerSync)
	}
	// Untouched fields keep their defaults.
	if cfg.PrepThreads != 16 {
		t.Errorf("prep_threads = %d, want default 16", cfg.PrepThreads)
	}
}

func TestLoadRejectsBadSyncMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("sync_mode = \"turbo\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for unrecognized sync_mode")
	}
}

func TestLoadRejectsOutOfRangeBlocksPerSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("blocks_per_sync = 10000\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error for out-of-range blocks_per_sync")
	}
}
