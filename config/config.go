// Package config loads the storage engine's recognized options from a
// TOML file, following a load-defaults-then-overlay pattern.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml"
)

// WriteAck names the write_ack option. Load and Validate accept "sync" or
// "async"; the chaindb engine does not read it, and AddBlock always waits
// for its commit to return before reporting success.
type WriteAck string

const (
	WriteAckSync  WriteAck = "sync"
	WriteAckAsync WriteAck = "async"
)

// Config holds every option the storage engine recognizes, plus the
// supplemented MaxPopDepth safety valve.
type Config struct {
	DBPath         string   `toml:"db_path"`
	SyncMode       string   `toml:"sync_mode"`
	WriteAck       WriteAck `toml:"write_ack"`
	BlocksPerSync  int      `toml:"blocks_per_sync"`
	FastSync       bool     `toml:"fast_sync"`
	PrepThreads    uint32   `toml:"prep_threads"`
	AutoRemoveLogs bool     `toml:"auto_remove_logs"`

	// MaxPopDepth bounds the total number of blocks PopBlock may remove over
	// the lifetime of a BlockchainDB value, counted by Stats.BlocksPopped.
	// That counter is never reset (not by AddBlock, not by Close/Open), so
	// once the bound is reached every further pop is refused. 0 means
	// unlimited.
	MaxPopDepth uint64 `toml:"max_pop_depth"`
}

// Default returns the configuration the engine ships with: safe sync mode,
// synchronous acknowledgement, and conservative values for everything else.
func Default() Config {
	return Config{
		DBPath:         "./chaindata",
		SyncMode:       "safe",
		WriteAck:       WriteAckSync,
		BlocksPerSync:  1000,
		FastSync:       false,
		PrepThreads:    16,
		AutoRemoveLogs: false,
		MaxPopDepth:    0,
	}
}

// Load reads a TOML file at path and overlays it on Default(). A missing
// file is not an error — the caller gets the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the bounds placed on each recognized option.
func (c Config) Validate() error {
	switch c.SyncMode {
	case "safe", "fast", "fastest":
	default:
		return fmt.Errorf("config: sync_mode %q must be one of safe, fast, fastest", c.SyncMode)
	}
	switch c.WriteAck {
	case WriteAckSync, WriteAckAsync:
	default:
		return fmt.Errorf("config: write_ack %q must be sync or async", c.WriteAck)
	}
	if c.BlocksPerSync < 1 || c.BlocksPerSync > 5000 {
		return fmt.Errorf("config: blocks_per_sync %d must be in 1..=5000", c.BlocksPerSync)
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path must not be empty")
	}
	return nil
}
