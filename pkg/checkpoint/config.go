package checkpoint

import (
	"fmt"
	"os"
	"path/filepath"
)

// IndexBackend selects how the checkpoint index is persisted.
type IndexBackend string

const (
	// IndexBackendJSON keeps the index in index.json, scanned linearly.
	// The default; adequate for installations with a modest session count.
	IndexBackendJSON IndexBackend = "json"

	// IndexBackendSQLite stores the index in a SQLite database alongside
	// the checkpoint files, for installations where linear index.json
	// scans become a bottleneck.
	IndexBackendSQLite IndexBackend = "sqlite"
)

// Config configures the checkpoint store.
//
// Example YAML configuration:
//
//	checkpoint:
//	  base_dir: /home/user/.ccswarm/checkpoints
//	  index_backend: json
//	  watch: true
type Config struct {
	// BaseDir is the root directory for checkpoint storage.
	// Default: $HOME/.ccswarm/checkpoints
	BaseDir string `yaml:"base_dir,omitempty"`

	// IndexBackend selects the index implementation.
	// Default: "json"
	IndexBackend IndexBackend `yaml:"index_backend,omitempty"`

	// Watch enables fsnotify-based invalidation of the in-memory index
	// when another process writes into BaseDir.
	// Default: true
	Watch *bool `yaml:"watch,omitempty"`
}

// SetDefaults applies default values.
func (c *Config) SetDefaults() {
	if c.BaseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.BaseDir = filepath.Join(home, ".ccswarm", "checkpoints")
	}
	if c.IndexBackend == "" {
		c.IndexBackend = IndexBackendJSON
	}
	if c.Watch == nil {
		watch := true
		c.Watch = &watch
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.IndexBackend != "" && c.IndexBackend != IndexBackendJSON && c.IndexBackend != IndexBackendSQLite {
		return fmt.Errorf("invalid checkpoint index backend %q (valid: json, sqlite)", c.IndexBackend)
	}
	return nil
}

// ShouldWatch reports whether the store should watch BaseDir for
// externally-written checkpoints.
func (c *Config) ShouldWatch() bool {
	return c != nil && c.Watch != nil && *c.Watch
}
