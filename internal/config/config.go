// Package config loads the YAML configuration describing default LSH
// parameters and ambient run options, overridden by CLI flags at the
// `doubri` command layer. Uses a DefaultConfig() + flag-override pattern
// on top of gopkg.in/yaml.v3.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level doubri configuration file shape.
type Config struct {
	LSH       LSHConfig       `yaml:"lsh"`
	Producer  ProducerConfig  `yaml:"producer"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LSHConfig parameterizes the banded bucket index shared by dedup and
// merge: bands = End-Begin, rows = NumHashValues, per spec §3.
type LSHConfig struct {
	NumHashValues int `yaml:"rows"`
	Begin         int `yaml:"begin"`
	End           int `yaml:"end"`
	NumSplits     int `yaml:"num_splits"`
	// SectorSize is parsed but not read by any command: minhashfile always
	// uses its fixed SectorSize of 512 and rejects files with another value.
	SectorSize int `yaml:"sector_size,omitempty"`
}

// ProducerConfig holds the `minhash` subcommand's extraction parameters.
type ProducerConfig struct {
	NGram int    `yaml:"ngram"`
	Field string `yaml:"text_field"`
}

// DedupConfig holds options shared by the `dedup` and `merge` subcommands.
type DedupConfig struct {
	Reverse bool `yaml:"reverse"`
	// TrimIndices mirrors the original's TRIM_INDEX compile guard and is
	// disabled by default, so dedup writes only trimmed (".idx.") index
	// files; when enabled it also writes untrimmed (".index.") copies, and
	// the two layouts coexist, per spec §9 Open Questions.
	TrimIndices bool `yaml:"trim_indices"`
	// Workers caps the bounded worker pool dedup uses for parallel file
	// reads and per-split emit sweeps; 0 means unbounded (one goroutine
	// per item). merge does not read it: it processes splits one after
	// another.
	Workers int `yaml:"workers"`
}

// DashboardConfig controls the optional TUI and HTTP status surfaces.
type DashboardConfig struct {
	Enabled             bool    `yaml:"enabled"`
	StatusServerEnabled bool    `yaml:"status_server_enabled"`
	StatusServerAddr    string  `yaml:"status_server_addr"`
	BroadcastsPerSecond float64 `yaml:"broadcasts_per_second"`
}

// LoggingConfig controls the dual console+file leveled logger.
type LoggingConfig struct {
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
	// JSON is not read: the console sink always writes text and the file
	// sink always writes JSON.
	JSON bool `yaml:"json"`
}

// DefaultConfig returns doubri's built-in defaults, matching spec.md §3's
// default LSH parameters (20 rows, bands [0,40)) and §6's CLI defaults.
func DefaultConfig() *Config {
	return &Config{
		LSH: LSHConfig{
			NumHashValues: 20,
			Begin:         0,
			End:           40,
			NumSplits:     256,
		},
		Producer: ProducerConfig{
			NGram: 5,
			Field: "text",
		},
		Dedup: DedupConfig{
			Reverse:     false,
			TrimIndices: false,
			Workers:     0,
		},
		Dashboard: DashboardConfig{
			Enabled:             false,
			StatusServerEnabled: false,
			StatusServerAddr:    ":8088",
			BroadcastsPerSecond: 4,
		},
		Logging: LoggingConfig{
			ConsoleLevel: "info",
			FileLevel:    "debug",
			JSON:         true,
		},
	}
}

// Load reads and parses a YAML config file, starting from DefaultConfig and
// overlaying whatever fields path sets.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
