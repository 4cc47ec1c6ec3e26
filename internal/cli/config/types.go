// Package config provides configuration management for the silverline CLI.
//
// Runtime settings (paths, worker pool, thresholds, outputs, logging) are
// layered from defaults, silverline.yaml, SILVERLINE_* environment variables
// and command line flags. The project definitions (sources, cleaners,
// policies, derived datasets) are read from the same file and re-exported
// here from internal/config.
package config

import (
	"github.com/leapstack-labs/silverline/internal/artifact"
	intconfig "github.com/leapstack-labs/silverline/internal/config"
)

// TargetConfig is an alias for the shared warehouse configuration.
type TargetConfig = intconfig.TargetConfig

// Definitions is an alias for the shared project definitions.
type Definitions = intconfig.Definitions

// Config holds all CLI configuration options.
type Config struct {
	InputDir          string          `koanf:"input_dir"`
	StatePath         string          `koanf:"state_path"`
	Workers           int             `koanf:"workers"`
	ChunkSize         int             `koanf:"chunk_size"`
	ReferenceTime     string          `koanf:"reference_time"` // RFC3339 or YYYY-MM-DD; empty means now
	StrictMode        bool            `koanf:"strict_mode"`
	MaxQuarantineRate float64         `koanf:"max_quarantine_rate"`
	SilverFormat      string          `koanf:"silver_format"`
	Output            artifact.Config `koanf:"output"`
	Warehouse         *TargetConfig   `koanf:"warehouse"`
	LogLevel          string          `koanf:"log_level"`
	LogFormat         string          `koanf:"log_format"`
	OutputFormat      string          `koanf:"output_format"`
	Verbose           bool            `koanf:"verbose"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
	// Definitions are the declared sources, cleaners, policies and derived datasets.
	Definitions *Definitions `koanf:"-"`
}

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultInputDir          = intconfig.DefaultInputDir
	DefaultOutputDir         = intconfig.DefaultOutputDir
	DefaultStateFile         = intconfig.DefaultStateFile
	DefaultMaxQuarantineRate = intconfig.DefaultMaxQuarantineRate
	DefaultSilverFormat      = intconfig.DefaultSilverFormat
	DefaultWorkers           = 4
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultOutput            = "auto" // Auto-detect: TTY=table, non-TTY=markdown
)

// Output formats for command results.
const (
	OutputAuto     = "auto"
	OutputTable    = "table"
	OutputMarkdown = "markdown"
	OutputJSON     = "json"
)
