package config

import "github.com/spf13/pflag"

// RegisterFlags adds the global configuration flags. Only flags that are
// explicitly set override the config file and environment.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("project-dir", "", "Project directory (default: nearest directory with silverline.yaml)")
	fs.String("input-dir", "", "Directory holding the raw source files")
	fs.String("output-dir", "", "Directory receiving Silver, quarantine and report files")
	fs.String("state", "", "Path to the run history database")
	fs.Int("workers", DefaultWorkers, "Goroutines cleaning and validating one source")
	fs.Int("chunk-size", 0, "Records per worker task (0 uses the engine default)")
	fs.String("reference-time", "", "Reference time for date rules and _loaded_at (RFC3339 or YYYY-MM-DD, default now)")
	fs.Bool("strict", false, "Exit non-zero when a source exceeds max quarantine rate")
	fs.Float64("max-quarantine-rate", DefaultMaxQuarantineRate, "Quarantine rate above which a source breaches its threshold")
	fs.String("silver-format", "", "Silver file format (csv|jsonl|parquet)")
	fs.String("log-level", "", "Log level (debug|info|warn|error)")
	fs.String("log-format", "", "Log format (text|json)")
	fs.StringP("output-format", "o", "", "Result format (auto|table|markdown|json)")
	fs.BoolP("verbose", "v", false, "Verbose output")
}
