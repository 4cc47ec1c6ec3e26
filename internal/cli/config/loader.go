package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/leapstack-labs/silverline/internal/config"
)

// loggerKey is used to store logger in context.
type loggerKey struct{}

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// EnvPrefix is the prefix of environment variables read into the config.
const EnvPrefix = "SILVERLINE_"

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *Config // Stores the loaded config for access by commands
)

// flagKeys maps flag names whose config key differs from the snake_case name.
var flagKeys = map[string]string{
	"state":      "state_path",
	"strict":     "strict_mode",
	"output_dir": "output.path",
}

// findProjectRootUpward searches upward from startDir for a silverline config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func findProjectRootUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if intconfig.FindConfigFile(dir) != "" {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// inferProjectRoot determines the project root.
// Priority:
//  1. Explicit --project-dir flag
//  2. Directory of an explicit --config file
//  3. Search upward from CWD for silverline.yaml
//  4. Current working directory
func inferProjectRoot(cfgFile string, flags *pflag.FlagSet) string {
	if flags != nil && flags.Lookup("project-dir") != nil && flags.Changed("project-dir") {
		if projectDir, _ := flags.GetString("project-dir"); projectDir != "" {
			if abs, err := filepath.Abs(projectDir); err == nil {
				return abs
			}
			return filepath.Clean(projectDir)
		}
	}

	if cfgFile != "" {
		if abs, err := filepath.Abs(cfgFile); err == nil {
			return filepath.Dir(abs)
		}
	}

	cwd, err := os.Getwd()
	if err == nil {
		if root := findProjectRootUpward(cwd); root != "" {
			return root
		}
	}
	if cwd == "" {
		cwd = "."
	}
	return cwd
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) || path == ":memory:" {
		return path
	}
	return filepath.Join(baseDir, path)
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k = koanf.New(".")

	projectRoot := inferProjectRoot(cfgFile, flags)

	// Paths given as flags are relative to the working directory, not the project root.
	flagPaths := make(map[string]string)
	if flags != nil {
		for _, name := range []string{"input-dir", "output-dir", "state"} {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if abs, err := filepath.Abs(f.Value.String()); err == nil {
					flagPaths[name] = abs
				}
			}
		}
	}

	// 1. Load defaults
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"input_dir":           DefaultInputDir,
		"state_path":          DefaultStateFile,
		"workers":             DefaultWorkers,
		"strict_mode":         false,
		"max_quarantine_rate": DefaultMaxQuarantineRate,
		"silver_format":       DefaultSilverFormat,
		"output.type":         "local",
		"output.path":         DefaultOutputDir,
		"log_level":           DefaultLogLevel,
		"log_format":          DefaultLogFormat,
		"output_format":       DefaultOutput,
		"verbose":             false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Find and load config file
	if cfgFile == "" {
		cfgFile = intconfig.FindConfigFile(projectRoot)
	}
	configFileUsed = cfgFile
	if configFileUsed != "" {
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Load environment variables (SILVERLINE_ prefix)
	// Transform: SILVERLINE_MAX_QUARANTINE_RATE -> max_quarantine_rate,
	// SILVERLINE_OUTPUT__PATH -> output.path
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Load flags (highest priority - overrides env vars and config file)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			// Only load flags that were explicitly set
			if !f.Changed {
				return "", nil
			}
			// Transform kebab-case to snake_case for config keys
			key := strings.ReplaceAll(f.Name, "-", "_")
			if mapped, ok := flagKeys[key]; ok {
				key = mapped
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	defs, err := intconfig.Unmarshal(k)
	if err != nil {
		return nil, err
	}
	cfg.Definitions = defs

	// 6. Resolve relative paths against the project root
	cfg.ProjectRoot = projectRoot
	cfg.InputDir = pick(flagPaths["input-dir"], resolvePathRelativeTo(cfg.InputDir, projectRoot))
	cfg.StatePath = pick(flagPaths["state"], resolvePathRelativeTo(cfg.StatePath, projectRoot))
	if strings.EqualFold(cfg.Output.Type, "local") || cfg.Output.Type == "" {
		cfg.Output.Path = pick(flagPaths["output-dir"], resolvePathRelativeTo(cfg.Output.Path, projectRoot))
	}

	expandOutputEnvVars(&cfg)
	if cfg.Warehouse != nil {
		intconfig.ApplyTargetDefaults(cfg.Warehouse)
		expandTargetEnvVars(cfg.Warehouse)
		if cfg.Warehouse.Type == "duckdb" {
			cfg.Warehouse.Database = resolvePathRelativeTo(cfg.Warehouse.Database, projectRoot)
		}
	}

	currentConfig = &cfg

	return &cfg, nil
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the currently loaded configuration.
// This is available after LoadConfig is called.
func GetCurrentConfig() *Config {
	return currentConfig
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
			return l
		}
	}
	// Return discard logger as safe fallback
	return slog.New(slog.DiscardHandler)
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		return match // Return original if not found
	})
}

// expandTargetEnvVars expands environment variables in sensitive warehouse fields.
func expandTargetEnvVars(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Password = expandEnvVars(t.Password)
	t.User = expandEnvVars(t.User)
	t.Host = expandEnvVars(t.Host)
	t.Database = expandEnvVars(t.Database)
}

// expandOutputEnvVars expands environment variables in object store credentials.
func expandOutputEnvVars(cfg *Config) {
	cfg.Output.Endpoint = expandEnvVars(cfg.Output.Endpoint)
	cfg.Output.AccessKey = expandEnvVars(cfg.Output.AccessKey)
	cfg.Output.SecretKey = expandEnvVars(cfg.Output.SecretKey)
}
