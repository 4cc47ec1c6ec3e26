package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	// Import adapter packages to ensure adapters are registered via init()
	_ "github.com/leapstack-labs/silverline/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/silverline/pkg/adapters/postgres"
)

const projectYAML = `
input_dir: raw
workers: 6
max_quarantine_rate: 0.1
silver_format: jsonl
output:
  path: out
warehouse:
  type: duckdb
  database: silver.duckdb
sources:
  - name: customers
    input: { path: customers.csv }
    primary_key: customer_id
    fields:
      - { name: customer_id, required: true }
`

func writeProject(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "silverline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	RegisterFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestLoadConfig_File(t *testing.T) {
	ResetConfig()
	path := writeProject(t, projectYAML)
	dir := filepath.Dir(path)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, path, GetConfigFileUsed())
	assert.Same(t, cfg, GetCurrentConfig())

	assert.Equal(t, filepath.Join(dir, "raw"), cfg.InputDir)
	assert.Equal(t, filepath.Join(dir, "out"), cfg.Output.Path)
	assert.Equal(t, "local", cfg.Output.Type)
	assert.Equal(t, filepath.Join(dir, DefaultStateFile), cfg.StatePath)
	assert.Equal(t, 6, cfg.Workers)
	assert.InDelta(t, 0.1, cfg.MaxQuarantineRate, 1e-9)
	assert.Equal(t, "jsonl", cfg.SilverFormat)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultOutput, cfg.OutputFormat)

	require.NotNil(t, cfg.Warehouse)
	assert.Equal(t, "duckdb", cfg.Warehouse.Type)
	assert.Equal(t, "main", cfg.Warehouse.Schema)
	assert.Equal(t, filepath.Join(dir, "silver.duckdb"), cfg.Warehouse.Database)

	require.NotNil(t, cfg.Definitions)
	require.Len(t, cfg.Definitions.Sources, 1)
	assert.Equal(t, "customers", cfg.Definitions.Sources[0].Name)
	assert.Equal(t, "customers.csv", cfg.Definitions.Sources[0].Input.Path)

	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_Defaults(t *testing.T) {
	ResetConfig()
	path := writeProject(t, "sources: []\n")

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, DefaultInputDir), cfg.InputDir)
	assert.Equal(t, filepath.Join(dir, DefaultOutputDir), cfg.Output.Path)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.InDelta(t, DefaultMaxQuarantineRate, cfg.MaxQuarantineRate, 1e-9)
	assert.Equal(t, DefaultSilverFormat, cfg.SilverFormat)
	assert.False(t, cfg.StrictMode)
	assert.Nil(t, cfg.Warehouse)
	assert.Empty(t, cfg.Definitions.Sources)
}

func TestLoadConfig_Precedence(t *testing.T) {
	ResetConfig()
	path := writeProject(t, projectYAML)

	t.Setenv("SILVERLINE_WORKERS", "9")
	t.Setenv("SILVERLINE_STRICT_MODE", "true")
	t.Setenv("SILVERLINE_OUTPUT__PREFIX", "nightly")
	t.Setenv("SILVERLINE_SILVER_FORMAT", "parquet")

	flags := newFlags(t, "--workers=2", "--max-quarantine-rate=0.5", "--state=custom.db")

	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	// flags beat env, env beats the file
	assert.Equal(t, 2, cfg.Workers)
	assert.InDelta(t, 0.5, cfg.MaxQuarantineRate, 1e-9)
	assert.True(t, cfg.StrictMode)
	assert.Equal(t, "nightly", cfg.Output.Prefix)
	assert.Equal(t, "parquet", cfg.SilverFormat)

	// path flags are relative to the working directory
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(wd, "custom.db"), cfg.StatePath)
}

func TestLoadConfig_FlagKeys(t *testing.T) {
	ResetConfig()
	path := writeProject(t, projectYAML)

	flags := newFlags(t, "--strict", "--output-dir=results", "--reference-time=2024-03-01", "-o", "json")
	cfg, err := LoadConfig(path, flags)
	require.NoError(t, err)

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.True(t, cfg.StrictMode)
	assert.Equal(t, filepath.Join(wd, "results"), cfg.Output.Path)
	assert.Equal(t, "2024-03-01", cfg.ReferenceTime)
	assert.Equal(t, OutputJSON, cfg.OutputFormat)
}

func TestLoadConfig_ProjectDirFlag(t *testing.T) {
	ResetConfig()
	path := writeProject(t, projectYAML)
	dir := filepath.Dir(path)

	cfg, err := LoadConfig("", newFlags(t, "--project-dir="+dir))
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.ProjectRoot)
	assert.Equal(t, path, GetConfigFileUsed())
	assert.Equal(t, 6, cfg.Workers)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	ResetConfig()
	path := writeProject(t, "workers: [\n")

	_, err := LoadConfig(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Workers:           4,
			MaxQuarantineRate: 0.2,
			SilverFormat:      "csv",
			LogLevel:          "info",
			LogFormat:         "text",
			OutputFormat:      OutputAuto,
		}
	}

	tests := []struct {
		name      string
		mutate    func(c *Config)
		errSubstr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "negative workers", mutate: func(c *Config) { c.Workers = -1 }, errSubstr: "workers must not be negative"},
		{name: "negative chunk size", mutate: func(c *Config) { c.ChunkSize = -5 }, errSubstr: "chunk_size must not be negative"},
		{name: "rate above one", mutate: func(c *Config) { c.MaxQuarantineRate = 1.5 }, errSubstr: "max_quarantine_rate must be between 0 and 1"},
		{name: "unknown silver format", mutate: func(c *Config) { c.SilverFormat = "avro" }, errSubstr: `unknown silver_format "avro"`},
		{name: "bad reference time", mutate: func(c *Config) { c.ReferenceTime = "yesterday" }, errSubstr: `invalid reference_time "yesterday"`},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, errSubstr: `unknown log_level "loud"`},
		{name: "bad log format", mutate: func(c *Config) { c.LogFormat = "xml" }, errSubstr: `unknown log_format "xml"`},
		{name: "bad output format", mutate: func(c *Config) { c.OutputFormat = "html" }, errSubstr: `unknown output_format "html"`},
		{name: "valid warehouse", mutate: func(c *Config) { c.Warehouse = &TargetConfig{Type: "postgres"} }},
		{name: "unknown warehouse", mutate: func(c *Config) { c.Warehouse = &TargetConfig{Type: "oracle"} }, errSubstr: "invalid warehouse configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errSubstr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := &Config{Workers: -1, MaxQuarantineRate: 2, SilverFormat: "avro"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workers")
	assert.Contains(t, err.Error(), "max_quarantine_rate")
	assert.Contains(t, err.Error(), "silver_format")
}

func TestValidateDirectories(t *testing.T) {
	cfg := &Config{InputDir: t.TempDir()}
	assert.NoError(t, cfg.ValidateDirectories())

	cfg.InputDir = filepath.Join(cfg.InputDir, "missing")
	err := cfg.ValidateDirectories()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input directory does not exist")
}

func TestParseReferenceTime(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.FixedZone("X", 3600))
	now := func() time.Time { return fixed }

	tests := []struct {
		input string
		want  time.Time
	}{
		{"", fixed.UTC()},
		{"2024-03-01", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"2024-03-01T10:30:00", time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"2024-03-01T10:30:00+02:00", time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)},
		{" 2024-03-01T10:30:00.5Z ", time.Date(2024, 3, 1, 10, 30, 0, 500000000, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cfg := &Config{ReferenceTime: tt.input}
			got, err := cfg.ParseReferenceTime(now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, &Config{LogLevel: "warn", LogFormat: "json"})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "source", "customers")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"source":"customers"`)

	buf.Reset()
	logger, err = NewLogger(&buf, &Config{LogLevel: "error", Verbose: true})
	require.NoError(t, err)
	logger.Debug("debug line")
	assert.Contains(t, buf.String(), "debug line")

	_, err = NewLogger(&buf, &Config{LogFormat: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetLogger(t *testing.T) {
	assert.NotNil(t, GetLogger(t.Context()))
	assert.Equal(t, loggerKey{}, LoggerKey())
}

// TestExpandEnvVars tests the expandEnvVars function.
func TestExpandEnvVars(t *testing.T) {
	t.Setenv("TEST_VAR_ONE", "value_one")
	t.Setenv("TEST_VAR_TWO", "value_two")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "single variable", input: "${TEST_VAR_ONE}", expected: "value_one"},
		{name: "multiple variables", input: "${TEST_VAR_ONE}/${TEST_VAR_TWO}", expected: "value_one/value_two"},
		{name: "unset variable stays as-is", input: "${UNSET_VARIABLE}", expected: "${UNSET_VARIABLE}"},
		{name: "no variables", input: "plain string", expected: "plain string"},
		{name: "mixed set and unset", input: "${TEST_VAR_ONE}:${UNSET_VAR}", expected: "value_one:${UNSET_VAR}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, expandEnvVars(tt.input))
		})
	}
}

func TestLoadConfig_ExpandsSecrets(t *testing.T) {
	ResetConfig()
	t.Setenv("PG_PASSWORD", "s3cret")
	path := writeProject(t, `
warehouse:
  type: postgres
  host: db
  database: silver
  password: ${PG_PASSWORD}
`)

	cfg, err := LoadConfig(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", cfg.Warehouse.Password)
	assert.Equal(t, 5432, cfg.Warehouse.Port)
	assert.Equal(t, "silver", cfg.Warehouse.Database)
}

func TestCheckConfigFileKeys(t *testing.T) {
	ResetConfig()
	assert.NoError(t, CheckConfigFileKeys())

	_, err := LoadConfig(writeProject(t, projectYAML), nil)
	require.NoError(t, err)
	assert.NoError(t, CheckConfigFileKeys())

	ResetConfig()
	_, err = LoadConfig(writeProject(t, "log_levl: debug\nworkers: 2\n"), nil)
	require.NoError(t, err)
	err = CheckConfigFileKeys()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "log_levl")
}
