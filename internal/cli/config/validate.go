package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	intconfig "github.com/leapstack-labs/silverline/internal/config"
	"github.com/leapstack-labs/silverline/internal/silver"
)

// referenceLayouts are the accepted forms of reference_time.
var referenceLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// Validate checks the runtime settings. All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.ChunkSize < 0 {
		errs = append(errs, fmt.Errorf("chunk_size must not be negative, got %d", c.ChunkSize))
	}
	if c.MaxQuarantineRate < 0 || c.MaxQuarantineRate > 1 {
		errs = append(errs, fmt.Errorf("max_quarantine_rate must be between 0 and 1, got %v", c.MaxQuarantineRate))
	}
	if _, ok := silver.GetEncoder(silver.Format(strings.ToLower(c.SilverFormat))); !ok {
		errs = append(errs, fmt.Errorf("unknown silver_format %q (available: %s)", c.SilverFormat, strings.Join(silver.Formats(), ", ")))
	}
	if _, err := c.ParseReferenceTime(time.Now); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log_format %q (want text or json)", c.LogFormat))
	}
	switch strings.ToLower(c.OutputFormat) {
	case "", OutputAuto, OutputTable, OutputMarkdown, OutputJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown output_format %q (want auto, table, markdown or json)", c.OutputFormat))
	}
	if c.Warehouse != nil {
		if err := c.Warehouse.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("invalid warehouse configuration: %w", err))
		}
	}

	return errors.Join(errs...)
}

// ValidateDirectories checks if the input directory exists.
func (c *Config) ValidateDirectories() error {
	if _, err := os.Stat(c.InputDir); os.IsNotExist(err) {
		return fmt.Errorf("input directory does not exist: %s\nHint: Create the directory or use --input-dir to specify a different path", c.InputDir)
	}
	return nil
}

// ParseReferenceTime returns the configured reference time in UTC, or now()
// when none is configured. Callers capture it once per run.
func (c *Config) ParseReferenceTime(now func() time.Time) (time.Time, error) {
	s := strings.TrimSpace(c.ReferenceTime)
	if s == "" {
		return now().UTC(), nil
	}
	for _, layout := range referenceLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid reference_time %q (want RFC3339 or YYYY-MM-DD)", c.ReferenceTime)
}

// CheckConfigFileKeys reports keys of the loaded config file that neither the
// settings nor the definitions read.
func CheckConfigFileKeys() error {
	if configFileUsed == "" {
		return nil
	}
	data, err := os.ReadFile(configFileUsed)
	if err != nil {
		return err
	}
	return intconfig.CheckKeys(data, settingKeys()...)
}

func settingKeys() []string {
	t := reflect.TypeOf(Config{})
	keys := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if tag := t.Field(i).Tag.Get("koanf"); tag != "" && tag != "-" {
			keys = append(keys, tag)
		}
	}
	return keys
}
