// Package config provides the project definition types for silverline: the
// sources, cleaning rules, failure policies and derived datasets declared in
// silverline.yaml.
//
// This package is decoupled from CLI concerns. The CLI layers runtime settings
// (paths, workers, thresholds) on top of the same file.
package config

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/silverline/pkg/adapter"
	"github.com/leapstack-labs/silverline/pkg/core"
)

// Definitions is the declarative part of a project. Lists keep the order in
// which they appear in the file; source order is the processing tie-break.
type Definitions struct {
	Sources  []SourceConfig  `koanf:"sources"`
	Cleaners []CleanerConfig `koanf:"cleaners"`
	Policies []PolicyConfig  `koanf:"policies"`
	Derived  []DerivedConfig `koanf:"derived"`
}

// InputConfig locates the raw file of a source.
type InputConfig struct {
	Path    string `koanf:"path"`
	Format  string `koanf:"format"`   // csv, json, jsonl, parquet; empty detects from extension
	DataKey string `koanf:"data_key"` // array key inside a JSON document
}

// SourceConfig declares one source.
type SourceConfig struct {
	Name            string        `koanf:"name"`
	Input           InputConfig   `koanf:"input"`
	PrimaryKey      string        `koanf:"primary_key"`
	NullKeysCollide bool          `koanf:"null_keys_collide"`
	Extra           string        `koanf:"extra"` // keep (default) or ignore
	Fields          []FieldConfig `koanf:"fields"`
}

// FieldConfig declares the rules of one field.
type FieldConfig struct {
	Name       string   `koanf:"name"`
	Type       string   `koanf:"type"`
	Required   bool     `koanf:"required"`
	Identifier bool     `koanf:"identifier"`
	Min        *float64 `koanf:"min"`
	Max        *float64 `koanf:"max"`
	Pattern    string   `koanf:"pattern"`
	Clean      string   `koanf:"clean"`
	Custom     []string `koanf:"custom"`
	References string   `koanf:"references"`
}

// CleanerConfig declares a named cleaning rule.
type CleanerConfig struct {
	Name string `koanf:"name"`
	Type string `koanf:"type"` // phone, boolean, case, date, string

	RemoveChars  string   `koanf:"remove_chars"`
	TrueValues   []string `koanf:"true_values"`
	FalseValues  []string `koanf:"false_values"`
	Case         string   `koanf:"case"`
	OutputFormat string   `koanf:"output_format"`
	Operations   []string `koanf:"operations"`
	NullValues   []string `koanf:"null_values"`
	EmptyAsNull  bool     `koanf:"empty_as_null"`
}

// PolicyConfig maps a validation failure to an action.
// Field "*" applies to every field of the source.
type PolicyConfig struct {
	Source string `koanf:"source"`
	Field  string `koanf:"field"`
	Kind   string `koanf:"kind"`
	Action string `koanf:"action"`
}

// DerivedConfig declares a dataset exploded from a JSON array field of a
// validated source.
type DerivedConfig struct {
	Name            string        `koanf:"name"`
	From            string        `koanf:"from"`
	Field           string        `koanf:"field"`
	ParentKey       string        `koanf:"parent_key"`
	PrimaryKey      string        `koanf:"primary_key"`
	NullKeysCollide bool          `koanf:"null_keys_collide"`
	Extra           string        `koanf:"extra"`
	Fields          []FieldConfig `koanf:"fields"`
}

// TargetConfig holds the warehouse that receives Silver tables.
type TargetConfig struct {
	Type string `koanf:"type"` // duckdb, postgres

	// File-based databases (DuckDB)
	Database string `koanf:"database"` // file path or database name

	// Network databases
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`

	Schema string `koanf:"schema"`

	// Additional driver-specific options
	Options map[string]string `koanf:"options"`

	// Params holds adapter-specific settings (e.g. DuckDB extensions and settings)
	Params map[string]any `koanf:"params"`
}

// Validate checks the target against the adapter registry.
func (t *TargetConfig) Validate() error {
	if t.Type == "" {
		return fmt.Errorf("warehouse type is required")
	}
	if !adapter.IsRegistered(strings.ToLower(t.Type)) {
		return &adapter.UnknownAdapterError{
			Type:      t.Type,
			Available: adapter.ListAdapters(),
		}
	}
	return nil
}

// AdapterConfig converts the target into the adapter connection config.
func (t *TargetConfig) AdapterConfig() *core.AdapterConfig {
	cfg := &core.AdapterConfig{
		Type:     strings.ToLower(t.Type),
		Host:     t.Host,
		Port:     t.Port,
		Database: t.Database,
		Username: t.User,
		Password: t.Password,
		Schema:   t.Schema,
		Options:  t.Options,
		Params:   t.Params,
	}
	if cfg.Type == "duckdb" {
		cfg.Path = t.Database
	}
	return cfg
}
