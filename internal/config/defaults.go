package config

import (
	_ "embed"
	"strings"
)

// Default runtime values.
const (
	DefaultInputDir          = "data"
	DefaultOutputDir         = "outputs"
	DefaultStateFile         = ".silverline/state.db"
	DefaultMaxQuarantineRate = 0.2
	DefaultSilverFormat      = "csv"
)

//go:embed templates/silverline.yaml
var defaultProject []byte

// DefaultProjectYAML returns the project file written by `silverline init`.
// It declares the e-commerce domain: vendors, products, customers,
// transactions, invoices with their line items, reviews, support tickets and
// call transcripts.
func DefaultProjectYAML() []byte {
	out := make([]byte, len(defaultProject))
	copy(out, defaultProject)
	return out
}

// DefaultDefinitions parses the default project file.
func DefaultDefinitions() (*Definitions, error) {
	return Parse(defaultProject)
}

// ApplyTargetDefaults fills in defaults that depend on the warehouse type.
func ApplyTargetDefaults(t *TargetConfig) {
	if t == nil {
		return
	}
	t.Type = strings.ToLower(t.Type)
	switch t.Type {
	case "postgres":
		if t.Port == 0 {
			t.Port = 5432
		}
		if t.Schema == "" {
			t.Schema = "public"
		}
	case "duckdb":
		if t.Schema == "" {
			t.Schema = "main"
		}
	}
}
