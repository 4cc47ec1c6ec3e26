package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/leapstack-labs/silverline/internal/cleaner"
	"github.com/leapstack-labs/silverline/internal/engine"
	"github.com/leapstack-labs/silverline/internal/loader"
	"github.com/leapstack-labs/silverline/pkg/core"
)

// Project is the compiled form of Definitions, ready for the engine.
type Project struct {
	// Sources are the source definitions in declaration order.
	Sources []*core.SourceDefinition
	// Inputs maps source names to their raw files.
	Inputs map[string]loader.SourceFile
	// CleanRules are the named cleaning rules.
	CleanRules []cleaner.Rule
	// Policies maps validation failures to actions.
	Policies *core.PolicyTable
	// Explosions derive datasets from validated sources.
	Explosions []engine.Explosion
}

// Build compiles the definitions. Every problem found is reported, joined.
// Rule names referenced by fields are checked later, when the engine is
// created with the compiled cleaners and validators.
func (d *Definitions) Build() (*Project, error) {
	var errs []error

	p := &Project{
		Inputs:   make(map[string]loader.SourceFile, len(d.Sources)),
		Policies: core.NewPolicyTable(),
	}

	names := make(map[string]bool, len(d.Sources)+len(d.Derived))

	for i := range d.Sources {
		src := &d.Sources[i]
		if src.Name == "" {
			errs = append(errs, fmt.Errorf("source at position %d has no name", i))
			continue
		}
		if names[src.Name] {
			errs = append(errs, fmt.Errorf("source %q declared more than once", src.Name))
			continue
		}
		names[src.Name] = true

		def, err := buildSource(src.Name, src.PrimaryKey, src.NullKeysCollide, src.Extra, src.Fields)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.Sources = append(p.Sources, def)

		if src.Input.Path != "" {
			in, err := buildInput(src.Input)
			if err != nil {
				errs = append(errs, fmt.Errorf("source %s: %w", src.Name, err))
				continue
			}
			p.Inputs[src.Name] = in
		}
	}

	for i := range d.Derived {
		der := &d.Derived[i]
		if der.Name == "" {
			errs = append(errs, fmt.Errorf("derived dataset at position %d has no name", i))
			continue
		}
		if names[der.Name] {
			errs = append(errs, fmt.Errorf("derived dataset %q clashes with another name", der.Name))
			continue
		}
		names[der.Name] = true
		if der.From == "" || der.Field == "" {
			errs = append(errs, fmt.Errorf("derived dataset %s: from and field are required", der.Name))
			continue
		}

		def, err := buildSource(der.Name, der.PrimaryKey, der.NullKeysCollide, der.Extra, der.Fields)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		p.Explosions = append(p.Explosions, engine.Explosion{
			Source:    der.From,
			Field:     der.Field,
			ParentKey: der.ParentKey,
			Target:    def,
		})
	}

	for i := range d.Cleaners {
		c := d.Cleaners[i]
		p.CleanRules = append(p.CleanRules, cleaner.Rule{
			Name:         c.Name,
			Type:         cleaner.RuleType(strings.ToLower(c.Type)),
			RemoveChars:  c.RemoveChars,
			TrueValues:   c.TrueValues,
			FalseValues:  c.FalseValues,
			Case:         c.Case,
			OutputFormat: c.OutputFormat,
			Operations:   c.Operations,
			NullValues:   c.NullValues,
			EmptyAsNull:  c.EmptyAsNull,
		})
	}

	for i, pol := range d.Policies {
		if err := addPolicy(p.Policies, pol, names); err != nil {
			errs = append(errs, fmt.Errorf("policy at position %d: %w", i, err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return p, nil
}

func buildSource(name, pk string, nullKeysCollide bool, extra string, fields []FieldConfig) (*core.SourceDefinition, error) {
	var errs []error

	mode, err := parseExtra(extra)
	if err != nil {
		errs = append(errs, err)
	}

	rules := make([]*core.FieldRule, 0, len(fields))
	var fks []core.ForeignKey
	seen := make(map[string]bool, len(fields))

	for i, f := range fields {
		if f.Name == "" {
			errs = append(errs, fmt.Errorf("field at position %d has no name", i))
			continue
		}
		if seen[f.Name] {
			errs = append(errs, fmt.Errorf("field %s declared more than once", f.Name))
			continue
		}
		seen[f.Name] = true

		rule, err := buildField(f)
		if err != nil {
			errs = append(errs, fmt.Errorf("field %s: %w", f.Name, err))
			continue
		}
		rules = append(rules, rule)
		if rule.References != "" {
			fks = append(fks, core.ForeignKey{Field: rule.Name, References: rule.References})
		}
	}

	if pk != "" && len(fields) > 0 && !seen[pk] {
		errs = append(errs, fmt.Errorf("primary key %s is not a declared field", pk))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}

	return &core.SourceDefinition{
		Name:            name,
		PrimaryKey:      pk,
		ForeignKeys:     fks,
		Rules:           core.NewRuleSet(rules),
		NullKeysCollide: nullKeysCollide,
		Extra:           mode,
	}, nil
}

func buildField(f FieldConfig) (*core.FieldRule, error) {
	typ, err := core.ParseFieldType(f.Type)
	if err != nil {
		return nil, err
	}

	rule := &core.FieldRule{
		Name:       f.Name,
		Type:       typ,
		Required:   f.Required,
		Identifier: f.Identifier,
		Min:        f.Min,
		Max:        f.Max,
		Clean:      f.Clean,
		Custom:     f.Custom,
		References: f.References,
	}

	if (f.Min != nil || f.Max != nil) && !typ.IsNumeric() {
		return nil, fmt.Errorf("bounds need a numeric type, got %s", typ)
	}
	if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
		return nil, fmt.Errorf("min %v is greater than max %v", *f.Min, *f.Max)
	}

	if f.Pattern != "" {
		re, err := CompilePattern(f.Pattern)
		if err != nil {
			return nil, err
		}
		rule.Pattern = re
	}

	return rule, nil
}

// CompilePattern compiles a field pattern so that it must match the whole value.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return re, nil
}

func parseExtra(s string) (core.ExtraFields, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(core.ExtraKeep):
		return core.ExtraKeep, nil
	case string(core.ExtraIgnore):
		return core.ExtraIgnore, nil
	default:
		return "", fmt.Errorf("unknown extra mode %q (want keep or ignore)", s)
	}
}

func buildInput(in InputConfig) (loader.SourceFile, error) {
	sf := loader.SourceFile{Path: in.Path, DataKey: in.DataKey}
	if in.Format == "" {
		return sf, nil
	}
	format := loader.Format(strings.ToLower(in.Format))
	if _, ok := loader.GetReader(format); !ok {
		return sf, fmt.Errorf("unsupported input format %q (available: %s)", in.Format, strings.Join(loader.Formats(), ", "))
	}
	sf.Format = format
	return sf, nil
}

func addPolicy(table *core.PolicyTable, pol PolicyConfig, names map[string]bool) error {
	if !names[pol.Source] {
		return fmt.Errorf("unknown source %q", pol.Source)
	}
	field := pol.Field
	if field == "" {
		field = core.AnyField
	}
	kind, err := core.ParseErrorKind(pol.Kind)
	if err != nil {
		return err
	}
	action, err := core.ParseAction(pol.Action)
	if err != nil {
		return err
	}
	return table.Set(core.PolicyKey{Source: pol.Source, Field: field, Kind: kind}, action)
}
