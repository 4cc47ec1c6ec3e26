// Package validator applies field rules to cleaned records and decides, per
// failure, whether the record is rejected or the field is nulled.
//
// Every field is checked in declaration order. Within a field the rules run
// as required, type, bounds, pattern, then custom rules; the first failure
// ends the checks for that field. The action for a failure comes from a
// core.PolicyTable, so one validator serves every source.
package validator

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/silverline/pkg/core"
)

// Config holds validator construction options.
type Config struct {
	// Policies maps failures to actions. Nil rejects everything.
	Policies *core.PolicyTable
	// ReferenceTime is "now" for date-relative rules. Required.
	ReferenceTime time.Time
	// Custom adds or overrides named custom rules.
	Custom map[string]CustomRule
	Logger *slog.Logger
}

// Validator checks records against a source's rule set.
// It is safe for concurrent use.
type Validator struct {
	policies *core.PolicyTable
	refTime  time.Time
	custom   map[string]CustomRule
	logger   *slog.Logger
}

// Outcome is the result of validating one record.
type Outcome struct {
	// Record is a copy carrying typed values; nulled fields are nil.
	Record *core.Record
	// Errors are the failures whose action is reject, in field order.
	Errors []core.ValidationError
	// Rejected is true when at least one failure was rejected.
	Rejected bool
	// Nullified are the failures whose action was null_and_keep.
	Nullified []core.ValidationError
}

// New creates a validator.
func New(cfg Config) (*Validator, error) {
	if cfg.ReferenceTime.IsZero() {
		return nil, errors.New("validator: reference time is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	custom := make(map[string]CustomRule, len(builtinRules)+len(cfg.Custom))
	for name, rule := range builtinRules {
		custom[name] = rule
	}
	for name, rule := range cfg.Custom {
		custom[name] = rule
	}

	return &Validator{
		policies: cfg.Policies,
		refTime:  cfg.ReferenceTime.UTC(),
		custom:   custom,
		logger:   cfg.Logger,
	}, nil
}

// ruleNames returns the known custom rule names, sorted.
func (v *Validator) ruleNames() []string {
	names := make([]string, 0, len(v.custom))
	for name := range v.custom {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasRule reports whether a custom rule name is known.
func (v *Validator) HasRule(name string) bool {
	_, ok := v.custom[name]
	return ok
}

// Check verifies that every custom rule referenced by the definitions exists.
func (v *Validator) Check(defs []*core.SourceDefinition) error {
	var errs []error
	for _, def := range defs {
		for _, f := range def.Rules.Fields() {
			for _, name := range f.Custom {
				if !v.HasRule(name) {
					errs = append(errs, fmt.Errorf("source %s field %s: unknown custom rule %q (known: %s)",
						def.Name, f.Name, name, strings.Join(v.ruleNames(), ", ")))
				}
			}
		}
	}
	return errors.Join(errs...)
}

// Validate checks one record. The input record is not modified.
func (v *Validator) Validate(def *core.SourceDefinition, rec *core.Record) Outcome {
	out := Outcome{Record: rec.Clone()}
	if def.Rules.IsNoop() {
		return out
	}

	for _, field := range def.Rules.Fields() {
		failure, ok := v.checkField(def, field, out.Record)
		if ok {
			continue
		}

		switch v.policies.Action(def.Name, field.Name, failure.Kind) {
		case core.ActionNullAndKeep:
			if out.Record.Has(field.Name) {
				out.Record.Set(field.Name, nil)
			}
			out.Nullified = append(out.Nullified, failure)
		default:
			out.Errors = append(out.Errors, failure)
			out.Rejected = true
		}
	}

	return out
}

// checkField runs the rules of one field and writes the coerced value back
// into rec. It returns the first failure, if any.
func (v *Validator) checkField(def *core.SourceDefinition, field *core.FieldRule, rec *core.Record) (core.ValidationError, bool) {
	value := rec.Value(field.Name)
	identifier := field.Identifier || field.Name == def.PrimaryKey

	// required
	if core.IsBlank(value) {
		if field.Required || identifier {
			return failure(field, core.ErrRequiredMissing, "value is required", value), false
		}
		// optional and empty: blank text survives only in string fields
		if value != nil && field.Type != core.FieldString {
			rec.Set(field.Name, nil)
		}
		return core.ValidationError{}, true
	}

	// type
	typed, err := coerce(value, field.Type)
	if err != nil {
		return failure(field, core.ErrTypeError, err.Error(), value), false
	}
	rec.Set(field.Name, typed)

	// bounds
	if field.Type.IsNumeric() {
		n := toFloat(typed)
		if field.Min != nil && n < *field.Min {
			return failure(field, core.ErrOutOfRange,
				fmt.Sprintf("value %s is below minimum %s", formatNumber(n), formatNumber(*field.Min)), typed), false
		}
		if field.Max != nil && n > *field.Max {
			return failure(field, core.ErrOutOfRange,
				fmt.Sprintf("value %s is above maximum %s", formatNumber(n), formatNumber(*field.Max)), typed), false
		}
	}

	// pattern
	if field.Pattern != nil {
		text, _ := core.FormatValue(typed)
		if !field.Pattern.MatchString(text) {
			return failure(field, core.ErrPatternMismatch,
				fmt.Sprintf("value %q does not match pattern %s", text, field.Pattern.String()), typed), false
		}
	}

	// custom
	for _, name := range field.Custom {
		rule, ok := v.custom[name]
		if !ok {
			v.logger.Warn("unknown custom rule", "source", def.Name, "field", field.Name, "rule", name)
			continue
		}
		if msg := rule(typed, field.Type, v.refTime); msg != "" {
			return failure(field, core.ErrCustomValue, fmt.Sprintf("%s: %s", name, msg), typed), false
		}
	}

	return core.ValidationError{}, true
}

func failure(field *core.FieldRule, kind core.ErrorKind, msg string, value any) core.ValidationError {
	return core.ValidationError{
		Field:   field.Name,
		Kind:    kind,
		Message: msg,
		Value:   value,
	}
}
