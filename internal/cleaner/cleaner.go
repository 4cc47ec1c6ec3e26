// Package cleaner applies declarative normalization rules to record fields.
//
// Rules are defined once per project and referenced from field rules by name.
// Cleaning never fails: a value that cannot be normalized becomes null and the
// consequence of that null is left to the validator.
package cleaner

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/leapstack-labs/silverline/pkg/core"
)

// RuleType selects the normalization a rule performs.
type RuleType string

// Rule types.
const (
	RulePhone   RuleType = "phone"
	RuleBoolean RuleType = "boolean"
	RuleCase    RuleType = "case"
	RuleDate    RuleType = "date"
	RuleString  RuleType = "string"
)

// Rule is a named cleaning rule.
type Rule struct {
	Name string
	Type RuleType

	// phone
	RemoveChars string

	// boolean
	TrueValues  []string
	FalseValues []string

	// case: lower, upper or title
	Case string

	// date
	OutputFormat string

	// string
	Operations  []string
	NullValues  []string
	EmptyAsNull bool
}

// Config holds cleaner construction options.
type Config struct {
	Rules []Rule
	// ReferenceTime anchors two-digit year interpretation. Zero means 2000-01-01.
	ReferenceTime time.Time
}

// Cleaner applies named rules. It holds no per-run state and is safe for
// concurrent use.
type Cleaner struct {
	rules     map[string]*compiledRule
	pivotYear int
}

// New compiles the rule set. Unknown rule types and options are errors.
func New(cfg Config) (*Cleaner, error) {
	ref := cfg.ReferenceTime
	if ref.IsZero() {
		ref = time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	c := &Cleaner{
		rules:     make(map[string]*compiledRule, len(cfg.Rules)),
		pivotYear: ref.UTC().Year() + TwoDigitYearPivot,
	}

	var errs []error
	for i := range cfg.Rules {
		rule := cfg.Rules[i]
		if rule.Name == "" {
			errs = append(errs, fmt.Errorf("cleaner at position %d has no name", i))
			continue
		}
		if _, exists := c.rules[rule.Name]; exists {
			errs = append(errs, fmt.Errorf("cleaner %q declared more than once", rule.Name))
			continue
		}
		compiled, err := compile(rule)
		if err != nil {
			errs = append(errs, fmt.Errorf("cleaner %q: %w", rule.Name, err))
			continue
		}
		c.rules[rule.Name] = compiled
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return c, nil
}

// Has reports whether a rule name is defined.
func (c *Cleaner) Has(name string) bool {
	_, ok := c.rules[name]
	return ok
}

// Names returns the defined rule names, sorted.
func (c *Cleaner) Names() []string {
	names := make([]string, 0, len(c.rules))
	for name := range c.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Check verifies that every clean rule referenced by the definitions exists.
func (c *Cleaner) Check(defs []*core.SourceDefinition) error {
	var errs []error
	for _, def := range defs {
		for _, f := range def.Rules.Fields() {
			if f.Clean != "" && !c.Has(f.Clean) {
				errs = append(errs, fmt.Errorf("source %s field %s: unknown cleaner %q", def.Name, f.Name, f.Clean))
			}
		}
	}
	return errors.Join(errs...)
}

// CleanRecord returns a cleaned copy of rec and the names of fields whose
// value changed. Fields without a clean rule, or absent from the record, are
// left untouched. rec itself is never modified.
func (c *Cleaner) CleanRecord(def *core.SourceDefinition, rec *core.Record) (*core.Record, []string) {
	out := rec.Clone()
	var changed []string

	for _, f := range def.Rules.Fields() {
		if f.Clean == "" {
			continue
		}
		rule, ok := c.rules[f.Clean]
		if !ok {
			continue
		}
		before, present := out.Get(f.Name)
		if !present || before == nil {
			continue
		}

		after := rule.apply(before, c.pivotYear)
		out.Set(f.Name, after)
		if valueChanged(before, after) {
			changed = append(changed, f.Name)
		}
	}

	return out, changed
}

// Clean cleans every record of a source in order and counts, per field, how
// many values were changed (including values turned to null).
func (c *Cleaner) Clean(def *core.SourceDefinition, records []*core.Record) ([]*core.Record, map[string]int) {
	cleaned := make([]*core.Record, len(records))
	counts := make(map[string]int)

	for i, rec := range records {
		out, changed := c.CleanRecord(def, rec)
		cleaned[i] = out
		for _, field := range changed {
			counts[field]++
		}
	}

	return cleaned, counts
}

func valueChanged(before, after any) bool {
	b, bok := core.FormatValue(before)
	a, aok := core.FormatValue(after)
	return bok != aok || b != a
}

// compile validates a rule and prepares its lookup tables.
func compile(rule Rule) (*compiledRule, error) {
	cr := &compiledRule{Rule: rule}

	switch rule.Type {
	case RulePhone:
		cr.removeChars = rule.RemoveChars
		if cr.removeChars == "" {
			cr.removeChars = DefaultPhoneRemoveChars
		}

	case RuleBoolean:
		trueValues, falseValues := rule.TrueValues, rule.FalseValues
		if len(trueValues) == 0 {
			trueValues = DefaultTrueValues
		}
		if len(falseValues) == 0 {
			falseValues = DefaultFalseValues
		}
		cr.tokens = make(map[string]bool, len(trueValues)+len(falseValues))
		for _, v := range trueValues {
			cr.tokens[strings.ToLower(strings.TrimSpace(v))] = true
		}
		for _, v := range falseValues {
			key := strings.ToLower(strings.TrimSpace(v))
			if _, dup := cr.tokens[key]; dup {
				return nil, fmt.Errorf("token %q is both true and false", v)
			}
			cr.tokens[key] = false
		}

	case RuleCase:
		switch strings.ToLower(rule.Case) {
		case "", "lower":
			cr.Case = "lower"
		case "upper", "title":
			cr.Case = strings.ToLower(rule.Case)
		default:
			return nil, fmt.Errorf("unknown case %q (want lower, upper or title)", rule.Case)
		}

	case RuleDate:
		if cr.OutputFormat == "" {
			cr.OutputFormat = DefaultDateOutputFormat
		}

	case RuleString:
		for _, op := range rule.Operations {
			if !knownStringOps[op] {
				return nil, fmt.Errorf("unknown string operation %q", op)
			}
		}
		cr.nullValues = make(map[string]struct{}, len(rule.NullValues))
		for _, v := range rule.NullValues {
			cr.nullValues[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
		}

	default:
		return nil, fmt.Errorf("unknown rule type %q", rule.Type)
	}

	return cr, nil
}
