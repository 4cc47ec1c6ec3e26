package core

import (
	"fmt"
	"regexp"
	"strings"
)

// FieldType is the declared type of a field.
type FieldType string

// Field type constants.
const (
	FieldString   FieldType = "string"
	FieldInteger  FieldType = "integer"
	FieldFloat    FieldType = "float"
	FieldBoolean  FieldType = "boolean"
	FieldDate     FieldType = "date"
	FieldDatetime FieldType = "datetime"
)

// ParseFieldType converts a config string into a FieldType.
// An empty string means FieldString.
func ParseFieldType(s string) (FieldType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "string", "str", "text":
		return FieldString, nil
	case "integer", "int":
		return FieldInteger, nil
	case "float", "number", "decimal", "numeric":
		return FieldFloat, nil
	case "boolean", "bool":
		return FieldBoolean, nil
	case "date":
		return FieldDate, nil
	case "datetime", "timestamp":
		return FieldDatetime, nil
	default:
		return "", fmt.Errorf("unknown field type %q", s)
	}
}

// IsNumeric reports whether bounds checks apply to the type.
func (t FieldType) IsNumeric() bool {
	return t == FieldInteger || t == FieldFloat
}

// FieldRule declares how one field of a source is cleaned and validated.
type FieldRule struct {
	// Name is the field name in the record
	Name string
	// Type is the declared value type
	Type FieldType
	// Required rejects null or missing values
	Required bool
	// Identifier treats empty strings as missing even when not required
	Identifier bool
	// Min is the inclusive lower bound for numeric fields (optional)
	Min *float64
	// Max is the inclusive upper bound for numeric fields (optional)
	Max *float64
	// Pattern must match the whole text value (optional)
	Pattern *regexp.Regexp
	// Clean names the cleaning rule applied before validation (optional)
	Clean string
	// Custom lists named custom rules, applied in order
	Custom []string
	// References names the source this field is a foreign key into (optional)
	References string
}

// ForeignKey declares that Field must match a confirmed primary key of References.
type ForeignKey struct {
	Field      string
	References string
}

// RuleSet is the field-level validation contract of a source.
// A source without rules carries the no-op rule set rather than an empty one.
type RuleSet struct {
	fields []*FieldRule
	byName map[string]*FieldRule
	noop   bool
}

// NewRuleSet builds a rule set from field rules in declaration order.
// An empty list yields the no-op rule set.
func NewRuleSet(fields []*FieldRule) RuleSet {
	if len(fields) == 0 {
		return NoopRuleSet()
	}
	rs := RuleSet{
		fields: fields,
		byName: make(map[string]*FieldRule, len(fields)),
	}
	for _, f := range fields {
		rs.byName[f.Name] = f
	}
	return rs
}

// NoopRuleSet returns a rule set that accepts every record unchanged.
func NoopRuleSet() RuleSet {
	return RuleSet{noop: true}
}

// IsNoop reports whether this is the no-op rule set.
func (r RuleSet) IsNoop() bool {
	return r.noop
}

// Fields returns the field rules in declaration order.
func (r RuleSet) Fields() []*FieldRule {
	return r.fields
}

// Field looks up a rule by field name.
func (r RuleSet) Field(name string) (*FieldRule, bool) {
	f, ok := r.byName[name]
	return f, ok
}

// ExtraFields controls what happens to fields not declared in the rule set.
type ExtraFields string

// ExtraFields values.
const (
	ExtraKeep   ExtraFields = "keep"
	ExtraIgnore ExtraFields = "ignore"
)

// SourceDefinition describes one logical record stream. Immutable once loaded.
type SourceDefinition struct {
	// Name is the unique source name (e.g. "vendors")
	Name string
	// PrimaryKey is the field identifying a record within the source
	PrimaryKey string
	// ForeignKeys lists references into other sources, in declaration order
	ForeignKeys []ForeignKey
	// Rules is the validation rule set (possibly the no-op set)
	Rules RuleSet
	// NullKeysCollide makes records with a null primary key duplicates of each other
	NullKeysCollide bool
	// Extra controls undeclared fields in Silver output
	Extra ExtraFields
}

// References returns the distinct source names this source depends on.
func (d *SourceDefinition) References() []string {
	seen := make(map[string]bool, len(d.ForeignKeys))
	var refs []string
	for _, fk := range d.ForeignKeys {
		if !seen[fk.References] {
			seen[fk.References] = true
			refs = append(refs, fk.References)
		}
	}
	return refs
}
