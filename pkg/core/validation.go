package core

import (
	"fmt"
	"strings"
)

// ErrorKind classifies a validation failure.
type ErrorKind string

// Error kinds, in the order the validator checks them.
const (
	ErrRequiredMissing      ErrorKind = "required_missing"
	ErrTypeError            ErrorKind = "type_error"
	ErrOutOfRange           ErrorKind = "out_of_range"
	ErrPatternMismatch      ErrorKind = "pattern_mismatch"
	ErrReferentialIntegrity ErrorKind = "referential_integrity"
	ErrCustomValue          ErrorKind = "custom_value_error"
)

// AllErrorKinds lists every error kind.
var AllErrorKinds = []ErrorKind{
	ErrRequiredMissing,
	ErrTypeError,
	ErrOutOfRange,
	ErrPatternMismatch,
	ErrReferentialIntegrity,
	ErrCustomValue,
}

// ParseErrorKind converts a string into an ErrorKind.
func ParseErrorKind(s string) (ErrorKind, error) {
	k := ErrorKind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllErrorKinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown error kind %q", s)
}

// ValidationError describes one failed rule on one field of one record.
type ValidationError struct {
	Field   string    `json:"field"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Value   any       `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Field, e.Kind, e.Message)
}

// QuarantineEntry is the audit record of one rejected input record.
// Raw always holds the values as read, before any cleaning.
type QuarantineEntry struct {
	RowIndex int               `json:"row_index"`
	Raw      *Record           `json:"record"`
	Errors   []ValidationError `json:"errors"`
}

// Action is what the validator does when a rule fails.
type Action string

// Action values.
const (
	ActionReject      Action = "reject"
	ActionNullAndKeep Action = "null_and_keep"
)

// ParseAction converts a config string into an Action.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reject", "quarantine":
		return ActionReject, nil
	case "null_and_keep", "null", "nullify":
		return ActionNullAndKeep, nil
	default:
		return "", fmt.Errorf("unknown action %q", s)
	}
}

// AnyField matches every field of a source in a PolicyKey.
const AnyField = "*"

// PolicyKey addresses one entry of the policy table.
type PolicyKey struct {
	Source string
	Field  string
	Kind   ErrorKind
}

// PolicyTable maps (source, field, error kind) to an Action.
// Lookups that match nothing resolve to ActionReject.
type PolicyTable struct {
	actions map[PolicyKey]Action
}

// NewPolicyTable creates an empty policy table.
func NewPolicyTable() *PolicyTable {
	return &PolicyTable{actions: make(map[PolicyKey]Action)}
}

// Set stores an action. Referential integrity failures can only be rejected.
func (p *PolicyTable) Set(key PolicyKey, action Action) error {
	if key.Kind == ErrReferentialIntegrity && action != ActionReject {
		return fmt.Errorf("policy %s.%s: %s can only be %s", key.Source, key.Field, key.Kind, ActionReject)
	}
	p.actions[key] = action
	return nil
}

// Action resolves the action for a failure. An exact field entry wins over
// the source-wide AnyField entry.
func (p *PolicyTable) Action(source, field string, kind ErrorKind) Action {
	if kind == ErrReferentialIntegrity || p == nil {
		return ActionReject
	}
	if a, ok := p.actions[PolicyKey{Source: source, Field: field, Kind: kind}]; ok {
		return a
	}
	if a, ok := p.actions[PolicyKey{Source: source, Field: AnyField, Kind: kind}]; ok {
		return a
	}
	return ActionReject
}

// Len returns the number of explicit entries.
func (p *PolicyTable) Len() int {
	return len(p.actions)
}
