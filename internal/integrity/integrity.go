// Package integrity checks foreign-key values against the keys published by
// previously processed sources.
package integrity

import (
	"fmt"

	"github.com/leapstack-labs/silverline/internal/keys"
	"github.com/leapstack-labs/silverline/internal/validator"
	"github.com/leapstack-labs/silverline/pkg/core"
)

// CheckRecord returns one referential_integrity error per foreign key of def
// whose value is not a published key of the referenced source, in foreign-key
// declaration order. Null and blank values are not checked. Values are
// compared in the canonical form of the foreign-key field's declared type.
func CheckRecord(def *core.SourceDefinition, rec *core.Record, view keys.View) []core.ValidationError {
	var errs []core.ValidationError

	for _, fk := range def.ForeignKeys {
		raw := rec.Value(fk.Field)
		if core.IsBlank(raw) {
			continue
		}
		typ := core.FieldString
		if rule, ok := def.Rules.Field(fk.Field); ok {
			typ = rule.Type
		}
		key, _ := validator.Canonical(raw, typ)
		if view.Contains(fk.References, key) {
			continue
		}

		msg := fmt.Sprintf("%s %q not found in %s", fk.Field, key, fk.References)
		if !view.Published(fk.References) {
			msg = fmt.Sprintf("%s %q cannot be resolved: %s has no published keys", fk.Field, key, fk.References)
		}
		errs = append(errs, core.ValidationError{
			Field:   fk.Field,
			Kind:    core.ErrReferentialIntegrity,
			Message: msg,
			Value:   raw,
		})
	}

	return errs
}

// Check runs CheckRecord over every record and returns the failures keyed by
// row index. Records without failures are absent from the map.
func Check(def *core.SourceDefinition, records []*core.Record, view keys.View) map[int][]core.ValidationError {
	failures := make(map[int][]core.ValidationError)
	if len(def.ForeignKeys) == 0 {
		return failures
	}

	for _, rec := range records {
		if errs := CheckRecord(def, rec, view); len(errs) > 0 {
			failures[rec.RowIndex] = errs
		}
	}
	return failures
}
