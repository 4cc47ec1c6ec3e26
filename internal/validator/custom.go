package validator

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/leapstack-labs/silverline/pkg/core"
)

// CustomRule checks a typed, non-null field value. It returns an empty string
// when the value passes and a short failure message otherwise.
type CustomRule func(value any, fieldType core.FieldType, ref time.Time) string

// Built-in custom rule names.
const (
	RuleNotFuture = "not_future"
	RuleEmail     = "email"
	RuleJSON      = "json"
	RuleNotBlank  = "not_blank"
)

var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var builtinRules = map[string]CustomRule{
	RuleNotFuture: notFuture,
	RuleEmail:     email,
	RuleJSON:      validJSON,
	RuleNotBlank:  notBlank,
}

// notFuture fails dates after the reference date and datetimes after the
// reference instant.
func notFuture(value any, fieldType core.FieldType, ref time.Time) string {
	s, ok := value.(string)
	if !ok {
		return ""
	}

	if fieldType == core.FieldDate {
		d, err := time.Parse(DateLayout, s)
		if err != nil {
			return ""
		}
		refDate := ref.UTC().Format(DateLayout)
		if d.Format(DateLayout) > refDate {
			return "date " + s + " is after reference date " + refDate
		}
		return ""
	}

	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return ""
	}
	if ts.After(ref) {
		return "time " + s + " is after reference time " + ref.UTC().Format(time.RFC3339)
	}
	return ""
}

func email(value any, _ core.FieldType, _ time.Time) string {
	s, _ := core.FormatValue(value)
	if !emailRegex.MatchString(s) {
		return "invalid email address"
	}
	return ""
}

func validJSON(value any, _ core.FieldType, _ time.Time) string {
	s, _ := core.FormatValue(value)
	if !json.Valid([]byte(s)) {
		return "invalid JSON"
	}
	return ""
}

func notBlank(value any, _ core.FieldType, _ time.Time) string {
	s, _ := core.FormatValue(value)
	if strings.TrimSpace(s) == "" {
		return "value is blank"
	}
	return ""
}
