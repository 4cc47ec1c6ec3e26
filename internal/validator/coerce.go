package validator

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leapstack-labs/silverline/pkg/core"
)

// DateLayout is the canonical text form of date values.
const DateLayout = "2006-01-02"

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	DateLayout,
}

// coerce converts a non-null value to the Go representation of a field type:
// string, int64, float64, bool, or canonical date/datetime text.
func coerce(v any, t core.FieldType) (any, error) {
	switch t {
	case core.FieldString:
		s, _ := core.FormatValue(v)
		return s, nil
	case core.FieldInteger:
		return toInteger(v)
	case core.FieldFloat:
		return toNumber(v)
	case core.FieldBoolean:
		return toBoolean(v)
	case core.FieldDate:
		ts, err := toTime(v, []string{DateLayout, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05"})
		if err != nil {
			return nil, fmt.Errorf("cannot convert %s to date", describe(v))
		}
		return ts.Format(DateLayout), nil
	case core.FieldDatetime:
		ts, err := toTime(v, datetimeLayouts)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %s to datetime", describe(v))
		}
		return ts.Format(time.RFC3339), nil
	default:
		return v, nil
	}
}

// Canonical returns the text form of v once coerced to t. Primary keys are
// published in this form, so foreign-key values are looked up the same way.
// Values that cannot be coerced keep their plain text form.
func Canonical(v any, t core.FieldType) (string, bool) {
	if v == nil {
		return "", false
	}
	if c, err := coerce(v, t); err == nil {
		v = c
	}
	return core.FormatValue(v)
}

func toInteger(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case bool:
		return 0, fmt.Errorf("cannot convert boolean to integer")
	}

	f, err := toNumber(v)
	if err != nil {
		return 0, fmt.Errorf("cannot convert %s to integer", describe(v))
	}
	if f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, fmt.Errorf("cannot convert %s to integer: not a whole number", describe(v))
	}
	return int64(f), nil
}

// toNumber accepts numeric values and numeric text with currency symbols,
// thousands separators, or accounting-style parentheses.
func toNumber(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("cannot convert %s to number", describe(v))
		}
		f = parsed
	case string:
		parsed, ok := parseNumeric(n)
		if !ok {
			return 0, fmt.Errorf("cannot convert %s to number", describe(v))
		}
		f = parsed
	default:
		return 0, fmt.Errorf("cannot convert %s to number", describe(v))
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("cannot convert %s to number", describe(v))
	}
	return f, nil
}

func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		f = -f
	}
	return f, true
}

func toBoolean(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "t", "yes", "y", "1":
			return true, nil
		case "false", "f", "no", "n", "0":
			return false, nil
		}
	default:
		if f, err := toNumber(v); err == nil {
			switch f {
			case 1:
				return true, nil
			case 0:
				return false, nil
			}
		}
	}
	return false, fmt.Errorf("cannot convert %s to boolean", describe(v))
}

func toTime(v any, layouts []string) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range layouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unparsable time %v", v)
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return 0
}

func formatNumber(f float64) string {
	s, _ := core.FormatValue(f)
	return s
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s)
	}
	s, _ := core.FormatValue(v)
	return fmt.Sprintf("%s (%T)", s, v)
}
