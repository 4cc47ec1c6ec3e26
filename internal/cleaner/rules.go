package cleaner

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/silverline/pkg/core"
)

// Defaults for rules that leave options unset.
var (
	DefaultPhoneRemoveChars = "()-.+ \t"
	DefaultTrueValues       = []string{"true", "yes", "1", "y"}
	DefaultFalseValues      = []string{"false", "no", "0", "n"}
	DefaultDateOutputFormat = "2006-01-02"
)

// String operations, applied in the order listed on the rule.
const (
	OpTrim                = "trim"
	OpNormalizeWhitespace = "normalize_whitespace"
	OpLower               = "lower"
	OpUpper               = "upper"
	OpTitle               = "title"
	OpSpacesToUnderscores = "spaces_to_underscores"
)

var knownStringOps = map[string]bool{
	OpTrim:                true,
	OpNormalizeWhitespace: true,
	OpLower:               true,
	OpUpper:               true,
	OpTitle:               true,
	OpSpacesToUnderscores: true,
}

var whitespaceRun = regexp.MustCompile(`\s+`)

type compiledRule struct {
	Rule

	removeChars string
	tokens      map[string]bool
	nullValues  map[string]struct{}
}

func (r *compiledRule) apply(v any, pivotYear int) any {
	switch r.Type {
	case RulePhone:
		return r.phone(v)
	case RuleBoolean:
		return r.boolean(v)
	case RuleCase:
		return r.caseOf(v)
	case RuleDate:
		return r.date(v, pivotYear)
	case RuleString:
		return r.str(v)
	default:
		return v
	}
}

func (r *compiledRule) phone(v any) any {
	s, ok := core.FormatValue(v)
	if !ok {
		return nil
	}
	out := strings.Map(func(c rune) rune {
		if strings.ContainsRune(r.removeChars, c) || c == '\n' || c == '\r' {
			return -1
		}
		return c
	}, s)
	if out == "" {
		return nil
	}
	return out
}

func (r *compiledRule) boolean(v any) any {
	if b, ok := v.(bool); ok {
		return b
	}
	s, ok := core.FormatValue(v)
	if !ok {
		return nil
	}
	b, known := r.tokens[strings.ToLower(strings.TrimSpace(s))]
	if !known {
		return nil
	}
	return b
}

func (r *compiledRule) caseOf(v any) any {
	s, ok := core.FormatValue(v)
	if !ok {
		return nil
	}
	return convertCase(s, r.Case)
}

func convertCase(s, mode string) string {
	switch mode {
	case "upper":
		return strings.ToUpper(s)
	case "title":
		return cases.Title(language.Und).String(s)
	default:
		return strings.ToLower(s)
	}
}

func (r *compiledRule) date(v any, pivotYear int) any {
	var t time.Time
	var ok bool

	switch val := v.(type) {
	case time.Time:
		t, ok = val.UTC(), true
	case string:
		t, ok = parseDate(val, pivotYear)
	case bool:
		ok = false
	default:
		if s, present := core.FormatValue(val); present {
			t, ok = parseEpoch(s)
		}
	}

	if !ok {
		return nil
	}
	return t.Format(r.OutputFormat)
}

func (r *compiledRule) str(v any) any {
	s, ok := core.FormatValue(v)
	if !ok {
		return nil
	}

	for _, op := range r.Operations {
		switch op {
		case OpTrim:
			s = strings.TrimSpace(s)
		case OpNormalizeWhitespace:
			s = whitespaceRun.ReplaceAllString(s, " ")
		case OpLower:
			s = convertCase(s, "lower")
		case OpUpper:
			s = convertCase(s, "upper")
		case OpTitle:
			s = convertCase(s, "title")
		case OpSpacesToUnderscores:
			s = strings.ReplaceAll(s, " ", "_")
		}
	}

	trimmed := strings.TrimSpace(s)
	if _, isNull := r.nullValues[strings.ToLower(trimmed)]; isNull {
		return nil
	}
	if r.EmptyAsNull && trimmed == "" {
		return nil
	}
	return s
}

// TwoDigitYearPivot defines how 2-digit years are interpreted. Years more than
// this many years after the reference year are moved to the previous century.
const TwoDigitYearPivot = 20

// MaxEpochSeconds is the largest accepted epoch value (2100-01-01T00:00:00Z).
const MaxEpochSeconds = 4102444800

// Date layouts, split by year format for two-digit year handling.
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02 15:04",
		"2006-01-02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"2006/01/02", "2006.01.02",
		"1/2/2006 15:04:05", "01/02/2006 15:04",
		"Jan 2, 2006", "January 2, 2006", "Jan 2 2006", "January 2 2006",
		"2 Jan 2006", "2 January 2006", "02-Jan-2006",
		"Mon, 02 Jan 2006 15:04:05 MST", "Mon Jan 2 15:04:05 2006",
		"20060102",
	}
)

// parseDate tries every known layout, then epoch seconds.
// Layouts carrying a zone are converted to UTC before the date is taken.
func parseDate(s string, pivotYear int) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}

	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return parseEpoch(s)
}

// parseEpoch accepts decimal seconds since the Unix epoch within
// [0, MaxEpochSeconds], interpreted in UTC.
func parseEpoch(s string) (time.Time, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > MaxEpochSeconds {
		return time.Time{}, false
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC(), true
}
