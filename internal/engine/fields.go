package engine

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"table-crud/internal/schema"
)

var validate = validator.New()

var (
	// Optional sign, decimal numeral, at most one decimal point.
	numberPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
	// Optional +<country code>, then 3-3-4 grouping with optional
	// space/dot/hyphen separators and optional parens on the first group.
	telPattern = regexp.MustCompile(`^(\+\d{1,3}[-. ]?)?(\(\d{3}\)|\d{3})[-. ]?\d{3}[-. ]?\d{4}$`)
)

// Field error rules.
const (
	RuleRequired = "required"
	RuleFormat   = "format"
)

// Submission is the outcome of validating one posted form: display values
// for re-rendering, typed bind values for SQL, and per-field errors.
type Submission struct {
	Values map[string]string
	Bind   map[string]any
	Errors map[string]string // field -> rule
}

func (s *Submission) OK() bool {
	return len(s.Errors) == 0
}

// CoerceFields sanitizes every configured column's submitted value in
// display order. Read-only columns take their value from the hidden
// carrier and are exempt from required-ness; everything else must coerce
// to a non-empty value.
func CoerceFields(cfg *schema.TableConfig, form url.Values) *Submission {
	sub := &Submission{
		Values: make(map[string]string),
		Bind:   make(map[string]any),
		Errors: make(map[string]string),
	}

	for _, col := range cfg.Columns.All() {
		if !col.ReadOnly {
			continue
		}
		// Hidden carrier round-trips the value untouched.
		raw := form.Get(col.Field)
		sub.Values[col.Field] = raw
		sub.Bind[col.Field] = BindValue(raw)
	}

	for _, col := range cfg.WritableColumns() {
		value, rule := coerceValue(col.Type, form.Get(col.Field))
		sub.Values[col.Field] = value
		sub.Bind[col.Field] = BindValue(value)

		if rule != "" {
			sub.Errors[col.Field] = rule
		} else if value == "" {
			sub.Errors[col.Field] = RuleRequired
		}
	}

	return sub
}

// coerceValue applies the per-type sanitization. It returns the coerced
// value and a non-empty rule when the input is a hard format error rather
// than merely empty.
func coerceValue(t schema.DisplayType, raw string) (string, string) {
	switch t {
	case schema.TypeTextarea:
		// Trim the ends only; interior newlines survive to storage and
		// are turned into line breaks at display time.
		return strings.TrimSpace(raw), ""

	case schema.TypeEmail:
		// Whitespace is stripped but invalid syntax is stored as given:
		// format is deliberately not enforced server-side.
		return strings.Join(strings.Fields(raw), ""), ""

	case schema.TypeURL:
		v := strings.TrimSpace(raw)
		if v == "" || validate.Var(v, "url") != nil {
			return "", ""
		}
		return v, ""

	case schema.TypeNumber:
		v := strings.TrimSpace(raw)
		if !numberPattern.MatchString(v) {
			return "", ""
		}
		return v, ""

	case schema.TypeTel:
		v := strings.TrimSpace(raw)
		if v == "" {
			return "", ""
		}
		if !telPattern.MatchString(v) {
			return v, RuleFormat
		}
		return v, ""

	case schema.TypeCheckbox:
		// Unchecked boxes are absent from the post; boolean columns still
		// always receive a value.
		v := strings.TrimSpace(raw)
		if v == "" {
			return "0", ""
		}
		return v, ""

	default: // text, date, datetime, password, key-value, query
		return strings.TrimSpace(raw), ""
	}
}

// BindValue picks the storage parameter type for a coerced value: float
// when numeric with a decimal point, integer when numeric without one,
// string otherwise.
func BindValue(value string) any {
	if numberPattern.MatchString(value) {
		if strings.Contains(value, ".") {
			if f, err := strconv.ParseFloat(value, 64); err == nil {
				return f
			}
		} else if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return value
}
