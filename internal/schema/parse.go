package schema

import (
	"regexp"
	"strings"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdent reports whether name is safe to use as a SQL identifier.
// Table and column names are configuration-time constants, but they still
// pass through this check before any statement text is assembled.
func ValidIdent(name string) bool {
	return identPattern.MatchString(name)
}

// ParseColumnSpec parses one field spec of the form
// "fieldname=X;displayname=Y;displaytype=Z[;readonly=true][;query=SELECT ...]".
// Segments split on ';', each segment on the FIRST '=' only; a value
// containing a literal ';' or '=' is therefore truncated, matching the
// historical parser. Returns nil when the spec is malformed.
func ParseColumnSpec(raw string) *Column {
	kv := make(map[string]string)
	for _, seg := range strings.Split(raw, ";") {
		parts := strings.SplitN(seg, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.Trim(strings.TrimSpace(parts[1]), `'"`)
		if key == "" || val == "" {
			continue
		}
		kv[key] = val
	}

	field, label, typ := kv["fieldname"], kv["displayname"], kv["displaytype"]
	if field == "" || label == "" || typ == "" {
		return nil
	}
	if !ValidIdent(field) {
		return nil
	}

	col := &Column{
		Field:    field,
		Label:    label,
		Type:     ParseDisplayType(typ),
		ReadOnly: kv["readonly"] == "true",
	}
	if col.Type.HasLookup() {
		col.LookupQuery = kv["query"]
	}
	return col
}

// ParseColumns parses an ordered list of raw field specs. Malformed specs
// are dropped, never fatal; the result may be empty and it is the caller's
// job to treat an empty set as a configuration error.
func ParseColumns(specs []string) *Columns {
	cols := NewColumns()
	for _, raw := range specs {
		if col := ParseColumnSpec(raw); col != nil {
			cols.Add(col)
		}
	}
	return cols
}
