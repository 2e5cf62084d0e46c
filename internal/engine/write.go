package engine

import (
	"errors"

	sq "github.com/Masterminds/squirrel"

	"table-crud/internal/schema"
)

var errNoWritableFields = errors.New("no writable fields in submission")

// Mutation statements only ever interpolate column names that exist in the
// parsed config (plus the discovered primary key); a forged field name in
// submitted form data is simply skipped. Values are always bound.

// BuildInsertSQL builds a parameterized INSERT from the bound submission
// values, in display order.
func BuildInsertSQL(cfg *schema.TableConfig, values map[string]any, ph sq.PlaceholderFormat) (string, []any, error) {
	var cols []string
	var vals []any
	for _, name := range cfg.Columns.Names() {
		v, ok := values[name]
		if !ok {
			continue
		}
		cols = append(cols, name)
		vals = append(vals, v)
	}
	if len(cols) == 0 {
		return "", nil, errNoWritableFields
	}
	return sq.Insert(cfg.Table).Columns(cols...).Values(vals...).
		PlaceholderFormat(ph).ToSql()
}

// BuildUpdateSQL builds a parameterized UPDATE keyed by the primary key.
func BuildUpdateSQL(cfg *schema.TableConfig, values map[string]any, id any, ph sq.PlaceholderFormat) (string, []any, error) {
	b := sq.Update(cfg.Table)
	n := 0
	for _, name := range cfg.Columns.Names() {
		if name == cfg.PrimaryKey {
			continue
		}
		v, ok := values[name]
		if !ok {
			continue
		}
		b = b.Set(name, v)
		n++
	}
	if n == 0 {
		return "", nil, errNoWritableFields
	}
	return b.Where(sq.Eq{cfg.PrimaryKey: id}).PlaceholderFormat(ph).ToSql()
}

// BuildDeleteSQL builds a parameterized single-row DELETE.
func BuildDeleteSQL(cfg *schema.TableConfig, id any, ph sq.PlaceholderFormat) (string, []any, error) {
	return sq.Delete(cfg.Table).Where(sq.Eq{cfg.PrimaryKey: id}).
		PlaceholderFormat(ph).ToSql()
}

// BuildFetchSQL builds the single-record SELECT used to enter edit mode.
func BuildFetchSQL(cfg *schema.TableConfig, id any, ph sq.PlaceholderFormat) (string, []any, error) {
	return sq.Select(selectColumns(cfg)...).From(cfg.Table).
		Where(sq.Eq{cfg.PrimaryKey: id}).
		PlaceholderFormat(ph).ToSql()
}
