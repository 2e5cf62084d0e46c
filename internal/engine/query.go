package engine

import (
	"strconv"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"table-crud/internal/schema"
)

// QuerySpec is the resolved, validated listing parameters for one render.
// OrderBy is always a known column or the primary key by the time a spec
// exists; raw request input never reaches SQL text.
type QuerySpec struct {
	Search   string
	OrderBy  string
	OrderDir string // "ASC" or "DESC"
	Page     int
	PageSize int
}

// ParseQuerySpec resolves the listing parameters from the request against
// the table config. A pagination postback's page number takes precedence
// over the query string.
func ParseQuerySpec(cfg *schema.TableConfig, req *Request) QuerySpec {
	spec := QuerySpec{
		Search:   strings.TrimSpace(req.Query.Get(ParamSearch)),
		OrderBy:  cfg.PrimaryKey,
		OrderDir: "DESC",
		Page:     1,
		PageSize: cfg.PageSize,
	}
	if spec.PageSize <= 0 {
		spec.PageSize = schema.DefaultPageSize
	}

	// The injection boundary: anything that is not a configured column or
	// the primary key falls back to the primary key.
	if ob := req.Query.Get(ParamOrderBy); ob != "" && cfg.SortAllowed(ob) {
		spec.OrderBy = ob
	}
	if strings.EqualFold(req.Query.Get(ParamOrder), "asc") {
		spec.OrderDir = "ASC"
	}

	// A pagination postback carries the page number in the form body;
	// anything else reads it from the query string.
	paged := req.Query.Get(ParamPaged)
	if req.Form.Get(ParamFormType) == FormTypePagination {
		paged = req.Form.Get(ParamPaged)
	}
	if v, err := strconv.Atoi(paged); err == nil && v > 1 {
		spec.Page = v
	}

	return spec
}

// selectColumns returns the primary key plus the configured columns,
// de-duplicated, in display order.
func selectColumns(cfg *schema.TableConfig) []string {
	cols := make([]string, 0, cfg.Columns.Len()+1)
	if !cfg.Columns.Has(cfg.PrimaryKey) {
		cols = append(cols, cfg.PrimaryKey)
	}
	return append(cols, cfg.Columns.Names()...)
}

// escapeLike escapes LIKE metacharacters so a search term matches
// literally. The generated clause carries ESCAPE '\'.
func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}

// searchClause ORs a LIKE over every configured column, giving
// match-any-column substring search.
func searchClause(cfg *schema.TableConfig, term string) sq.Or {
	pattern := "%" + escapeLike(term) + "%"
	or := make(sq.Or, 0, cfg.Columns.Len())
	for _, name := range cfg.Columns.Names() {
		or = append(or, sq.Expr(name+` LIKE ? ESCAPE '\'`, pattern))
	}
	return or
}

// BuildListSQL builds the paginated SELECT for a listing. LIMIT and OFFSET
// are bound parameters, never interpolated.
func BuildListSQL(cfg *schema.TableConfig, spec QuerySpec, ph sq.PlaceholderFormat) (string, []any, error) {
	b := sq.Select(selectColumns(cfg)...).From(cfg.Table)
	if spec.Search != "" {
		b = b.Where(searchClause(cfg, spec.Search))
	}
	b = b.OrderBy(spec.OrderBy + " " + spec.OrderDir).
		Suffix("LIMIT ? OFFSET ?", spec.PageSize, (spec.Page-1)*spec.PageSize)
	return b.PlaceholderFormat(ph).ToSql()
}

// BuildCountSQL builds the COUNT query with the same search filter.
func BuildCountSQL(cfg *schema.TableConfig, spec QuerySpec, ph sq.PlaceholderFormat) (string, []any, error) {
	b := sq.Select("COUNT(*) AS total").From(cfg.Table)
	if spec.Search != "" {
		b = b.Where(searchClause(cfg, spec.Search))
	}
	return b.PlaceholderFormat(ph).ToSql()
}
