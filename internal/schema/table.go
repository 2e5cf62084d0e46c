package schema

// DefaultPageSize matches the historical default of 5 rows per page.
const DefaultPageSize = 5

// Visibility holds the independent render toggles. Each defaults to true
// and is orthogonal to the others.
type Visibility struct {
	Form         bool `json:"form"`
	Table        bool `json:"table"`
	Search       bool `json:"search"`
	Pagination   bool `json:"pagination"`
	RecordsCount bool `json:"records_count"`
	EditLink     bool `json:"edit_link"`
	DeleteLink   bool `json:"delete_link"`
}

// ShowAll returns a Visibility with every toggle on.
func ShowAll() Visibility {
	return Visibility{
		Form:         true,
		Table:        true,
		Search:       true,
		Pagination:   true,
		RecordsCount: true,
		EditLink:     true,
		DeleteLink:   true,
	}
}

// TableConfig is the resolved configuration for one view over one table.
// It is built once per render request and never mutated afterwards.
type TableConfig struct {
	View       string     // view name the request addressed
	Table      string     // backing table, identifier-checked
	PrimaryKey string     // discovered from table metadata, default "id"
	Columns    *Columns   // display order = config order
	PageSize   int
	Show       Visibility
}

// SortAllowed reports whether field may appear in an ORDER BY for this
// table. This is the injection boundary for user-supplied sort input.
func (t *TableConfig) SortAllowed(field string) bool {
	return field == t.PrimaryKey || t.Columns.Has(field)
}

// WritableColumns returns the columns whose values come from editable
// inputs (everything that is not read-only), in display order.
func (t *TableConfig) WritableColumns() []*Column {
	var cols []*Column
	for _, col := range t.Columns.All() {
		if !col.ReadOnly {
			cols = append(cols, col)
		}
	}
	return cols
}
