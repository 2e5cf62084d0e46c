package engine

import (
	"fmt"

	"table-crud/internal/auth"
	"table-crud/internal/schema"
)

// tokenIssuer is the slice of auth.Issuer the renderer needs.
type tokenIssuer interface {
	Issue(action, view, recordID string) (string, error)
}

// Message is one inline status line above the view.
type Message struct {
	Kind string `json:"kind"` // "success" or "error"
	Text string `json:"text"`
}

// SortLink is the query-parameter pair a header cell link should carry.
type SortLink struct {
	OrderBy string `json:"orderby"`
	Order   string `json:"order"` // "asc" or "desc"
}

// HeaderCell is one sortable column header.
type HeaderCell struct {
	Field  string   `json:"field"`
	Label  string   `json:"label"`
	Sort   SortLink `json:"sort"`
	Active bool     `json:"active"`        // this column is the current sort key
	Dir    string   `json:"dir,omitempty"` // current direction when active
}

// Cell kinds drive display formatting without the model carrying markup.
const (
	CellText      = "text"      // plain escaped text
	CellLink      = "link"      // render as an anchor to Href
	CellMultiline = "multiline" // newlines become line breaks
)

// Cell is one formatted field value in a row.
type Cell struct {
	Field string `json:"field"`
	Value string `json:"value"`
	Kind  string `json:"kind"`
	Href  string `json:"href,omitempty"`
}

// ActionLink is a per-record action carrying its record-scoped token.
type ActionLink struct {
	Param    string `json:"param"` // query parameter naming the action
	RecordID string `json:"record_id"`
	Token    string `json:"token"`
}

// Row is one record of the data table.
type Row struct {
	ID     string      `json:"id"`
	Cells  []Cell      `json:"cells"`
	Edit   *ActionLink `json:"edit,omitempty"`
	Delete *ActionLink `json:"delete,omitempty"`
}

// TableView is the data table portion of the view model.
type TableView struct {
	Columns      []HeaderCell `json:"columns"`
	Rows         []Row        `json:"rows"`
	ShowActions  bool         `json:"show_actions"`
	Empty        bool         `json:"empty"`
	EmptyColspan int          `json:"empty_colspan,omitempty"`
	EmptyText    string       `json:"empty_text,omitempty"`
}

// SearchView is the search box plus the records-count line.
type SearchView struct {
	Term       string            `json:"term"`
	Hidden     map[string]string `json:"hidden"` // preserved query parameters
	ShowCount  bool              `json:"show_count"`
	CountLabel string            `json:"count_label,omitempty"`
}

// PaginationView enumerates the jump pages and the prev/next state.
type PaginationView struct {
	Page       int   `json:"page"`
	TotalPages int   `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
	Pages      []int `json:"pages"`
}

// FormField is one input of the entry form.
type FormField struct {
	Field    string             `json:"field"`
	Label    string             `json:"label"`
	Type     schema.DisplayType `json:"type"`
	Value    string             `json:"value"`
	ReadOnly bool               `json:"readonly,omitempty"`
	Lookup   bool               `json:"lookup,omitempty"` // populate via /lookup
	Error    string             `json:"error,omitempty"`  // validation rule when flagged
}

// FormView is the add/edit form.
type FormView struct {
	Fields   []FormField `json:"fields"`
	Editing  bool        `json:"editing"`
	RecordID string      `json:"record_id,omitempty"`
	Token    string      `json:"token"` // form-scoped authenticity token
}

// ViewModel is the full rendering contract for one request: structured
// data only, no markup.
type ViewModel struct {
	View       string          `json:"view"`
	Total      int64           `json:"total"`
	Messages   []Message       `json:"messages,omitempty"`
	Form       *FormView       `json:"form,omitempty"`
	Search     *SearchView     `json:"search,omitempty"`
	Table      *TableView      `json:"table,omitempty"`
	Pagination *PaginationView `json:"pagination,omitempty"`
	ConfigErr  string          `json:"config_error,omitempty"`
}

// editContext carries the state of a token-gated edit-mode entry.
type editContext struct {
	Editing  bool
	RecordID string
	Record   map[string]any
}

// BuildViewModel assembles the full view model from already-fetched data.
// Pure with respect to request state: everything it needs arrives as an
// argument.
func BuildViewModel(
	cfg *schema.TableConfig,
	req *Request,
	spec QuerySpec,
	rows []map[string]any,
	total int64,
	sub *Submission,
	edit editContext,
	messages []Message,
	tokens tokenIssuer,
) *ViewModel {
	vm := &ViewModel{View: cfg.View, Total: total, Messages: messages}

	if cfg.Show.Form {
		vm.Form = buildForm(cfg, sub, edit, tokens)
	}
	if cfg.Show.Search {
		vm.Search = buildSearch(cfg, req, spec, total)
	}
	if cfg.Show.Table {
		vm.Table = buildTable(cfg, spec, rows, tokens)
	}
	if cfg.Show.Pagination && total > int64(spec.PageSize) {
		vm.Pagination = buildPagination(spec, total)
	}
	return vm
}

func buildForm(cfg *schema.TableConfig, sub *Submission, edit editContext, tokens tokenIssuer) *FormView {
	form := &FormView{Editing: edit.Editing, RecordID: edit.RecordID}
	form.Token, _ = tokens.Issue(auth.ActionForm, cfg.View, "")

	for _, col := range cfg.Columns.All() {
		field := FormField{
			Field:    col.Field,
			Label:    col.Label,
			Type:     col.Type,
			ReadOnly: col.ReadOnly,
			Lookup:   col.Type.HasLookup(),
		}
		// Submitted values win over the record being edited, so a failed
		// validation re-renders what the user typed.
		if sub != nil {
			field.Value = sub.Values[col.Field]
			field.Error = sub.Errors[col.Field]
		} else if edit.Editing {
			field.Value = formatValue(edit.Record[col.Field])
		}
		form.Fields = append(form.Fields, field)
	}
	return form
}

func buildSearch(cfg *schema.TableConfig, req *Request, spec QuerySpec, total int64) *SearchView {
	sv := &SearchView{
		Term:      spec.Search,
		Hidden:    map[string]string{},
		ShowCount: cfg.Show.RecordsCount,
	}
	// Everything except the search term and the page survives as a hidden
	// field, so submitting the box keeps sort order and edit state.
	for key, vals := range req.Query {
		if key == ParamSearch || key == ParamPaged || len(vals) == 0 {
			continue
		}
		sv.Hidden[key] = vals[0]
	}
	if cfg.Show.RecordsCount {
		sv.CountLabel = countLabel(total)
	}
	return sv
}

// countLabel pluralizes the records-count line.
func countLabel(total int64) string {
	if total == 1 {
		return "1 record"
	}
	return fmt.Sprintf("%d records", total)
}

func buildTable(cfg *schema.TableConfig, spec QuerySpec, rows []map[string]any, tokens tokenIssuer) *TableView {
	showActions := cfg.Show.EditLink || cfg.Show.DeleteLink
	tv := &TableView{ShowActions: showActions}

	for _, col := range cfg.Columns.All() {
		cell := HeaderCell{
			Field: col.Field,
			Label: col.Label,
			// Clicking the current sort key flips direction; any other
			// column starts ascending.
			Sort: SortLink{OrderBy: col.Field, Order: "asc"},
		}
		if spec.OrderBy == col.Field {
			cell.Active = true
			cell.Dir = lowerDir(spec.OrderDir)
			if spec.OrderDir == "ASC" {
				cell.Sort.Order = "desc"
			}
		}
		tv.Columns = append(tv.Columns, cell)
	}

	for _, record := range rows {
		tv.Rows = append(tv.Rows, buildRow(cfg, record, tokens))
	}

	if len(tv.Rows) == 0 {
		tv.Empty = true
		tv.EmptyText = "No records found."
		tv.EmptyColspan = cfg.Columns.Len()
		if showActions {
			tv.EmptyColspan++
		}
	}
	return tv
}

func buildRow(cfg *schema.TableConfig, record map[string]any, tokens tokenIssuer) Row {
	row := Row{ID: formatValue(record[cfg.PrimaryKey])}

	for _, col := range cfg.Columns.All() {
		cell := Cell{Field: col.Field, Value: formatValue(record[col.Field]), Kind: CellText}
		switch col.Type {
		case schema.TypeURL:
			if cell.Value != "" {
				cell.Kind = CellLink
				cell.Href = cell.Value
			}
		case schema.TypeTextarea:
			cell.Kind = CellMultiline
		}
		row.Cells = append(row.Cells, cell)
	}

	if row.ID != "" {
		if cfg.Show.EditLink {
			if tok, err := tokens.Issue(auth.ActionEdit, cfg.View, row.ID); err == nil {
				row.Edit = &ActionLink{Param: ParamEdit, RecordID: row.ID, Token: tok}
			}
		}
		if cfg.Show.DeleteLink {
			if tok, err := tokens.Issue(auth.ActionDelete, cfg.View, row.ID); err == nil {
				row.Delete = &ActionLink{Param: ParamDelete, RecordID: row.ID, Token: tok}
			}
		}
	}
	return row
}

func buildPagination(spec QuerySpec, total int64) *PaginationView {
	totalPages := int((total + int64(spec.PageSize) - 1) / int64(spec.PageSize))
	pv := &PaginationView{
		Page:       spec.Page,
		TotalPages: totalPages,
		HasPrev:    spec.Page > 1,
		HasNext:    spec.Page < totalPages,
	}
	for i := 1; i <= totalPages; i++ {
		pv.Pages = append(pv.Pages, i)
	}
	return pv
}

func lowerDir(dir string) string {
	if dir == "ASC" {
		return "asc"
	}
	return "desc"
}
