package schema

// DisplayType identifies the input widget and the coercion rules for a
// column. Unknown type strings from config degrade to TypeText.
type DisplayType string

const (
	TypeText     DisplayType = "text"
	TypeNumber   DisplayType = "number"
	TypeDate     DisplayType = "date"
	TypeDatetime DisplayType = "datetime"
	TypeTextarea DisplayType = "textarea"
	TypeEmail    DisplayType = "email"
	TypeURL      DisplayType = "url"
	TypeTel      DisplayType = "tel"
	TypePassword DisplayType = "password"
	TypeCheckbox DisplayType = "checkbox"
	TypeKeyValue DisplayType = "key-value"
	TypeQuery    DisplayType = "query"
)

// ParseDisplayType maps a config string to a DisplayType.
func ParseDisplayType(s string) DisplayType {
	switch DisplayType(s) {
	case TypeText, TypeNumber, TypeDate, TypeDatetime, TypeTextarea,
		TypeEmail, TypeURL, TypeTel, TypePassword, TypeCheckbox,
		TypeKeyValue, TypeQuery:
		return DisplayType(s)
	default:
		return TypeText
	}
}

// HasLookup reports whether the type is populated from a lookup query.
func (t DisplayType) HasLookup() bool {
	return t == TypeKeyValue || t == TypeQuery
}

// Column is one parsed descriptor from the field mini-language.
type Column struct {
	Field       string      `json:"field"`
	Label       string      `json:"label"`
	Type        DisplayType `json:"type"`
	ReadOnly    bool        `json:"readonly,omitempty"`
	LookupQuery string      `json:"lookup_query,omitempty"`
}

// Columns is an ordered field_name -> Column mapping. Order is display order.
type Columns struct {
	order  []string
	byName map[string]*Column
}

func NewColumns() *Columns {
	return &Columns{byName: make(map[string]*Column)}
}

// Add appends a column, replacing any earlier descriptor for the same field
// but keeping the original position.
func (c *Columns) Add(col *Column) {
	if _, ok := c.byName[col.Field]; !ok {
		c.order = append(c.order, col.Field)
	}
	c.byName[col.Field] = col
}

// Get returns the column with the given field name, or nil.
func (c *Columns) Get(field string) *Column {
	return c.byName[field]
}

// Has reports whether a column with the given field name exists.
func (c *Columns) Has(field string) bool {
	_, ok := c.byName[field]
	return ok
}

// Len returns the number of columns.
func (c *Columns) Len() int {
	return len(c.order)
}

// Names returns all field names in display order.
func (c *Columns) Names() []string {
	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// All returns all columns in display order.
func (c *Columns) All() []*Column {
	cols := make([]*Column, 0, len(c.order))
	for _, name := range c.order {
		cols = append(cols, c.byName[name])
	}
	return cols
}
