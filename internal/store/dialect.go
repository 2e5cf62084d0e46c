package store

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
)

// ColumnInfo describes one column of a live table.
type ColumnInfo struct {
	Name       string `json:"name"`
	Type       string `json:"type"` // raw database type, lowercased
	PrimaryKey bool   `json:"primary_key"`
}

// Dialect abstracts the database-specific corners: driver registration
// name, placeholder style, metadata introspection and error mapping.
type Dialect interface {
	// Name returns "postgres" or "sqlite".
	Name() string

	// DriverName returns the database/sql driver name ("pgx" or "sqlite").
	DriverName() string

	// Placeholders returns the squirrel placeholder format for this dialect.
	Placeholders() sq.PlaceholderFormat

	// PrimaryKey returns the primary key column of a table, or "" when the
	// table has no primary key.
	PrimaryKey(ctx context.Context, db *sql.DB, table string) (string, error)

	// Tables lists user tables visible to the connection.
	Tables(ctx context.Context, db *sql.DB) ([]string, error)

	// Columns returns column metadata for a table in definition order.
	Columns(ctx context.Context, db *sql.DB, table string) ([]ColumnInfo, error)

	// MapError translates a backend error to a sentinel where one applies,
	// otherwise returns the error unchanged.
	MapError(err error) error
}

// NewDialect returns the dialect for the given driver name.
func NewDialect(driver string) Dialect {
	if driver == "sqlite" {
		return &SQLiteDialect{}
	}
	return &PostgresDialect{}
}
