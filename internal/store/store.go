package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as database/sql driver
	_ "modernc.org/sqlite"             // register sqlite as database/sql driver

	"table-crud/internal/config"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrNoTable         = errors.New("table does not exist")
	ErrUniqueViolation = errors.New("unique constraint violation")
)

// Storage is the narrow port the engine talks to. *Store implements it;
// tests substitute a fake.
type Storage interface {
	QueryRows(ctx context.Context, sqlStr string, args ...any) ([]map[string]any, error)
	QueryRow(ctx context.Context, sqlStr string, args ...any) (map[string]any, error)
	// QueryVectors preserves the result column order, which map-shaped rows
	// lose. The lookup executor depends on "first column = id, second
	// column = label".
	QueryVectors(ctx context.Context, sqlStr string, args ...any) ([]string, [][]any, error)
	Exec(ctx context.Context, sqlStr string, args ...any) (int64, error)
}

// Store wraps a database connection and its dialect.
type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

// Placeholders returns the dialect's placeholder format for statement
// builders.
func (s *Store) Placeholders() sq.PlaceholderFormat {
	return s.Dialect.Placeholders()
}

// New opens a connection for the configured driver and verifies it.
func New(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}

	dialect := NewDialect(driver)
	db, err := sql.Open(dialect.DriverName(), cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == "postgres" {
		if cfg.PoolSize > 0 {
			db.SetMaxOpenConns(cfg.PoolSize)
		}
	} else if driver == "sqlite" {
		// Single writer, WAL for concurrent readers.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return &Store{DB: db, Dialect: dialect}, nil
}

// Close closes the database connection.
func (s *Store) Close() {
	s.DB.Close()
}

// QueryRows executes a query and returns results as []map[string]any.
func (s *Store) QueryRows(ctx context.Context, sqlStr string, args ...any) ([]map[string]any, error) {
	rows, err := s.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, s.Dialect.MapError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("get columns: %w", err)
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeValue(values[i])
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return results, nil
}

// QueryRow executes a query expected to return a single row.
func (s *Store) QueryRow(ctx context.Context, sqlStr string, args ...any) (map[string]any, error) {
	rows, err := s.QueryRows(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}
	return rows[0], nil
}

// QueryVectors executes a query and returns the ordered column names plus
// each row as a value slice in that order.
func (s *Store) QueryVectors(ctx context.Context, sqlStr string, args ...any) ([]string, [][]any, error) {
	rows, err := s.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, nil, s.Dialect.MapError(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("get columns: %w", err)
	}

	var results [][]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan: %w", err)
		}
		for i := range values {
			values[i] = normalizeValue(values[i])
		}
		results = append(results, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows iteration: %w", err)
	}
	return columns, results, nil
}

// Exec executes a statement and returns the number of rows affected.
func (s *Store) Exec(ctx context.Context, sqlStr string, args ...any) (int64, error) {
	result, err := s.DB.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return 0, s.Dialect.MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// PrimaryKey returns the primary key column of a table, defaulting to "id"
// when the dialect cannot discover one.
func (s *Store) PrimaryKey(ctx context.Context, table string) string {
	pk, err := s.Dialect.PrimaryKey(ctx, s.DB, table)
	if err != nil || pk == "" {
		return "id"
	}
	return pk
}

// Tables lists the tables visible to this connection.
func (s *Store) Tables(ctx context.Context) ([]string, error) {
	return s.Dialect.Tables(ctx, s.DB)
}

// Columns returns column metadata for a table in definition order.
func (s *Store) Columns(ctx context.Context, table string) ([]ColumnInfo, error) {
	return s.Dialect.Columns(ctx, s.DB, table)
}

// normalizeValue converts driver-specific scan types into plain Go values.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		// database/sql returns []byte for TEXT columns on some drivers
		return string(val)
	default:
		return v
	}
}
