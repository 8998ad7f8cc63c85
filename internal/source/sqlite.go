package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JonMunkholm/eurometrics/internal/core"
)

// OpenSQLite opens a SQLite database file read through sqlx.
// ":memory:" databases are limited to one connection so every query sees
// the same data.
func OpenSQLite(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// SQLite loads the indicator table from a SQLite snapshot.
type SQLite struct {
	db      *sqlx.DB
	table   string
	timeout time.Duration
}

// NewSQLite creates a loader for table.
func NewSQLite(db *sqlx.DB, table string, timeout time.Duration) *SQLite {
	return &SQLite{db: db, table: table, timeout: timeout}
}

// Load runs SELECT * against the table and maps each row by column name.
func (s *SQLite) Load(ctx context.Context) (table *core.Table, err error) {
	defer guard(&table, &err)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	rows, err := s.db.QueryxContext(ctx, selectAll(s.table))
	if err != nil {
		return unavailable("query "+s.table, err)
	}
	defer rows.Close()

	schema, err := rows.Columns()
	if err != nil {
		return unavailable("columns", err)
	}

	mapper, err := newRowMapper(schema)
	if err != nil {
		return unavailable(s.table, err)
	}

	var records []core.IndicatorRecord
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return unavailable("read row", err)
		}
		if rec, ok := mapper.mapRow(values); ok {
			records = append(records, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return unavailable("read rows", err)
	}

	table = core.NewTable(schema, records)
	mapper.report(ctx, table)
	return table, nil
}
