// Package source reads the indicator table from a relational store.
//
// A Loader performs exactly one read-only query and returns the typed base
// table. Any failure is reported as an empty table and an error wrapping
// core.ErrSourceUnavailable; loaders never panic past their boundary.
package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/eurometrics/internal/config"
	"github.com/JonMunkholm/eurometrics/internal/core"
)

// Loader fetches the full indicator table.
type Loader interface {
	Load(ctx context.Context) (*core.Table, error)
}

// unavailable wraps err as a source failure and returns the empty table
// callers fall back to.
func unavailable(op string, err error) (*core.Table, error) {
	return &core.Table{}, fmt.Errorf("%w: %s: %v", core.ErrSourceUnavailable, op, err)
}

// quoteIdent quotes a possibly schema-qualified identifier for SQL.
func quoteIdent(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = `"` + strings.ReplaceAll(p, `"`, `""`) + `"`
	}
	return strings.Join(parts, ".")
}

// selectAll is the single query every loader runs.
func selectAll(table string) string {
	return "SELECT * FROM " + quoteIdent(table)
}

// guard converts a panic inside a loader into a source error.
func guard(table **core.Table, err *error) {
	if r := recover(); r != nil {
		*table, *err = unavailable("load", fmt.Errorf("panic: %v", r))
	}
}

// Open builds the loader selected by cfg.Source.Driver. The returned close
// function releases the underlying connection pool.
func Open(ctx context.Context, cfg *config.Config) (Loader, func(), error) {
	switch strings.ToLower(cfg.Source.Driver) {
	case config.DriverSQLite:
		db, err := OpenSQLite(cfg.Source.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLite(db, cfg.Source.Table, cfg.Source.QueryTimeout), func() { db.Close() }, nil
	case config.DriverPostgres:
		pool, err := NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		return NewPostgres(pool, cfg.Source.Table, cfg.Source.QueryTimeout), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown source driver %q", cfg.Source.Driver)
	}
}
