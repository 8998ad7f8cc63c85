package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/eurometrics/internal/core"
	"github.com/JonMunkholm/eurometrics/internal/logging"
)

// DefaultBatchSize is used when a store is created with a non-positive batch size.
const DefaultBatchSize = 1000

// legacyView is the materialized view earlier deployments built on the
// source tables. It blocks DROP TABLE and is not rebuilt.
const legacyView = "economic_indicators"

// IndicatorTable is the table the dashboard reads.
const IndicatorTable = "core_economic_indicators"

// Store writes ingested data to Postgres.
type Store interface {
	WriteObservations(ctx context.Context, tbl TableSpec, mode WriteMode, obs []Observation) (int64, error)
	ReadObservations(ctx context.Context, tbl TableSpec) ([]Observation, error)
	WriteIndicators(ctx context.Context, table string, records []core.IndicatorRecord) (int64, error)
}

// PGStore is the pgx implementation of Store.
type PGStore struct {
	pool      *pgxpool.Pool
	batchSize int
}

// NewPGStore creates a store that copies rows in batches of batchSize.
func NewPGStore(pool *pgxpool.Pool, batchSize int) *PGStore {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &PGStore{pool: pool, batchSize: batchSize}
}

func ident(name string) string {
	return pgx.Identifier(strings.Split(name, ".")).Sanitize()
}

func createTableSQL(tbl TableSpec, ifNotExists bool) string {
	clause := ""
	if ifNotExists {
		clause = "IF NOT EXISTS "
	}
	return fmt.Sprintf("CREATE TABLE %s%s (%s DATE NOT NULL, %s DOUBLE PRECISION, %s TEXT NOT NULL)",
		clause, ident(tbl.Name), ident(tbl.DateCol), ident(tbl.ValueCol), ident(tbl.RegionCol))
}

// WriteObservations writes obs in one transaction. Replace drops the legacy
// view and the table first; Append creates the table only if missing.
func (s *PGStore) WriteObservations(ctx context.Context, tbl TableSpec, mode WriteMode, obs []Observation) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	switch mode {
	case Replace:
		stmts := []string{
			"DROP MATERIALIZED VIEW IF EXISTS " + ident(legacyView),
			"DROP TABLE IF EXISTS " + ident(tbl.Name),
			createTableSQL(tbl, false),
		}
		for _, stmt := range stmts {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return 0, fmt.Errorf("prepare %s: %w", tbl.Name, err)
			}
		}
	case Append:
		if _, err := tx.Exec(ctx, createTableSQL(tbl, true)); err != nil {
			return 0, fmt.Errorf("prepare %s: %w", tbl.Name, err)
		}
	}

	rows := make([][]any, len(obs))
	for i, o := range obs {
		rows[i] = []any{o.Date, o.Value, o.Region}
	}
	n, err := s.copyBatches(ctx, tx, tbl.Name, tbl.Columns(), rows)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit %s: %w", tbl.Name, err)
	}
	logging.WithFields(ctx, "table", tbl.Name).Info("observations written", "rows", n, "mode", mode.String())
	return n, nil
}

func (s *PGStore) copyBatches(ctx context.Context, tx pgx.Tx, table string, columns []string, rows [][]any) (int64, error) {
	var total int64
	for start := 0; start < len(rows); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return total, fmt.Errorf("copy %s cancelled at row %d: %w", table, start, err)
		}
		end := min(start+s.batchSize, len(rows))
		n, err := tx.CopyFrom(ctx, pgx.Identifier(strings.Split(table, ".")), columns, pgx.CopyFromRows(rows[start:end]))
		if err != nil {
			return total, fmt.Errorf("copy %s: %w", table, err)
		}
		total += n
	}
	return total, nil
}

// ReadObservations reads a source table back.
func (s *PGStore) ReadObservations(ctx context.Context, tbl TableSpec) ([]Observation, error) {
	query := fmt.Sprintf("SELECT %s, %s, %s FROM %s WHERE %s IS NOT NULL",
		ident(tbl.DateCol), ident(tbl.ValueCol), ident(tbl.RegionCol), ident(tbl.Name), ident(tbl.ValueCol))

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tbl.Name, err)
	}
	obs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Observation, error) {
		var o Observation
		err := row.Scan(&o.Date, &o.Value, &o.Region)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tbl.Name, err)
	}
	return obs, nil
}

// indicatorColumns is the physical schema of the indicator table.
var indicatorColumns = []string{"country_code", "year", "gdp_eur_millions", "gdp_per_capita", "avg_hicp_index", "population"}

// WriteIndicators replaces the indicator table with records.
func (s *PGStore) WriteIndicators(ctx context.Context, table string, records []core.IndicatorRecord) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmts := []string{
		"DROP TABLE IF EXISTS " + ident(table),
		fmt.Sprintf(`CREATE TABLE %s (
			country_code TEXT NOT NULL,
			year INTEGER NOT NULL,
			gdp_eur_millions DOUBLE PRECISION,
			gdp_per_capita DOUBLE PRECISION,
			avg_hicp_index DOUBLE PRECISION,
			population BIGINT,
			PRIMARY KEY (country_code, year))`, ident(table)),
	}
	for _, stmt := range stmts {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("prepare %s: %w", table, err)
		}
	}

	n, err := s.copyBatches(ctx, tx, table, indicatorColumns, indicatorRows(records))
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit %s: %w", table, err)
	}
	logging.WithFields(ctx, "table", table).Info("indicator table built", "rows", n)
	return n, nil
}

// indicatorRows flattens records in indicatorColumns order. Nil pointers
// become SQL NULL.
func indicatorRows(records []core.IndicatorRecord) [][]any {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{r.Region, r.Year, r.GDP, r.GDPPerCapita, r.HICP, r.Population}
	}
	return rows
}
