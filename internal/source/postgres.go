package source

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/eurometrics/internal/config"
	"github.com/JonMunkholm/eurometrics/internal/core"
)

// NewPool parses the database URL, applies pool limits from config and
// verifies the connection.
func NewPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Postgres loads the indicator table through a pgx pool.
type Postgres struct {
	pool    *pgxpool.Pool
	table   string
	timeout time.Duration
}

// NewPostgres creates a loader for table. A zero timeout means no deadline
// beyond the caller's context.
func NewPostgres(pool *pgxpool.Pool, table string, timeout time.Duration) *Postgres {
	return &Postgres{pool: pool, table: table, timeout: timeout}
}

// Load runs SELECT * against the table and maps the result by its field
// descriptions.
func (p *Postgres) Load(ctx context.Context) (table *core.Table, err error) {
	defer guard(&table, &err)

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	rows, err := p.pool.Query(ctx, selectAll(p.table))
	if err != nil {
		return unavailable("query "+p.table, err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	schema := make([]string, len(fields))
	for i, fd := range fields {
		schema[i] = fd.Name
	}

	mapper, err := newRowMapper(schema)
	if err != nil {
		return unavailable(p.table, err)
	}

	var records []core.IndicatorRecord
	for rows.Next() {
		values, err := rows.Values()
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
