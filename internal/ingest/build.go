package ingest

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/jmoiron/sqlx"

	"github.com/JonMunkholm/eurometrics/internal/core"
	"github.com/JonMunkholm/eurometrics/internal/logging"
)

type regionYear struct {
	region string
	year   int
}

// Combine joins annual GDP with the yearly mean HICP index and population
// by (region, year). GDP drives the join: a year without GDP produces no
// row, while missing HICP or population leave those fields NULL. GDP per
// capita is GDP (EUR millions) * 1e6 / population. Rows are ordered by
// region, then year.
func Combine(gdp, hicp, population []Observation) []core.IndicatorRecord {
	type acc struct {
		sum float64
		n   int
	}
	hicpByYear := make(map[regionYear]*acc)
	for _, o := range hicp {
		k := regionYear{o.Region, o.Date.Year()}
		a, ok := hicpByYear[k]
		if !ok {
			a = &acc{}
			hicpByYear[k] = a
		}
		a.sum += o.Value
		a.n++
	}

	popByYear := make(map[regionYear]float64, len(population))
	for _, o := range population {
		popByYear[regionYear{o.Region, o.Date.Year()}] = o.Value
	}

	// Appended GDP loads may repeat a year; the last observation wins.
	gdpByYear := make(map[regionYear]float64, len(gdp))
	for _, o := range gdp {
		gdpByYear[regionYear{o.Region, o.Date.Year()}] = o.Value
	}

	records := make([]core.IndicatorRecord, 0, len(gdpByYear))
	for k, g := range gdpByYear {
		rec := core.IndicatorRecord{Region: k.region, Year: k.year, GDP: ptr(g)}
		if a, ok := hicpByYear[k]; ok && a.n > 0 {
			rec.HICP = ptr(a.sum / float64(a.n))
		}
		if p, ok := popByYear[k]; ok && p > 0 {
			pop := int64(math.Round(p))
			rec.Population = &pop
			rec.GDPPerCapita = ptr(g * 1e6 / p)
		}
		records = append(records, rec)
	}

	slices.SortFunc(records, func(a, b core.IndicatorRecord) int {
		if c := cmp.Compare(a.Region, b.Region); c != 0 {
			return c
		}
		return cmp.Compare(a.Year, b.Year)
	})
	return records
}

func ptr(v float64) *float64 { return &v }

// BuildIndicators reads the three source tables, combines them and replaces
// the indicator table.
func BuildIndicators(ctx context.Context, store Store, table string) ([]core.IndicatorRecord, error) {
	gdp, err := store.ReadObservations(ctx, GDPTable)
	if err != nil {
		return nil, err
	}
	hicp, err := store.ReadObservations(ctx, HICPTable)
	if err != nil {
		return nil, err
	}
	pop, err := store.ReadObservations(ctx, PopulationTable)
	if err != nil {
		return nil, err
	}

	records := Combine(gdp, hicp, pop)
	if len(records) == 0 {
		return nil, fmt.Errorf("build %s: no GDP observations", table)
	}
	if _, err := store.WriteIndicators(ctx, table, records); err != nil {
		return nil, err
	}
	return records, nil
}

// snapshotRow is an indicator record as stored in a SQLite snapshot.
type snapshotRow struct {
	Region       string   `db:"country_code"`
	Year         int      `db:"year"`
	GDP          *float64 `db:"gdp_eur_millions"`
	GDPPerCapita *float64 `db:"gdp_per_capita"`
	HICP         *float64 `db:"avg_hicp_index"`
	Population   *int64   `db:"population"`
}

// WriteSnapshot replaces table in a SQLite database with records, giving
// the dashboard's sqlite driver a file it can read without Postgres.
func WriteSnapshot(ctx context.Context, db *sqlx.DB, table string, records []core.IndicatorRecord) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	q := ident(table)
	stmts := []string{
		"DROP TABLE IF EXISTS " + q,
		`CREATE TABLE ` + q + ` (
			country_code TEXT NOT NULL,
			year INTEGER NOT NULL,
			gdp_eur_millions REAL,
			gdp_per_capita REAL,
			avg_hicp_index REAL,
			population INTEGER,
			PRIMARY KEY (country_code, year))`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("prepare snapshot: %w", err)
		}
	}

	insert := `INSERT INTO ` + q + ` (country_code, year, gdp_eur_millions, gdp_per_capita, avg_hicp_index, population)
		VALUES (:country_code, :year, :gdp_eur_millions, :gdp_per_capita, :avg_hicp_index, :population)`
	for _, r := range records {
		row := snapshotRow{r.Region, r.Year, r.GDP, r.GDPPerCapita, r.HICP, r.Population}
		if _, err := tx.NamedExecContext(ctx, insert, row); err != nil {
			return fmt.Errorf("insert snapshot %s/%d: %w", r.Region, r.Year, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	logging.FromContext(ctx).Info("sqlite snapshot written", "table", table, "rows", len(records))
	return nil
}
