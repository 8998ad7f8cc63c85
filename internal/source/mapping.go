package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/eurometrics/internal/core"
	"github.com/JonMunkholm/eurometrics/internal/logging"
)

var errMissingYear = errors.New("missing year column")

// rowMapper maps physical rows onto indicator records.
type rowMapper struct {
	schema  []string
	year    int
	region  int // -1 when no region column
	metrics map[core.Metric]int

	droppedRows  int // rows with a NULL or non-integer year
	badValues    int // metric cells that failed numeric coercion
	firstBadCell string
}

// newRowMapper resolves column positions. A year column is required.
func newRowMapper(schema []string) (*rowMapper, error) {
	m := &rowMapper{schema: schema, year: -1, region: -1, metrics: make(map[core.Metric]int)}

	regionCol, hasRegion := core.ResolveRegionColumn(schema)
	for i, col := range schema {
		name := strings.ToLower(col)
		switch {
		case hasRegion && col == regionCol && m.region < 0:
			m.region = i
		case name == core.ColumnYear && m.year < 0:
			m.year = i
		default:
			metric := core.Metric(name)
			if _, ok := core.LookupMetric(metric); ok {
				if _, dup := m.metrics[metric]; !dup {
					m.metrics[metric] = i
				}
			}
		}
	}

	if m.year < 0 {
		return nil, errMissingYear
	}
	return m, nil
}

// mapRow converts one row. It returns false when the row has no usable year.
func (m *rowMapper) mapRow(values []any) (core.IndicatorRecord, bool) {
	year, ok := toInt(values[m.year])
	if !ok {
		m.droppedRows++
		return core.IndicatorRecord{}, false
	}

	rec := core.IndicatorRecord{Year: int(year)}
	if m.region >= 0 {
		rec.Region = toText(values[m.region])
	}
	for metric, i := range m.metrics {
		v := values[i]
		if v == nil {
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			m.badValues++
			if m.firstBadCell == "" {
				m.firstBadCell = fmt.Sprintf("%s=%v", m.schema[i], v)
			}
			continue
		}
		switch metric {
		case core.MetricGDP:
			rec.GDP = &f
		case core.MetricGDPPerCapita:
			rec.GDPPerCapita = &f
		case core.MetricHICP:
			rec.HICP = &f
		case core.MetricPopulation:
			p := int64(math.Round(f))
			rec.Population = &p
		}
	}
	return rec, true
}

// report logs ignored columns and coercion problems at warn level.
func (m *rowMapper) report(ctx context.Context, table *core.Table) {
	logger := logging.FromContext(ctx)
	if len(table.Ignored) > 0 {
		logger.Warn("source columns ignored", "columns", table.Ignored)
	}
	if !table.HasRegion() {
		logger.Warn("no region column resolved, views are aggregate-only", "schema", m.schema)
	}
	if m.droppedRows > 0 {
		logger.Warn("rows without a valid year dropped", "rows", m.droppedRows)
	}
	if m.badValues > 0 {
		logger.Warn("non-numeric metric values treated as NULL", "cells", m.badValues, "first", m.firstBadCell)
	}
}

func toText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	default:
		return fmt.Sprint(t)
	}
}

func toInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int64:
		return t, true
	case int32:
		return int64(t), true
	case int16:
		return int64(t), true
	case int:
		return int64(t), true
	case time.Time:
		return int64(t.Year()), true
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case float64:
		return t, !math.IsNaN(t)
	case float32:
		return float64(t), !math.IsNaN(float64(t))
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case int16:
		return float64(t), true
	case int:
		return float64(t), true
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return 0, false
		}
		return f.Float64, !math.IsNaN(f.Float64)
	case string:
		return parseFloat(t)
	case []byte:
		return parseFloat(string(t))
	}
	return 0, false
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}
