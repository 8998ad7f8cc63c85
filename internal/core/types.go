package core

import (
	"sort"
	"strconv"
	"strings"
)

// ColumnYear is the required time column of the indicator table.
const ColumnYear = "year"

// ColumnKind is the value type of a table column.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInteger
	KindFloat
)

// String returns the type name shown in the explorer's column info.
func (k ColumnKind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	default:
		return "text"
	}
}

// Numeric reports whether searches against the column compare numbers.
func (k ColumnKind) Numeric() bool {
	return k == KindInteger || k == KindFloat
}

// IndicatorRecord is one row of the indicator table.
// Nil pointers are NULLs and are skipped by every aggregate.
type IndicatorRecord struct {
	Region       string // empty when no region column was resolved
	Year         int
	GDP          *float64
	GDPPerCapita *float64
	HICP         *float64
	Population   *int64
}

// Value returns the record's value for a metric.
// Returns false if the value is NULL or the metric is unknown.
func (r IndicatorRecord) Value(m Metric) (float64, bool) {
	switch m {
	case MetricGDP:
		return floatValue(r.GDP)
	case MetricGDPPerCapita:
		return floatValue(r.GDPPerCapita)
	case MetricHICP:
		return floatValue(r.HICP)
	case MetricPopulation:
		if r.Population == nil {
			return 0, false
		}
		return float64(*r.Population), true
	}
	return 0, false
}

func floatValue(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}

// Table is an ordered set of indicator records with the schema they were read from.
//
// The table returned by a source is the session's base table; filtered views
// share its schema and hold a subset of its records. Tables are never mutated
// after construction.
type Table struct {
	// Columns lists the kept columns in declared order: the region column
	// (physical name), year, and every metric present in the source.
	Columns []string

	// Ignored lists source columns that map to no record field.
	Ignored []string

	// RegionColumn is the physical column resolved as the region role, or "".
	RegionColumn string

	// Metrics lists the metrics present in the source, in declared order.
	Metrics []Metric

	Records []IndicatorRecord
}

// NewTable builds a table from records and the physical source schema.
//
// The region role is resolved over the full schema in declared order. Year and
// known metric columns are matched case-insensitively and kept under their
// canonical names; every other column is recorded in Ignored.
func NewTable(schema []string, records []IndicatorRecord) *Table {
	t := &Table{Records: records}
	region, hasRegion := ResolveRegionColumn(schema)

	seen := make(map[string]bool)
	for _, col := range schema {
		name := strings.ToLower(col)
		switch {
		case hasRegion && col == region:
			t.RegionColumn = col
			t.Columns = append(t.Columns, col)
			continue
		case name == ColumnYear && !seen[name]:
			t.Columns = append(t.Columns, ColumnYear)
		default:
			m, ok := LookupMetric(Metric(name))
			if !ok || seen[name] {
				t.Ignored = append(t.Ignored, col)
				continue
			}
			t.Metrics = append(t.Metrics, m.Key)
			t.Columns = append(t.Columns, string(m.Key))
		}
		seen[name] = true
	}
	return t
}

// Empty reports whether the table has no records.
func (t *Table) Empty() bool {
	return t == nil || len(t.Records) == 0
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Records)
}

// HasRegion reports whether a region column was resolved.
func (t *Table) HasRegion() bool {
	return t != nil && t.RegionColumn != ""
}

// HasMetric reports whether the metric's column exists in the schema.
func (t *Table) HasMetric(m Metric) bool {
	if t == nil {
		return false
	}
	for _, have := range t.Metrics {
		if have == m {
			return true
		}
	}
	return false
}

// withRecords returns a table sharing t's schema with a different record set.
func (t *Table) withRecords(records []IndicatorRecord) *Table {
	return &Table{
		Columns:      t.Columns,
		Ignored:      t.Ignored,
		RegionColumn: t.RegionColumn,
		Metrics:      t.Metrics,
		Records:      records,
	}
}

// Regions returns distinct region codes in order of first appearance.
// Returns nil when no region column was resolved.
func (t *Table) Regions() []string {
	if !t.HasRegion() {
		return nil
	}
	seen := make(map[string]bool)
	var regions []string
	for _, r := range t.Records {
		if !seen[r.Region] {
			seen[r.Region] = true
			regions = append(regions, r.Region)
		}
	}
	return regions
}

// Years returns the distinct years in ascending order.
func (t *Table) Years() []int {
	if t.Empty() {
		return nil
	}
	seen := make(map[int]bool)
	var years []int
	for _, r := range t.Records {
		if !seen[r.Year] {
			seen[r.Year] = true
			years = append(years, r.Year)
		}
	}
	sort.Ints(years)
	return years
}

// YearDomain returns the observed closed year interval.
// Returns false for an empty table.
func (t *Table) YearDomain() (YearRange, bool) {
	years := t.Years()
	if len(years) == 0 {
		return YearRange{}, false
	}
	return YearRange{Lo: years[0], Hi: years[len(years)-1]}, true
}

// Kind returns the value type of a kept column.
func (t *Table) Kind(col string) (ColumnKind, bool) {
	switch {
	case t.HasRegion() && col == t.RegionColumn:
		return KindText, true
	case col == ColumnYear:
		return KindInteger, true
	}
	if m := Metric(col); t.HasMetric(m) {
		if info, ok := LookupMetric(m); ok && info.Integer {
			return KindInteger, true
		}
		return KindFloat, true
	}
	return KindText, false
}

// Cell is a single typed value of a record, used by the explorer and exports.
type Cell struct {
	Kind ColumnKind
	Text string
	Num  float64
	Null bool
}

// String formats the cell for export. NULL is the empty string.
// Numbers use the shortest representation that parses back to the same value.
func (c Cell) String() string {
	switch {
	case c.Null:
		return ""
	case c.Kind == KindText:
		return c.Text
	case c.Kind == KindInteger:
		return strconv.FormatInt(int64(c.Num), 10)
	default:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	}
}

// Cell returns the value of col for a record.
// Unknown columns produce a NULL text cell.
func (t *Table) Cell(r IndicatorRecord, col string) Cell {
	kind, ok := t.Kind(col)
	if !ok {
		return Cell{Kind: KindText, Null: true}
	}
	switch {
	case kind == KindText:
		return Cell{Kind: KindText, Text: r.Region}
	case col == ColumnYear:
		return Cell{Kind: KindInteger, Num: float64(r.Year)}
	}
	v, valid := r.Value(Metric(col))
	return Cell{Kind: kind, Num: v, Null: !valid}
}
