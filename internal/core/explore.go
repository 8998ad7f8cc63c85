package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultExplorerColumns is the number of columns shown before the user
// picks any.
const DefaultExplorerColumns = 5

// Overview summarizes the base table and the current view.
type Overview struct {
	TotalRows    int `json:"total_rows"`
	FilteredRows int `json:"filtered_rows"`
	Columns      int `json:"columns"`
	YearsCovered int `json:"years_covered"`
}

// Summarize returns the dataset overview for a view of base. Only the
// filtered row count depends on view. Columns counts ignored ones too.
func Summarize(base, view *Table) Overview {
	o := Overview{
		TotalRows:    base.Len(),
		FilteredRows: view.Len(),
		Columns:      len(base.Columns) + len(base.Ignored),
	}
	if span, ok := base.YearDomain(); ok {
		o.YearsCovered = span.Span()
	}
	return o
}

// ColumnInfo describes one kept column of a view.
type ColumnInfo struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NonNull int    `json:"non_null"`
	Null    int    `json:"null"`
}

// ColumnInfos returns type and null counts for every kept column.
func ColumnInfos(view *Table) []ColumnInfo {
	infos := make([]ColumnInfo, 0, len(view.Columns))
	for _, col := range view.Columns {
		kind, _ := view.Kind(col)
		info := ColumnInfo{Name: col, Type: kind.String()}
		for _, r := range view.Records {
			if view.Cell(r, col).Null {
				info.Null++
			} else {
				info.NonNull++
			}
		}
		infos = append(infos, info)
	}
	return infos
}

// Completeness returns the percentage of non-null cells in the view.
func Completeness(view *Table) float64 {
	var total, filled int
	for _, info := range ColumnInfos(view) {
		total += info.NonNull + info.Null
		filled += info.NonNull
	}
	if total == 0 {
		return 0
	}
	return float64(filled) / float64(total) * 100
}

// MissingColumn reports the NULL count of a column that has any.
type MissingColumn struct {
	Column  string  `json:"column"`
	Missing int     `json:"missing"`
	Percent float64 `json:"percent"`
}

// MissingData lists columns with NULL values, most missing first.
func MissingData(view *Table) []MissingColumn {
	var out []MissingColumn
	for _, info := range ColumnInfos(view) {
		if info.Null == 0 {
			continue
		}
		out = append(out, MissingColumn{
			Column:  info.Name,
			Missing: info.Null,
			Percent: float64(info.Null) / float64(view.Len()) * 100,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Missing > out[j].Missing })
	return out
}

// NumericColumns returns the metric columns of the view, excluding year.
func NumericColumns(view *Table) []string {
	cols := make([]string, 0, len(view.Metrics))
	for _, m := range view.Metrics {
		cols = append(cols, string(m))
	}
	return cols
}

// Frame is a column-selected, ordered projection of a view.
type Frame struct {
	Columns []string `json:"columns"`
	Rows    [][]Cell `json:"-"`
}

// Len returns the number of rows.
func (f Frame) Len() int {
	return len(f.Rows)
}

// Strings returns the rows formatted as export strings.
func (f Frame) Strings() [][]string {
	out := make([][]string, len(f.Rows))
	for i, row := range f.Rows {
		out[i] = make([]string, len(row))
		for j, c := range row {
			out[i][j] = c.String()
		}
	}
	return out
}

// FrameOptions controls column selection and ordering of a projection.
type FrameOptions struct {
	Columns []string // empty selects the first DefaultExplorerColumns
	SortBy  string   // any kept column; empty keeps view order
	Desc    bool
}

// Project selects and sorts the view's columns. The sort is stable and
// places NULLs last in either direction; it may use a column that is not
// selected.
func Project(view *Table, opts FrameOptions) (Frame, error) {
	cols := opts.Columns
	if len(cols) == 0 {
		n := min(DefaultExplorerColumns, len(view.Columns))
		cols = view.Columns[:n]
	}
	for _, col := range cols {
		if _, ok := view.Kind(col); !ok {
			return Frame{}, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
		}
	}

	records := append([]IndicatorRecord(nil), view.Records...)
	if opts.SortBy != "" {
		if _, ok := view.Kind(opts.SortBy); !ok {
			return Frame{}, fmt.Errorf("%w: %q", ErrUnknownColumn, opts.SortBy)
		}
		sort.SliceStable(records, func(i, j int) bool {
			return cellLess(view.Cell(records[i], opts.SortBy), view.Cell(records[j], opts.SortBy), opts.Desc)
		})
	}

	frame := Frame{Columns: append([]string(nil), cols...), Rows: make([][]Cell, len(records))}
	for i, r := range records {
		row := make([]Cell, len(cols))
		for j, col := range cols {
			row[j] = view.Cell(r, col)
		}
		frame.Rows[i] = row
	}
	return frame, nil
}

func cellLess(a, b Cell, desc bool) bool {
	switch {
	case a.Null || b.Null:
		return !a.Null && b.Null
	case a.Kind == KindText:
		if desc {
			return a.Text > b.Text
		}
		return a.Text < b.Text
	case desc:
		return a.Num > b.Num
	default:
		return a.Num < b.Num
	}
}

// Search returns the base records whose value in col matches term.
//
// Numeric columns require term to parse as a number and match by equality;
// text columns match a case-insensitive substring. An empty term matches
// every record.
func Search(base *Table, col, term string) (*Table, error) {
	kind, ok := base.Kind(col)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return base, nil
	}

	var match func(Cell) bool
	if kind.Numeric() {
		want, err := strconv.ParseFloat(term, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidSearch, term)
		}
		match = func(c Cell) bool { return !c.Null && c.Num == want }
	} else {
		needle := strings.ToLower(term)
		match = func(c Cell) bool { return !c.Null && strings.Contains(strings.ToLower(c.Text), needle) }
	}

	var records []IndicatorRecord
	for _, r := range base.Records {
		if match(base.Cell(r, col)) {
			records = append(records, r)
		}
	}
	return base.withRecords(records), nil
}
