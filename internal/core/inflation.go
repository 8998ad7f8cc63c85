package core

import (
	"math"
	"sort"
)

// InflationSummary holds HICP headline figures over a view.
type InflationSummary struct {
	Mean  float64 `json:"mean"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
	Range float64 `json:"range"`
}

// SummarizeInflation computes mean, max, min and range of the HICP index.
func SummarizeInflation(view *Table) (InflationSummary, error) {
	if err := requireMetric(view, MetricHICP); err != nil {
		return InflationSummary{}, err
	}
	values := Values(view, MetricHICP)
	if len(values) == 0 {
		return InflationSummary{}, ErrEmptySelection
	}

	s := InflationSummary{Min: values[0], Max: values[0]}
	var sum float64
	for _, v := range values {
		sum += v
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}
	s.Mean = sum / float64(len(values))
	s.Range = s.Max - s.Min
	return s, nil
}

// Group is the non-null values of a metric for one region.
type Group struct {
	Region string
	Values []float64
}

// GroupByRegion splits the metric's values by region in first-appearance
// order. Regions without values are omitted.
func GroupByRegion(view *Table, m Metric) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, r := range view.Records {
		v, ok := r.Value(m)
		if !ok {
			continue
		}
		i, seen := index[r.Region]
		if !seen {
			i = len(groups)
			index[r.Region] = i
			groups = append(groups, Group{Region: r.Region})
		}
		groups[i].Values = append(groups[i].Values, v)
	}
	return groups
}

// Heatmap is a region by year grid of mean values. A nil cell has no data.
type Heatmap struct {
	Regions []string     `json:"regions"`
	Years   []int        `json:"years"`
	Values  [][]*float64 `json:"values"` // [region][year]
}

// BuildHeatmap averages m per region and year.
func BuildHeatmap(view *Table, m Metric) (Heatmap, error) {
	if err := requireMetric(view, m); err != nil {
		return Heatmap{}, err
	}
	if !view.HasRegion() {
		return Heatmap{}, ErrNoRegionColumn
	}

	h := Heatmap{Regions: view.Regions(), Years: view.Years()}
	regionIdx := indexOf(h.Regions)
	yearIdx := make(map[int]int, len(h.Years))
	for i, y := range h.Years {
		yearIdx[y] = i
	}

	cells := make([][]aggregate, len(h.Regions))
	for i := range cells {
		cells[i] = make([]aggregate, len(h.Years))
	}
	for _, r := range view.Records {
		cells[regionIdx[r.Region]][yearIdx[r.Year]].add(r.Value(m))
	}

	h.Values = make([][]*float64, len(cells))
	for i, row := range cells {
		h.Values[i] = make([]*float64, len(row))
		for j, a := range row {
			h.Values[i][j] = a.mean()
		}
	}
	return h, nil
}

func indexOf(values []string) map[string]int {
	idx := make(map[string]int, len(values))
	for i, v := range values {
		idx[v] = i
	}
	return idx
}

// InflationRow is one line of the HICP statistics table.
type InflationRow struct {
	Region string  `json:"region,omitempty"`
	Year   int     `json:"year"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// InflationTable groups HICP by region and year (or by year alone when no
// region column exists), rounding every figure to two decimals. Rows are
// ordered by region, then year.
func InflationTable(view *Table) ([]InflationRow, error) {
	if err := requireMetric(view, MetricHICP); err != nil {
		return nil, err
	}

	type key struct {
		region string
		year   int
	}
	type acc struct {
		sum, min, max float64
		n             int
	}

	groups := make(map[key]*acc)
	byRegion := view.HasRegion()
	for _, r := range view.Records {
		v, ok := r.Value(MetricHICP)
		if !ok {
			continue
		}
		k := key{year: r.Year}
		if byRegion {
			k.region = r.Region
		}
		a := groups[k]
		if a == nil {
			a = &acc{min: v, max: v}
			groups[k] = a
		}
		a.sum += v
		a.n++
		a.min = math.Min(a.min, v)
		a.max = math.Max(a.max, v)
	}

	rows := make([]InflationRow, 0, len(groups))
	for k, a := range groups {
		rows = append(rows, InflationRow{
			Region: k.region,
			Year:   k.year,
			Mean:   Round(a.sum/float64(a.n), 2),
			Min:    Round(a.min, 2),
			Max:    Round(a.max, 2),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Region != rows[j].Region {
			return rows[i].Region < rows[j].Region
		}
		return rows[i].Year < rows[j].Year
	})
	return rows, nil
}

// Round rounds v to the given number of decimals, halves away from zero.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
