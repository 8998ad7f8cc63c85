package core

import (
	"fmt"
	"sort"
)

// Snapshot summarizes the latest year of a view.
// A nil field means no non-null value was available.
type Snapshot struct {
	Year       int      `json:"year"`
	Regions    int      `json:"regions"`
	GDP        *float64 `json:"gdp_eur_millions"`
	Population *float64 `json:"population"`
	HICP       *float64 `json:"avg_hicp_index"`
}

// LatestYear returns the largest year in the view.
func LatestYear(view *Table) (int, bool) {
	if view.Empty() {
		return 0, false
	}
	latest := view.Records[0].Year
	for _, r := range view.Records[1:] {
		if r.Year > latest {
			latest = r.Year
		}
	}
	return latest, true
}

// LatestSnapshot sums GDP and population and averages HICP over the view's
// latest year, skipping NULLs.
func LatestSnapshot(view *Table) (Snapshot, error) {
	year, ok := LatestYear(view)
	if !ok {
		return Snapshot{}, ErrEmptySelection
	}

	var gdp, pop, hicp aggregate
	regions := make(map[string]bool)
	for _, r := range view.Records {
		if r.Year != year {
			continue
		}
		regions[r.Region] = true
		gdp.add(r.Value(MetricGDP))
		pop.add(r.Value(MetricPopulation))
		hicp.add(r.Value(MetricHICP))
	}

	snap := Snapshot{Year: year, GDP: gdp.total(), Population: pop.total(), HICP: hicp.mean()}
	if view.HasRegion() {
		snap.Regions = len(regions)
	}
	return snap, nil
}

// aggregate accumulates non-null values.
type aggregate struct {
	sum float64
	n   int
}

func (a *aggregate) add(v float64, ok bool) {
	if ok {
		a.sum += v
		a.n++
	}
}

func (a aggregate) total() *float64 {
	if a.n == 0 {
		return nil
	}
	v := a.sum
	return &v
}

func (a aggregate) mean() *float64 {
	if a.n == 0 {
		return nil
	}
	v := a.sum / float64(a.n)
	return &v
}

// Point is one observation of a series.
type Point struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

// Series is a named sequence of points ordered by year.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// AllRegions names the single series built when no region column exists.
const AllRegions = "All"

func requireMetric(view *Table, m Metric) error {
	if _, ok := LookupMetric(m); !ok || !view.HasMetric(m) {
		return fmt.Errorf("%w: %s", ErrMetricUnavailable, m)
	}
	return nil
}

// BuildTimeSeries returns one raw series per region when a region column
// exists, or a single series of yearly means otherwise. NULL values are
// dropped; regions with no values produce no series.
func BuildTimeSeries(view *Table, m Metric) ([]Series, error) {
	if err := requireMetric(view, m); err != nil {
		return nil, err
	}
	if view.Empty() {
		return nil, ErrEmptySelection
	}

	if !view.HasRegion() {
		points := YearlyMeans(view, m)
		if len(points) == 0 {
			return nil, nil
		}
		return []Series{{Name: AllRegions, Points: points}}, nil
	}

	index := make(map[string]int)
	var series []Series
	for _, r := range view.Records {
		v, ok := r.Value(m)
		if !ok {
			continue
		}
		i, seen := index[r.Region]
		if !seen {
			i = len(series)
			index[r.Region] = i
			series = append(series, Series{Name: r.Region})
		}
		series[i].Points = append(series[i].Points, Point{Year: r.Year, Value: v})
	}
	for i := range series {
		pts := series[i].Points
		sort.SliceStable(pts, func(a, b int) bool { return pts[a].Year < pts[b].Year })
	}
	return series, nil
}

// YearlyMeans averages a metric per year across the view, ascending by year.
// Years without any non-null value are omitted.
func YearlyMeans(view *Table, m Metric) []Point {
	byYear := make(map[int]*aggregate)
	for _, r := range view.Records {
		v, ok := r.Value(m)
		if !ok {
			continue
		}
		a := byYear[r.Year]
		if a == nil {
			a = &aggregate{}
			byYear[r.Year] = a
		}
		a.add(v, true)
	}

	points := make([]Point, 0, len(byYear))
	for year, a := range byYear {
		points = append(points, Point{Year: year, Value: *a.mean()})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Year < points[j].Year })
	return points
}

// RankEntry is a region's position for a metric in the latest year.
type RankEntry struct {
	Rank   int     `json:"rank"`
	Region string  `json:"region"`
	Value  float64 `json:"value"`
}

// RankRegions orders regions by their mean value of m in the view's latest
// year, highest first. Equal values share a rank and the following rank is
// skipped; tied regions keep their order of first appearance. Regions with
// only NULL values are left out.
func RankRegions(view *Table, m Metric) ([]RankEntry, error) {
	if err := requireMetric(view, m); err != nil {
		return nil, err
	}
	if !view.HasRegion() {
		return nil, ErrNoRegionColumn
	}
	year, ok := LatestYear(view)
	if !ok {
		return nil, ErrEmptySelection
	}

	index := make(map[string]int)
	var regions []string
	var sums []aggregate
	for _, r := range view.Records {
		if r.Year != year {
			continue
		}
		i, seen := index[r.Region]
		if !seen {
			i = len(regions)
			index[r.Region] = i
			regions = append(regions, r.Region)
			sums = append(sums, aggregate{})
		}
		sums[i].add(r.Value(m))
	}

	entries := make([]RankEntry, 0, len(regions))
	for i, region := range regions {
		if mean := sums[i].mean(); mean != nil {
			entries = append(entries, RankEntry{Region: region, Value: *mean})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Value > entries[j].Value })
	for i := range entries {
		if i > 0 && entries[i].Value == entries[i-1].Value {
			entries[i].Rank = entries[i-1].Rank
		} else {
			entries[i].Rank = i + 1
		}
	}
	return entries, nil
}

// ScatterPoint pairs two metrics of one record.
type ScatterPoint struct {
	Region string   `json:"region"`
	Year   int      `json:"year"`
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	Size   *float64 `json:"size,omitempty"` // population, when available
}

// Scatter returns every record where both x and y are non-null.
func Scatter(view *Table, x, y Metric) ([]ScatterPoint, error) {
	for _, m := range []Metric{x, y} {
		if err := requireMetric(view, m); err != nil {
			return nil, err
		}
	}

	var points []ScatterPoint
	for _, r := range view.Records {
		xv, okX := r.Value(x)
		yv, okY := r.Value(y)
		if !okX || !okY {
			continue
		}
		p := ScatterPoint{Region: r.Region, Year: r.Year, X: xv, Y: yv}
		if pop, ok := r.Value(MetricPopulation); ok {
			p.Size = &pop
		}
		points = append(points, p)
	}
	return points, nil
}
