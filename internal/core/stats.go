package core

import (
	"fmt"
	"math"
	"slices"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

// Description holds descriptive statistics of one metric over the non-null
// values of a view. Std is the sample standard deviation and is nil when
// fewer than two values exist; the other fields are nil when Count is zero.
type Description struct {
	Metric Metric   `json:"metric"`
	Count  int      `json:"count"`
	Mean   *float64 `json:"mean"`
	Std    *float64 `json:"std"`
	Min    *float64 `json:"min"`
	Q1     *float64 `json:"p25"`
	Median *float64 `json:"p50"`
	Q3     *float64 `json:"p75"`
	Max    *float64 `json:"max"`
}

// Values returns the non-null values of m in view order.
func Values(view *Table, m Metric) []float64 {
	var out []float64
	for _, r := range view.Records {
		if v, ok := r.Value(m); ok {
			out = append(out, v)
		}
	}
	return out
}

// Describe computes descriptive statistics for each requested metric.
// Metrics that are unknown or absent from the view are skipped and returned
// separately.
func Describe(view *Table, ms []Metric) (descs []Description, skipped []Metric) {
	for _, m := range ms {
		if err := requireMetric(view, m); err != nil {
			skipped = append(skipped, m)
			continue
		}
		descs = append(descs, describe(m, Values(view, m)))
	}
	return descs, skipped
}

func describe(m Metric, values []float64) Description {
	d := Description{Metric: m, Count: len(values)}
	if d.Count == 0 {
		return d
	}

	data := stats.Float64Data(values)
	d.Mean = statPtr(stats.Mean(data))
	d.Min = statPtr(stats.Min(data))
	d.Max = statPtr(stats.Max(data))
	d.Median = statPtr(stats.Median(data))
	if d.Count > 1 {
		d.Std = statPtr(stats.StandardDeviationSample(data))
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	d.Q1 = ptr(quantile(sorted, 0.25))
	d.Q3 = ptr(quantile(sorted, 0.75))
	return d
}

// quantile returns the p-quantile of sorted values by linear interpolation
// between the closest ranks at position (n-1)*p.
func quantile(sorted []float64, p float64) float64 {
	pos := float64(len(sorted)-1) * p
	lo := int(math.Floor(pos))
	if lo+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func statPtr(v float64, err error) *float64 {
	if err != nil || math.IsNaN(v) {
		return nil
	}
	return &v
}

func ptr(v float64) *float64 {
	return &v
}

// CorrelationMatrix holds pairwise Pearson coefficients.
// Values[i][j] is nil when fewer than two complete pairs exist or a column
// has no variance.
type CorrelationMatrix struct {
	Metrics []Metric     `json:"metrics"`
	Values  [][]*float64 `json:"values"`
}

// Correlate computes the Pearson correlation of every metric pair, using only
// records where both values are non-null. Unknown metrics are skipped; at
// least two usable metrics are required.
func Correlate(view *Table, ms []Metric) (CorrelationMatrix, error) {
	var usable []Metric
	for _, m := range ms {
		if requireMetric(view, m) == nil {
			usable = append(usable, m)
		}
	}
	if len(usable) < 2 {
		return CorrelationMatrix{}, fmt.Errorf("%w: correlation needs at least two metrics", ErrMetricUnavailable)
	}
	if view.Empty() {
		return CorrelationMatrix{}, ErrEmptySelection
	}

	n := len(usable)
	matrix := CorrelationMatrix{Metrics: usable, Values: make([][]*float64, n)}
	for i := range matrix.Values {
		matrix.Values[i] = make([]*float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			c := pearson(view, usable[i], usable[j])
			if i == j && c != nil {
				c = ptr(1)
			}
			matrix.Values[i][j] = c
			matrix.Values[j][i] = c
		}
	}
	return matrix, nil
}

func pearson(view *Table, a, b Metric) *float64 {
	var xs, ys []float64
	for _, r := range view.Records {
		x, okX := r.Value(a)
		y, okY := r.Value(b)
		if okX && okY {
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	if len(xs) < 2 {
		return nil
	}
	c := stat.Correlation(xs, ys, nil)
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return nil
	}
	return &c
}
