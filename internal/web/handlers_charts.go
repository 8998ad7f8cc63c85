package web

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/eurometrics/internal/charts"
	"github.com/JonMunkholm/eurometrics/internal/core"
)

var errUnknownChart = errors.New("unknown chart kind")

// chartFunc draws one chart kind. Most kinds read the filtered view; data
// quality charts read the unfiltered base.
type chartFunc func(buf *bytes.Buffer, r *http.Request, base, view *core.Table) error

var chartKinds = map[string]chartFunc{
	"line":    lineChart,
	"bar":     barChart,
	"hist":    histChart,
	"box":     boxChart,
	"scatter": scatterChart,
	"missing": missingChart,
	"heatmap": heatmapChart,
}

// handleChart renders /charts/{kind}.svg for the session's current view.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	draw, ok := chartKinds[chi.URLParam(r, "kind")]
	if !ok {
		s.respondError(w, r, errUnknownChart, http.StatusNotFound)
		return
	}

	st, err := sessionFrom(r.Context()).State(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	var buf bytes.Buffer
	if err := draw(&buf, r, st.Base, st.View); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

func axisLabel(m core.Metric) string {
	info, ok := core.LookupMetric(m)
	if !ok || info.Unit == "" {
		return m.Label()
	}
	return info.Label + " (" + info.Unit + ")"
}

func lineChart(buf *bytes.Buffer, r *http.Request, _, view *core.Table) error {
	m, err := parseMetric(r, "metric", core.MetricGDP)
	if err != nil {
		return err
	}
	series, err := core.BuildTimeSeries(view, m)
	if err != nil {
		return err
	}
	return charts.Lines(buf, m.Label()+" over Time", axisLabel(m), series)
}

// barChart draws the latest-year value per region, or yearly means when
// by=year or no region column exists.
func barChart(buf *bytes.Buffer, r *http.Request, _, view *core.Table) error {
	m, err := parseMetric(r, "metric", core.MetricGDP)
	if err != nil {
		return err
	}
	if err := requireViewMetric(view, m); err != nil {
		return err
	}

	if r.URL.Query().Get("by") == "year" || !view.HasRegion() {
		points := core.YearlyMeans(view, m)
		labels := make([]string, len(points))
		values := make([]float64, len(points))
		for i, p := range points {
			labels[i], values[i] = strconv.Itoa(p.Year), p.Value
		}
		return charts.Bars(buf, "Average "+m.Label()+" by Year", axisLabel(m), labels, values)
	}

	ranking, err := core.RankRegions(view, m)
	if err != nil {
		return err
	}
	labels := make([]string, len(ranking))
	values := make([]float64, len(ranking))
	for i, e := range ranking {
		labels[i], values[i] = e.Region, e.Value
	}
	year, _ := core.LatestYear(view)
	return charts.Bars(buf, m.Label()+" by Region ("+strconv.Itoa(year)+")", axisLabel(m), labels, values)
}

func histChart(buf *bytes.Buffer, r *http.Request, _, view *core.Table) error {
	m, err := parseMetric(r, "metric", core.MetricGDP)
	if err != nil {
		return err
	}
	if err := requireViewMetric(view, m); err != nil {
		return err
	}
	bins := parseIntParam(r, "bins", charts.ExplorerBins)
	return charts.Histogram(buf, "Distribution of "+m.Label(), axisLabel(m), core.Values(view, m), bins)
}

func boxChart(buf *bytes.Buffer, r *http.Request, _, view *core.Table) error {
	m, err := parseMetric(r, "metric", core.MetricHICP)
	if err != nil {
		return err
	}
	if err := requireViewMetric(view, m); err != nil {
		return err
	}
	if !view.HasRegion() {
		return core.ErrNoRegionColumn
	}
	return charts.BoxPlots(buf, m.Label()+" by Region", axisLabel(m), core.GroupByRegion(view, m))
}

func scatterChart(buf *bytes.Buffer, r *http.Request, _, view *core.Table) error {
	x, err := parseMetric(r, "x", core.MetricGDPPerCapita)
	if err != nil {
		return err
	}
	y, err := parseMetric(r, "y", core.MetricHICP)
	if err != nil {
		return err
	}
	points, err := core.Scatter(view, x, y)
	if err != nil {
		return err
	}
	return charts.Scatter(buf, x.Label()+" vs "+y.Label(), axisLabel(x), axisLabel(y), points)
}

func missingChart(buf *bytes.Buffer, _ *http.Request, base, _ *core.Table) error {
	missing := core.MissingData(base)
	labels := make([]string, len(missing))
	values := make([]float64, len(missing))
	for i, mc := range missing {
		labels[i], values[i] = mc.Column, mc.Percent
	}
	return charts.Bars(buf, "Missing Values", "Percent missing", labels, values)
}

func heatmapChart(buf *bytes.Buffer, r *http.Request, _, view *core.Table) error {
	m, err := parseMetric(r, "metric", core.MetricHICP)
	if err != nil {
		return err
	}
	h, err := core.BuildHeatmap(view, m)
	if err != nil {
		return err
	}
	return charts.Heatmap(buf, "Average "+m.Label()+" by Region and Year", h)
}

// requireViewMetric reports a metric the view's source does not carry.
func requireViewMetric(view *core.Table, m core.Metric) error {
	if !view.HasMetric(m) {
		return metricUnavailable(string(m))
	}
	return nil
}
