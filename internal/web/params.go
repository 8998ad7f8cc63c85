package web

// params.go parses query parameters shared by pages, charts and exports.

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/JonMunkholm/eurometrics/internal/core"
	"github.com/JonMunkholm/eurometrics/internal/web/templates"
)

// Default metric selection of the comparative page.
var defaultComparativeMetrics = []core.Metric{core.MetricGDPPerCapita, core.MetricHICP}

func metricUnavailable(name string) error {
	return fmt.Errorf("%w: %s", core.ErrMetricUnavailable, name)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseMetrics reads repeated metric parameters. Unknown names are returned
// separately so the page can warn about them. When the parameter is absent,
// defaults are used; an explicitly empty list stays empty.
func parseMetrics(r *http.Request, name string, defaults []core.Metric) (metrics []core.Metric, unknown []string) {
	q := r.URL.Query()
	values, present := q[name]
	if !present {
		return append([]core.Metric(nil), defaults...), nil
	}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		m, err := core.ParseMetric(v)
		if err != nil {
			unknown = append(unknown, v)
			continue
		}
		metrics = append(metrics, m)
	}
	return metrics, unknown
}

// parseMetric reads a single metric parameter with a default.
func parseMetric(r *http.Request, name string, def core.Metric) (core.Metric, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return core.ParseMetric(v)
}

// parseFrameOptions reads the explorer's column selection and sort.
// Parameters: columns (repeated), sort, order=asc|desc.
func parseFrameOptions(r *http.Request) core.FrameOptions {
	q := r.URL.Query()
	var cols []string
	for _, c := range q["columns"] {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return core.FrameOptions{
		Columns: cols,
		SortBy:  strings.TrimSpace(q.Get("sort")),
		Desc:    strings.EqualFold(q.Get("order"), "desc"),
	}
}

// frameQuery encodes options back into query parameters.
func frameQuery(opts core.FrameOptions) url.Values {
	q := url.Values{}
	for _, c := range opts.Columns {
		q.Add("columns", c)
	}
	if opts.SortBy != "" {
		q.Set("sort", opts.SortBy)
		if opts.Desc {
			q.Set("order", "desc")
		} else {
			q.Set("order", "asc")
		}
	}
	return q
}

// chartURL builds the src of a chart image.
func chartURL(kind string, q url.Values) string {
	u := "/charts/" + kind + ".svg"
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

// metricOptions lists the metrics present in view, marking the chosen ones.
func metricOptions(view *core.Table, chosen []core.Metric) []templates.Option {
	selected := make(map[core.Metric]bool, len(chosen))
	for _, m := range chosen {
		selected[m] = true
	}
	var opts []templates.Option
	for _, m := range view.Metrics {
		opts = append(opts, templates.Option{Value: string(m), Label: m.Label(), Selected: selected[m]})
	}
	return opts
}

// columnOptions lists columns, marking the chosen ones.
func columnOptions(cols, chosen []string) []templates.Option {
	selected := make(map[string]bool, len(chosen))
	for _, c := range chosen {
		selected[c] = true
	}
	opts := make([]templates.Option, len(cols))
	for i, c := range cols {
		opts[i] = templates.Option{Value: c, Label: c, Selected: selected[c]}
	}
	return opts
}

// safePage maps a form's page field to a local path; anything unknown goes
// to the overview.
func safePage(page string) string {
	return templates.PagePath(page)
}
