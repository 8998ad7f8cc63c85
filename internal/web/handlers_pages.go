package web

// handlers_pages.go renders the four dashboard pages. Each page derives its
// sections from the session's filtered view; a failing section renders an
// alert and the rest of the page still renders.

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/eurometrics/internal/charts"
	"github.com/JonMunkholm/eurometrics/internal/core"
	"github.com/JonMunkholm/eurometrics/internal/logging"
	"github.com/JonMunkholm/eurometrics/internal/session"
	"github.com/JonMunkholm/eurometrics/internal/web/templates"
)

// Comparative page modes.
const (
	modeByRegion    = "region"
	modeByYear      = "year"
	modeCorrelation = "correlation"
)

// DefaultStatsColumns is how many numeric columns the explorer summarizes
// before the user picks any.
const DefaultStatsColumns = 3

const notAvailable = "n/a"

// render writes a component with the given status.
func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "error", err)
	}
}

func sidebarFor(page string, st session.State) templates.SidebarParams {
	p := templates.SidebarParams{
		ActivePage: page,
		Domain:     st.Domain,
		HasDomain:  st.HasDomain,
		Years:      st.Selection.Years,
	}
	if st.Base != nil && st.Base.HasRegion() {
		p.RegionColumn = st.Base.RegionColumn
		for _, code := range st.Regions {
			p.Regions = append(p.Regions, templates.Option{Value: code, Label: code, Selected: st.Selected(code)})
		}
	}
	return p
}

// pageState loads the session state for a page. When the page cannot render
// any section (load failure, no data, empty selection) it writes the halted
// page and returns false.
func (s *Server) pageState(w http.ResponseWriter, r *http.Request, page, title string) (session.State, templates.SidebarParams, bool) {
	st, err := sessionFrom(r.Context()).State(r.Context())
	sidebar := sidebarFor(page, st)
	switch {
	case err != nil:
		render(w, r, statusFor(err), templates.Layout(sidebar, title, s.alert(r, err)))
		return st, sidebar, false
	case st.Base.Empty():
		render(w, r, http.StatusOK, templates.Layout(sidebar, title,
			templates.Notice(templates.LevelWarning, "No data available.")))
		return st, sidebar, false
	case st.View.Empty():
		render(w, r, http.StatusOK, templates.Layout(sidebar, title, s.alert(r, core.ErrEmptySelection)))
		return st, sidebar, false
	}
	return st, sidebar, true
}

// regionNotice explains aggregate-only mode when no region column exists.
func regionNotice(view *core.Table) templ.Component {
	if view.HasRegion() {
		return nil
	}
	msg := core.MapError(core.ErrNoRegionColumn)
	return templates.Notice(templates.LevelInfo, msg.Message+". "+msg.Action+".")
}

func formatMetric(m core.Metric, v *float64) string {
	if v == nil {
		return notAvailable
	}
	if info, ok := core.LookupMetric(m); ok {
		return info.Format(*v)
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatPtr(v *float64) string {
	if v == nil {
		return notAvailable
	}
	return formatFloat(*v)
}

func metricQuery(m core.Metric) url.Values {
	return url.Values{"metric": {string(m)}}
}

// handleOverview renders the latest-year snapshot and GDP series.
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	const title = "Economic Overview"
	st, sidebar, ok := s.pageState(w, r, templates.PageOverview, title)
	if !ok {
		return
	}
	view := st.View

	body := []templ.Component{regionNotice(view)}

	snap, err := core.LatestSnapshot(view)
	if err != nil {
		body = append(body, s.alert(r, err))
	} else {
		cards := []templates.Card{
			{Label: "Latest Year", Value: strconv.Itoa(snap.Year)},
			{Label: "Total GDP (EUR millions)", Value: formatMetric(core.MetricGDP, snap.GDP)},
			{Label: "Population", Value: formatMetric(core.MetricPopulation, snap.Population)},
			{Label: "Average HICP", Value: formatMetric(core.MetricHICP, snap.HICP)},
		}
		if view.HasRegion() {
			cards = append(cards, templates.Card{Label: "Regions", Value: strconv.Itoa(snap.Regions)})
		}
		body = append(body, templates.Section(fmt.Sprintf("Snapshot %d", snap.Year), templates.Cards(cards)))
	}

	for _, m := range []core.Metric{core.MetricGDP, core.MetricGDPPerCapita} {
		if !view.HasMetric(m) {
			body = append(body, s.alert(r, metricUnavailable(string(m))))
			continue
		}
		body = append(body, templates.Section(m.Label()+" Trend",
			templates.Chart(chartURL("line", metricQuery(m)), m.Label()+" by year")))
	}

	render(w, r, http.StatusOK, templates.Layout(sidebar, title, body...))
}

// handleComparative renders the by-region, by-year and correlation modes.
func (s *Server) handleComparative(w http.ResponseWriter, r *http.Request) {
	const title = "Comparative Analysis"
	st, sidebar, ok := s.pageState(w, r, templates.PageComparative, title)
	if !ok {
		return
	}
	view := st.View

	mode := r.URL.Query().Get("mode")
	switch mode {
	case modeByRegion, modeByYear, modeCorrelation:
	default:
		mode = modeByRegion
	}
	metrics, unknown := parseMetrics(r, "metric", defaultComparativeMetrics)

	body := []templ.Component{
		regionNotice(view),
		templates.Controls("/comparative", []templates.Field{
			{Name: "mode", Label: "Mode", Options: []templates.Option{
				{Value: modeByRegion, Label: "By region", Selected: mode == modeByRegion},
				{Value: modeByYear, Label: "By year", Selected: mode == modeByYear},
				{Value: modeCorrelation, Label: "Correlation", Selected: mode == modeCorrelation},
			}},
			{Name: "metric", Label: "Metrics", Multiple: true, Options: metricOptions(view, metrics)},
		}),
	}
	for _, name := range unknown {
		body = append(body, s.alert(r, metricUnavailable(name)))
	}
	if len(metrics) == 0 {
		body = append(body, templates.Notice(templates.LevelWarning, "Select at least one metric to compare."))
		render(w, r, http.StatusOK, templates.Layout(sidebar, title, body...))
		return
	}

	switch mode {
	case modeByRegion:
		body = append(body, s.comparativeByRegion(r, view, metrics)...)
	case modeByYear:
		for _, m := range metrics {
			if !view.HasMetric(m) {
				body = append(body, s.alert(r, metricUnavailable(string(m))))
				continue
			}
			body = append(body, templates.Section(m.Label()+" by Year",
				templates.Chart(chartURL("line", metricQuery(m)), m.Label()+" by year")))
		}
	case modeCorrelation:
		body = append(body, s.comparativeCorrelation(r, view, metrics)...)
	}

	body = append(body, s.statsSection(r, "Summary Statistics", view, metrics))
	render(w, r, http.StatusOK, templates.Layout(sidebar, title, body...))
}

func (s *Server) comparativeByRegion(r *http.Request, view *core.Table, metrics []core.Metric) []templ.Component {
	if !view.HasRegion() {
		return []templ.Component{s.alert(r, core.ErrNoRegionColumn)}
	}
	year, _ := core.LatestYear(view)

	var out []templ.Component
	for _, m := range metrics {
		ranking, err := core.RankRegions(view, m)
		if err != nil {
			out = append(out, s.alert(r, err))
			continue
		}
		rows := make([][]string, len(ranking))
		for i, e := range ranking {
			v := e.Value
			rows[i] = []string{strconv.Itoa(e.Rank), e.Region, formatMetric(m, &v)}
		}
		out = append(out, templates.Section(fmt.Sprintf("%s by Region (%d)", m.Label(), year),
			templates.Chart(chartURL("bar", metricQuery(m)), m.Label()+" by region"),
			templates.DataTable([]string{"Rank", "Region", m.Label()}, rows),
		))
	}
	return out
}

func (s *Server) comparativeCorrelation(r *http.Request, view *core.Table, metrics []core.Metric) []templ.Component {
	matrix, err := core.Correlate(view, metrics)
	if err != nil {
		return []templ.Component{s.alert(r, err)}
	}

	headers := []string{""}
	for _, m := range matrix.Metrics {
		headers = append(headers, m.Label())
	}
	rows := make([][]string, len(matrix.Metrics))
	for i, m := range matrix.Metrics {
		row := []string{m.Label()}
		for _, v := range matrix.Values[i] {
			row = append(row, formatPtr(v))
		}
		rows[i] = row
	}
	section := []templ.Component{templates.DataTable(headers, rows)}

	if len(matrix.Metrics) == 2 {
		x, y := matrix.Metrics[0], matrix.Metrics[1]
		q := url.Values{"x": {string(x)}, "y": {string(y)}}
		section = append(section, templates.Chart(chartURL("scatter", q), x.Label()+" against "+y.Label()))
	}
	return []templ.Component{templates.Section("Correlation Matrix", section...)}
}

// statsSection renders descriptive statistics for metrics; metrics absent
// from the view are reported and skipped.
func (s *Server) statsSection(r *http.Request, title string, view *core.Table, metrics []core.Metric) templ.Component {
	descs, skipped := core.Describe(view, metrics)
	var children []templ.Component
	for _, m := range skipped {
		children = append(children, s.alert(r, metricUnavailable(string(m))))
	}
	if len(descs) > 0 {
		rows := make([][]string, len(descs))
		for i, d := range descs {
			rows[i] = []string{
				d.Metric.Label(), strconv.Itoa(d.Count),
				formatPtr(d.Mean), formatPtr(d.Std), formatPtr(d.Min),
				formatPtr(d.Q1), formatPtr(d.Median), formatPtr(d.Q3), formatPtr(d.Max),
			}
		}
		children = append(children, templates.DataTable(
			[]string{"Metric", "count", "mean", "std", "min", "25%", "50%", "75%", "max"}, rows))
	}
	return templates.Section(title, children...)
}

// handleExplorer renders the data explorer.
func (s *Server) handleExplorer(w http.ResponseWriter, r *http.Request) {
	const title = "Data Explorer"
	st, sidebar, ok := s.pageState(w, r, templates.PageExplorer, title)
	if !ok {
		return
	}
	base, view := st.Base, st.View
	q := r.URL.Query()

	overview := core.Summarize(base, view)
	cards := []templates.Card{
		{Label: "Total Rows", Value: strconv.Itoa(overview.TotalRows)},
		{Label: "Filtered Rows", Value: strconv.Itoa(overview.FilteredRows)},
		{Label: "Columns", Value: strconv.Itoa(overview.Columns)},
		{Label: "Years Covered", Value: strconv.Itoa(overview.YearsCovered)},
		{Label: "Completeness", Value: fmt.Sprintf("%.1f%%", core.Completeness(base))},
		{Label: "Unique Years", Value: strconv.Itoa(len(base.Years()))},
	}
	if base.HasRegion() {
		cards = append(cards, templates.Card{Label: "Unique Regions", Value: strconv.Itoa(len(base.Regions()))})
	}

	// Data quality describes the loaded table, not the selection.
	var infoRows [][]string
	for _, info := range core.ColumnInfos(base) {
		infoRows = append(infoRows, []string{info.Name, info.Type, strconv.Itoa(info.NonNull), strconv.Itoa(info.Null)})
	}

	body := []templ.Component{
		regionNotice(view),
		templates.Section("Dataset Overview", templates.Cards(cards)),
		templates.Section("Column Information",
			templates.DataTable([]string{"Column", "Type", "Non-null", "Null"}, infoRows)),
	}
	if len(base.Ignored) > 0 {
		body = append(body, templates.Notice(templates.LevelInfo,
			"Columns not used by the dashboard: "+strings.Join(base.Ignored, ", ")))
	}

	opts := parseFrameOptions(r)
	numeric := core.NumericColumns(view)
	statCols := q["stats"]
	if _, present := q["stats"]; !present {
		statCols = numeric[:min(DefaultStatsColumns, len(numeric))]
	}
	shown := opts.Columns
	if len(shown) == 0 {
		shown = view.Columns[:min(core.DefaultExplorerColumns, len(view.Columns))]
	}
	searchCol := q.Get("search_col")
	if searchCol == "" && len(view.Columns) > 0 {
		searchCol = view.Columns[0]
	}

	body = append(body, templates.Controls("/explorer", []templates.Field{
		{Name: "columns", Label: "Columns", Multiple: true, Options: columnOptions(view.Columns, shown)},
		{Name: "sort", Label: "Sort by", Options: append([]templates.Option{{Value: "", Label: "(none)", Selected: opts.SortBy == ""}},
			columnOptions(view.Columns, []string{opts.SortBy})...)},
		{Name: "order", Label: "Order", Options: []templates.Option{
			{Value: "asc", Label: "Ascending", Selected: !opts.Desc},
			{Value: "desc", Label: "Descending", Selected: opts.Desc},
		}},
		{Name: "stats", Label: "Statistics for", Multiple: true, Options: columnOptions(numeric, statCols)},
		{Name: "search_col", Label: "Search in", Options: columnOptions(view.Columns, []string{searchCol})},
		{Name: "q", Label: "Search", Value: q.Get("q")},
	}))

	frame, err := core.Project(view, opts)
	if err != nil {
		body = append(body, s.alert(r, err))
	} else {
		export := frameQuery(opts).Encode()
		if export != "" {
			export = "?" + export
		}
		body = append(body, templates.Section(fmt.Sprintf("Data (%d rows)", frame.Len()),
			templates.Links([]templates.Link{
				{Href: "/export.csv" + export, Label: "Download CSV"},
				{Href: "/export.xlsx" + export, Label: "Download XLSX"},
			}),
			templates.DataTable(frame.Columns, frame.Strings()),
		))
	}

	var statMetrics []core.Metric
	for _, c := range statCols {
		if c == "" {
			continue
		}
		m, err := core.ParseMetric(c)
		if err != nil {
			body = append(body, s.alert(r, err))
			continue
		}
		statMetrics = append(statMetrics, m)
	}
	if len(statMetrics) > 0 {
		body = append(body, s.statsSection(r, "Statistical Summary", view, statMetrics))
		var hists []templ.Component
		for _, m := range statMetrics {
			if !view.HasMetric(m) {
				continue
			}
			hq := metricQuery(m)
			hq.Set("bins", strconv.Itoa(charts.ExplorerBins))
			hists = append(hists, templates.Chart(chartURL("hist", hq), "Distribution of "+m.Label()))
		}
		if len(hists) > 0 {
			body = append(body, templates.Section("Distributions", hists...))
		}
	}

	missing := core.MissingData(base)
	if len(missing) == 0 {
		body = append(body, templates.Section("Missing Data",
			templates.Notice(templates.LevelInfo, "No missing values in the dataset.")))
	} else {
		rows := make([][]string, len(missing))
		for i, mc := range missing {
			rows[i] = []string{mc.Column, strconv.Itoa(mc.Missing), fmt.Sprintf("%.1f%%", mc.Percent)}
		}
		body = append(body, templates.Section("Missing Data",
			templates.Chart(chartURL("missing", nil), "Missing values by column"),
			templates.DataTable([]string{"Column", "Missing", "Percent"}, rows),
		))
	}

	if term := strings.TrimSpace(q.Get("q")); term != "" {
		body = append(body, s.searchSection(r, base, searchCol, term))
	}

	render(w, r, http.StatusOK, templates.Layout(sidebar, title, body...))
}

// searchSection searches one column of the base table, ignoring filters.
func (s *Server) searchSection(r *http.Request, base *core.Table, col, term string) templ.Component {
	const title = "Search Results"
	found, err := core.Search(base, col, term)
	if err != nil {
		return templates.Section(title, s.alert(r, err))
	}
	frame, err := core.Project(found, core.FrameOptions{Columns: found.Columns})
	if err != nil {
		return templates.Section(title, s.alert(r, err))
	}
	if frame.Len() == 0 {
		return templates.Section(title, templates.Notice(templates.LevelInfo,
			fmt.Sprintf("No rows where %s matches %q.", col, term)))
	}
	return templates.Section(fmt.Sprintf("%s (%d rows)", title, frame.Len()),
		templates.DataTable(frame.Columns, frame.Strings()))
}

// handleInflation renders the HICP analysis.
func (s *Server) handleInflation(w http.ResponseWriter, r *http.Request) {
	const title = "Inflation Analysis"
	st, sidebar, ok := s.pageState(w, r, templates.PageInflation, title)
	if !ok {
		return
	}
	view := st.View
	hicp := core.MetricHICP

	summary, err := core.SummarizeInflation(view)
	if err != nil {
		status := http.StatusOK
		if errors.Is(err, core.ErrMetricUnavailable) {
			status = statusFor(err)
		}
		render(w, r, status, templates.Layout(sidebar, title, regionNotice(view), s.alert(r, err)))
		return
	}

	body := []templ.Component{
		regionNotice(view),
		templates.Section("HICP Summary", templates.Cards([]templates.Card{
			{Label: "Mean", Value: formatFloat(summary.Mean)},
			{Label: "Max", Value: formatFloat(summary.Max)},
			{Label: "Min", Value: formatFloat(summary.Min)},
			{Label: "Range", Value: formatFloat(summary.Range)},
		})),
		templates.Section("HICP Over Time",
			templates.Chart(chartURL("line", metricQuery(hicp)), "HICP index by year")),
	}

	if view.HasRegion() {
		body = append(body, templates.Section("HICP Distribution by Region",
			templates.Chart(chartURL("box", metricQuery(hicp)), "HICP distribution by region")))
	} else {
		hq := metricQuery(hicp)
		hq.Set("bins", strconv.Itoa(charts.InflationBins))
		body = append(body, templates.Section("HICP Distribution",
			templates.Chart(chartURL("hist", hq), "HICP distribution")))
	}

	if view.HasRegion() && len(view.Regions()) > 1 {
		body = append(body, templates.Section("HICP by Region and Year",
			templates.Chart(chartURL("heatmap", metricQuery(hicp)), "HICP heatmap")))
	} else {
		bq := metricQuery(hicp)
		bq.Set("by", "year")
		body = append(body, templates.Section("Average HICP by Year",
			templates.Chart(chartURL("bar", bq), "Average HICP by year")))
	}

	rows, err := core.InflationTable(view)
	if err != nil {
		body = append(body, s.alert(r, err))
	} else {
		headers := []string{"Year", "Mean", "Min", "Max"}
		if view.HasRegion() {
			headers = append([]string{"Region"}, headers...)
		}
		table := make([][]string, len(rows))
		for i, row := range rows {
			cells := []string{strconv.Itoa(row.Year), formatFloat(row.Mean), formatFloat(row.Min), formatFloat(row.Max)}
			if view.HasRegion() {
				cells = append([]string{row.Region}, cells...)
			}
			table[i] = cells
		}
		body = append(body, templates.Section("HICP Statistics", templates.DataTable(headers, table)))
	}

	render(w, r, http.StatusOK, templates.Layout(sidebar, title, body...))
}
