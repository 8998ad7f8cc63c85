package templates

import (
	"context"
	"strconv"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/eurometrics/internal/core"
)

// Page identifiers used for navigation and filter redirects.
const (
	PageOverview    = "overview"
	PageComparative = "comparative"
	PageExplorer    = "explorer"
	PageInflation   = "inflation"
)

type navItem struct {
	page, path, label string
}

var nav = []navItem{
	{PageOverview, "/", "Overview"},
	{PageComparative, "/comparative", "Comparative Analysis"},
	{PageExplorer, "/explorer", "Data Explorer"},
	{PageInflation, "/inflation", "Inflation Analysis"},
}

// PagePath returns the URL path of a page, or "/" for unknown pages.
func PagePath(page string) string {
	for _, n := range nav {
		if n.page == page {
			return n.path
		}
	}
	return "/"
}

// Option is one choice of a select or checkbox group.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// SidebarParams configures the navigation and filter sidebar.
type SidebarParams struct {
	ActivePage   string
	RegionColumn string   // empty when filtering is year-only
	Regions      []Option // known regions, selection marked
	Domain       core.YearRange
	HasDomain    bool
	Years        core.YearRange // selected range
}

const styles = `
body{font-family:system-ui,sans-serif;margin:0;display:flex;color:#1f2937}
aside{width:16rem;min-height:100vh;background:#f3f4f6;padding:1rem;box-sizing:border-box}
main{flex:1;padding:1.5rem;max-width:72rem}
nav a{display:block;padding:.35rem .5rem;color:#1f2937;text-decoration:none;border-radius:.25rem}
nav a.active{background:#1d4ed8;color:#fff}
fieldset{border:1px solid #d1d5db;margin:.75rem 0;padding:.5rem}
.alert{padding:.75rem;border-radius:.25rem;margin:.75rem 0}
.alert-error{background:#fee2e2}.alert-warning{background:#fef3c7}.alert-info{background:#dbeafe}
.cards{display:flex;gap:1rem;flex-wrap:wrap}
.card{background:#f9fafb;border:1px solid #e5e7eb;padding:.75rem 1rem;border-radius:.25rem;min-width:10rem}
.card-label{font-size:.8rem;color:#6b7280}.card-value{font-size:1.4rem;font-weight:600}
.table-wrap{overflow-x:auto}table{border-collapse:collapse;margin:.5rem 0}
th,td{border:1px solid #e5e7eb;padding:.25rem .5rem;text-align:right}th{background:#f9fafb}
figure.chart{margin:.5rem 0}figure.chart img{max-width:100%}
`

// Layout renders a full page around body.
func Layout(sidebar SidebarParams, title string, body ...templ.Component) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(` | EuroMetrics</title><style>`)
		h.raw(styles)
		h.raw(`</style></head><body>`)
		h.render(ctx, Sidebar(sidebar))
		h.raw(`<main><h1>`)
		h.text(title)
		h.raw(`</h1>`)
		for _, c := range body {
			h.render(ctx, c)
		}
		h.raw(`</main></body></html>`)
	})
}

// Sidebar renders navigation, the region and year filters, and the reload
// control.
func Sidebar(p SidebarParams) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<aside><strong>EuroMetrics</strong><nav>`)
		for _, n := range nav {
			h.raw(`<a href="`)
			h.text(n.path)
			h.raw(`"`)
			if n.page == p.ActivePage {
				h.raw(` class="active"`)
			}
			h.raw(`>`)
			h.text(n.label)
			h.raw(`</a>`)
		}
		h.raw(`</nav>`)

		h.raw(`<form method="post" action="/filters">`)
		h.raw(`<input type="hidden" name="page" value="`)
		h.text(p.ActivePage)
		h.raw(`">`)
		if p.RegionColumn != "" {
			h.raw(`<fieldset><legend>`)
			h.text(p.RegionColumn)
			h.raw(`</legend>`)
			for _, o := range p.Regions {
				h.raw(`<label><input type="checkbox" name="region" value="`)
				h.text(o.Value)
				h.raw(`"`)
				if o.Selected {
					h.raw(` checked`)
				}
				h.raw(`> `)
				h.text(o.Label)
				h.raw(`</label><br>`)
			}
			h.raw(`</fieldset>`)
		}
		if p.HasDomain {
			h.raw(`<fieldset><legend>Years</legend>`)
			yearSelect(h, "year_lo", p.Domain, p.Years.Lo)
			h.raw(` to `)
			yearSelect(h, "year_hi", p.Domain, p.Years.Hi)
			h.raw(`</fieldset>`)
		}
		h.raw(`<button type="submit">Apply</button> `)
		h.raw(`<button type="submit" name="reset" value="1">Reset</button></form>`)

		h.raw(`<form method="post" action="/reload"><input type="hidden" name="page" value="`)
		h.text(p.ActivePage)
		h.raw(`"><button type="submit">Reload data</button></form></aside>`)
	})
}

func yearSelect(h *html, name string, domain core.YearRange, selected int) {
	h.raw(`<select name="`)
	h.text(name)
	h.raw(`">`)
	for y := domain.Lo; y <= domain.Hi; y++ {
		v := strconv.Itoa(y)
		h.raw(`<option value="`)
		h.raw(v)
		h.raw(`"`)
		if y == selected {
			h.raw(` selected`)
		}
		h.raw(`>`)
		h.raw(v)
		h.raw(`</option>`)
	}
	h.raw(`</select>`)
}
