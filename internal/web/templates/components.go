// Package templates holds the HTML components of the dashboard.
//
// Components are templ.Component values; handlers compose a page from a
// Layout and a list of sections.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// html accumulates writes and keeps the first error.
type html struct {
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) rawf(format string, args ...any) {
	if h.err == nil {
		_, h.err = fmt.Fprintf(h.w, format, args...)
	}
}

func (h *html) render(ctx context.Context, c templ.Component) {
	if h.err == nil && c != nil {
		h.err = c.Render(ctx, h.w)
	}
}

func component(fn func(ctx context.Context, h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{w: w}
		fn(ctx, h)
		return h.err
	})
}

// ErrorAlert renders a user-facing error with its support code.
func ErrorAlert(message, action, code string) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<div class="alert alert-error" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(` <span>`)
			h.text(action)
			h.raw(`</span>`)
		}
		if code != "" {
			h.raw(` <code>`)
			h.text(code)
			h.raw(`</code>`)
		}
		h.raw(`</div>`)
	})
}

// Level of a notice.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
)

// Notice renders an informational or warning message.
func Notice(level, message string) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<div class="alert alert-`)
		h.text(level)
		h.raw(`">`)
		h.text(message)
		h.raw(`</div>`)
	})
}

// Card is one headline figure.
type Card struct {
	Label string
	Value string
}

// Cards renders a row of headline figures.
func Cards(cards []Card) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<div class="cards">`)
		for _, c := range cards {
			h.raw(`<div class="card"><div class="card-label">`)
			h.text(c.Label)
			h.raw(`</div><div class="card-value">`)
			h.text(c.Value)
			h.raw(`</div></div>`)
		}
		h.raw(`</div>`)
	})
}

// DataTable renders a plain table.
func DataTable(headers []string, rows [][]string) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<div class="table-wrap"><table><thead><tr>`)
		for _, col := range headers {
			h.raw(`<th>`)
			h.text(col)
			h.raw(`</th>`)
		}
		h.raw(`</tr></thead><tbody>`)
		for _, row := range rows {
			h.raw(`<tr>`)
			for _, cell := range row {
				h.raw(`<td>`)
				h.text(cell)
				h.raw(`</td>`)
			}
			h.raw(`</tr>`)
		}
		h.raw(`</tbody></table></div>`)
	})
}

// Chart embeds a rendered SVG chart.
func Chart(src, alt string) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<figure class="chart"><img src="`)
		h.text(src)
		h.raw(`" alt="`)
		h.text(alt)
		h.raw(`" loading="lazy"></figure>`)
	})
}

// Section groups components under a heading.
func Section(title string, children ...templ.Component) templ.Component {
	return component(func(ctx context.Context, h *html) {
		h.raw(`<section><h2>`)
		h.text(title)
		h.raw(`</h2>`)
		for _, c := range children {
			h.render(ctx, c)
		}
		h.raw(`</section>`)
	})
}
