package templates

import (
	"context"

	"github.com/a-h/templ"
)

// Field is one input of a GET control form. A field with Options renders
// as a select; otherwise as a text input holding Value.
type Field struct {
	Name     string
	Label    string
	Multiple bool
	Options  []Option
	Value    string
}

// Controls renders a GET form that reloads action with the chosen inputs.
func Controls(action string, fields []Field) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<form class="controls" method="get" action="`)
		h.text(action)
		h.raw(`">`)
		for _, f := range fields {
			h.raw(`<label>`)
			h.text(f.Label)
			h.raw(` `)
			if f.Options == nil {
				h.raw(`<input type="text" name="`)
				h.text(f.Name)
				h.raw(`" value="`)
				h.text(f.Value)
				h.raw(`">`)
			} else {
				h.raw(`<select name="`)
				h.text(f.Name)
				h.raw(`"`)
				if f.Multiple {
					h.raw(` multiple`)
				}
				h.raw(`>`)
				for _, o := range f.Options {
					h.raw(`<option value="`)
					h.text(o.Value)
					h.raw(`"`)
					if o.Selected {
						h.raw(` selected`)
					}
					h.raw(`>`)
					h.text(o.Label)
					h.raw(`</option>`)
				}
				h.raw(`</select>`)
			}
			h.raw(`</label> `)
		}
		h.raw(`<button type="submit">Update</button></form>`)
	})
}

// Link is a labelled href.
type Link struct {
	Href  string
	Label string
}

// Links renders a row of links, used for downloads.
func Links(links []Link) templ.Component {
	return component(func(_ context.Context, h *html) {
		h.raw(`<p class="links">`)
		for i, l := range links {
			if i > 0 {
				h.raw(` | `)
			}
			h.raw(`<a href="`)
			h.text(l.Href)
			h.raw(`">`)
			h.text(l.Label)
			h.raw(`</a>`)
		}
		h.raw(`</p>`)
	})
}
