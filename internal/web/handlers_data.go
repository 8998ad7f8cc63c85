package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/JonMunkholm/eurometrics/internal/core"
	"github.com/JonMunkholm/eurometrics/internal/logging"
	"github.com/JonMunkholm/eurometrics/internal/session"
)

// Export content types.
const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// exportBaseName names downloaded files.
const exportBaseName = "eurometrics"

// handleFilters applies the sidebar form and redirects back to the page it
// came from.
func (s *Server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidFilter, err), http.StatusBadRequest)
		return
	}
	reset := r.PostForm.Get("reset") != ""

	_, err := sessionFrom(r.Context()).UpdateFilter(r.Context(), func(f *core.FilterState) error {
		if reset {
			f.Reset()
			return nil
		}

		sel := f.Selection()
		sel.Regions = r.PostForm["region"]
		var err error
		if sel.Years.Lo, err = formYear(r, "year_lo", sel.Years.Lo); err != nil {
			return err
		}
		if sel.Years.Hi, err = formYear(r, "year_hi", sel.Years.Hi); err != nil {
			return err
		}

		if _, ok := f.Domain(); !ok {
			return f.SetRegions(sel.Regions)
		}
		return f.Apply(sel)
	})
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	http.Redirect(w, r, safePage(r.PostForm.Get("page")), http.StatusSeeOther)
}

func formYear(r *http.Request, field string, current int) (int, error) {
	v := strings.TrimSpace(r.PostForm.Get(field))
	if v == "" {
		return current, nil
	}
	year, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %q is not a year", core.ErrInvalidFilter, field, v)
	}
	return year, nil
}

// handleReload discards the session's base table and loads it again. The
// outcome, failure included, is shown by the page the visitor returns to.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := sessionFrom(r.Context()).Reload(r.Context()); err != nil {
		logging.FromContext(r.Context()).Warn("reload failed", "error", err)
	}
	r.ParseForm()
	http.Redirect(w, r, safePage(r.PostForm.Get("page")), http.StatusSeeOther)
}

// exportFrame projects the current view with the explorer's column and sort
// parameters.
func (s *Server) exportFrame(w http.ResponseWriter, r *http.Request) (core.Frame, bool) {
	st, err := sessionFrom(r.Context()).State(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return core.Frame{}, false
	}
	frame, err := core.Project(st.View, parseFrameOptions(r))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return core.Frame{}, false
	}
	return frame, true
}

// handleExportCSV downloads the current view as CSV.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.exportFrame(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := core.WriteCSV(&buf, frame); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeDownload(w, contentTypeCSV, exportBaseName+".csv", buf.Bytes())
	logging.FromContext(r.Context()).Info("export", "format", "csv", "rows", frame.Len())
}

// handleExportXLSX downloads the current view as an XLSX workbook.
func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	frame, ok := s.exportFrame(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := core.WriteXLSX(&buf, frame); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeDownload(w, contentTypeXLSX, exportBaseName+".xlsx", buf.Bytes())
	logging.FromContext(r.Context()).Info("export", "format", "xlsx", "rows", frame.Len())
}

func writeDownload(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Write(body)
}

// FiltersResponse is the filter state exposed by the JSON API.
type FiltersResponse struct {
	RegionColumn string               `json:"region_column,omitempty"`
	Regions      []string             `json:"regions"`
	Domain       *core.YearRange      `json:"domain,omitempty"`
	Selection    core.FilterSelection `json:"selection"`
}

func filtersResponse(st session.State) FiltersResponse {
	resp := FiltersResponse{Regions: st.Regions, Selection: st.Selection}
	if st.Base != nil {
		resp.RegionColumn = st.Base.RegionColumn
	}
	if st.HasDomain {
		d := st.Domain
		resp.Domain = &d
	}
	if resp.Regions == nil {
		resp.Regions = []string{}
	}
	if resp.Selection.Regions == nil {
		resp.Selection.Regions = []string{}
	}
	return resp
}

// FiltersRequest updates the filter state. Omitted fields are unchanged;
// Reset restores the defaults before the other fields apply.
type FiltersRequest struct {
	Regions *[]string       `json:"regions"`
	Years   *core.YearRange `json:"years"`
	Reset   bool            `json:"reset"`
}

// handleAPIGetFilters returns the session's filter state.
func (s *Server) handleAPIGetFilters(w http.ResponseWriter, r *http.Request) {
	st, err := sessionFrom(r.Context()).State(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, filtersResponse(st))
}

// handleAPIPutFilters updates the session's filter state from JSON.
func (s *Server) handleAPIPutFilters(w http.ResponseWriter, r *http.Request) {
	var req FiltersRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidFilter, err), http.StatusBadRequest)
		return
	}

	st, err := sessionFrom(r.Context()).UpdateFilter(r.Context(), func(f *core.FilterState) error {
		if req.Reset {
			f.Reset()
		}
		sel := f.Selection()
		if req.Regions != nil {
			sel.Regions = *req.Regions
		}
		if req.Years != nil {
			sel.Years = *req.Years
		}
		if _, ok := f.Domain(); !ok {
			return f.SetRegions(sel.Regions)
		}
		return f.Apply(sel)
	})
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	writeJSON(w, filtersResponse(st))
}

// ViewResponse is the filtered view exposed by the JSON API.
type ViewResponse struct {
	Selection core.FilterSelection `json:"selection"`
	Overview  core.Overview        `json:"overview"`
	Snapshot  *core.Snapshot       `json:"snapshot"`
	Columns   []string             `json:"columns"`
	Rows      [][]string           `json:"rows"`
}

// handleAPIView returns the current view projected like the explorer.
func (s *Server) handleAPIView(w http.ResponseWriter, r *http.Request) {
	st, err := sessionFrom(r.Context()).State(r.Context())
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	frame, err := core.Project(st.View, parseFrameOptions(r))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	resp := ViewResponse{
		Selection: st.Selection,
		Overview:  core.Summarize(st.Base, st.View),
		Columns:   frame.Columns,
		Rows:      frame.Strings(),
	}
	if snap, err := core.LatestSnapshot(st.View); err == nil {
		resp.Snapshot = &snap
	}
	writeJSON(w, resp)
}
