package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/eurometrics/internal/config"
	"github.com/JonMunkholm/eurometrics/internal/core"
	"github.com/JonMunkholm/eurometrics/internal/session"
)

type staticLoader struct {
	table *core.Table
	err   error
}

func (l staticLoader) Load(context.Context) (*core.Table, error) {
	if l.err != nil {
		return &core.Table{}, l.err
	}
	return l.table, nil
}

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

func indicators() *core.Table {
	schema := []string{"country", "year", "gdp_eur_millions", "gdp_per_capita", "avg_hicp_index", "population"}
	return core.NewTable(schema, []core.IndicatorRecord{
		{Region: "FR", Year: 2019, GDP: f64(2400000), GDPPerCapita: f64(35800), HICP: f64(104.1), Population: i64(67000000)},
		{Region: "FR", Year: 2020, GDP: f64(2300000), GDPPerCapita: f64(34100), HICP: f64(104.6), Population: i64(67300000)},
		{Region: "DE", Year: 2019, GDP: f64(3470000), GDPPerCapita: f64(41800), HICP: f64(105.3), Population: i64(83000000)},
		{Region: "DE", Year: 2020, GDP: f64(3400000), GDPPerCapita: nil, HICP: f64(105.8), Population: i64(83100000)},
	})
}

func testConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{CookieName: "sid"},
	}
}

func newTestServer(t *testing.T, loader staticLoader, cfg *config.Config) *Server {
	t.Helper()
	limiter := session.NewLoadLimiter(2, time.Second)
	return NewServer(session.NewStore(loader, limiter), limiter, cfg)
}

// client replays the session cookie across requests.
type client struct {
	t      *testing.T
	srv    *Server
	cookie *http.Cookie
}

func (c *client) do(method, target string, body string, header map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rec := httptest.NewRecorder()
	c.srv.Router().ServeHTTP(rec, req)
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "sid" {
			c.cookie = ck
		}
	}
	return rec
}

func (c *client) get(target string) *httptest.ResponseRecorder {
	return c.do(http.MethodGet, target, "", nil)
}

func (c *client) postForm(target string, form url.Values) *httptest.ResponseRecorder {
	return c.do(http.MethodPost, target, form.Encode(),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
}

func newClient(t *testing.T, loader staticLoader) *client {
	return &client{t: t, srv: newTestServer(t, loader, testConfig())}
}

func TestPages_Render(t *testing.T) {
	c := newClient(t, staticLoader{table: indicators()})

	tests := []struct {
		path string
		want []string
	}{
		{"/", []string{"Economic Overview", "Snapshot 2020", "5700000", "metric=gdp_per_capita"}},
		{"/comparative", []string{"Comparative Analysis", "by Region (2020)", "Summary Statistics"}},
		{"/comparative?mode=year&metric=population", []string{"Population by Year"}},
		{"/comparative?mode=correlation&metric=gdp_eur_millions&metric=population", []string{"Correlation Matrix", "scatter.svg"}},
		{"/explorer", []string{"Data Explorer", "Dataset Overview", "Download CSV", "Missing Data", "gdp_per_capita"}},
		{"/explorer?q=fr&search_col=country", []string{"Search Results (2 rows)"}},
		{"/inflation", []string{"Inflation Analysis", "HICP Summary", "heatmap.svg", "HICP Statistics"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := c.get(tt.path)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
			for _, want := range tt.want {
				assert.Contains(t, rec.Body.String(), want)
			}
		})
	}
}

func TestPages_SessionReused(t *testing.T) {
	c := newClient(t, staticLoader{table: indicators()})
	c.get("/")
	require.NotNil(t, c.cookie)
	c.get("/explorer")
	assert.Equal(t, 1, c.srv.store.Len())
}

func TestPages_UnknownMetricWarns(t *testing.T) {
	c := newClient(t, staticLoader{table: indicators()})
	rec := c.get("/comparative?metric=bogus&metric=gdp_eur_millions")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "MET001")
	assert.Contains(t, rec.Body.String(), "GDP by Region")

	rec = c.get("/comparative?metric=")
	assert.Contains(t, rec.Body.String(), "Select at least one metric")
}

func TestPages_SourceUnavailable(t *testing.T) {
	c := newClient(t, staticLoader{err: errors.New("dial tcp: connection refused")})
	for _, path := range []string{"/", "/comparative", "/explorer", "/inflation"} {
		rec := c.get(path)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
		assert.Contains(t, rec.Body.String(), "SRC001", path)
	}
}

func TestPages_NoRegionColumn(t *testing.T) {
	table := core.NewTable([]string{"year", "avg_hicp_index"}, []core.IndicatorRecord{
		{Year: 2019, HICP: f64(100)},
		{Year: 2020, HICP: f64(102)},
	})
	c := newClient(t, staticLoader{table: table})

	rec := c.get("/inflation")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "REG001")
	assert.Contains(t, body, "hist.svg")
	assert.NotContains(t, body, "heatmap.svg")
	assert.NotContains(t, body, `name="region"`)
}

func TestFilters_FormAppliesAndRedirects(t *testing.T) {
	c := newClient(t, staticLoader{table: indicators()})

	rec := c.postForm("/filters", url.Values{
		"page":    {"explorer"},
		"region":  {"FR"},
		"year_lo": {"2020"},
		"year_hi": {"2020"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/explorer", rec.Header().Get("Location"))

	rec = c.get("/api/view?columns=country&columns=year")
	require.Equal(t, http.StatusOK, rec.Code)
	var view ViewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, [][]string{{"FR", "2020"}}, view.Rows)
	assert.Equal(t, 4, view.Overview.TotalRows)
	assert.Equal(t, 1, view.Overview.FilteredRows)
	require.NotNil(t, view.Snapshot)
	assert.Equal(t, 2020, view.Snapshot.Year)

	rec = c.postForm("/filters", url.Values{"page": {"nowhere"}, "reset": {"1"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	rec = c.get("/api/filters")
	var filters FiltersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filters))
	assert.Equal(t, []string{"FR", "DE"}, filters.Selection.Regions)
	assert.Equal(t, core.YearRange{Lo: 2019, Hi: 2020}, filters.Selection.Years)
}

func TestExplorer_DataQualityIgnoresFilters(t *testing.T) {
	c := newClient(t, staticLoader{table: indicators()})

	rec := c.postForm("/filters", url.Values{"page": {"explorer"}, "region": {"FR"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = c.get("/explorer")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	// The FR selection has no NULLs; the loaded table has one (DE 2020).
	assert.Contains(t, body, "<td>gdp_per_capita</td><td>1</td><td>25.0%</td>")
	assert.Contains(t, body, "<td>gdp_per_capita</td><td>float</td><td>3</td><td>1</td>")
	assert.Contains(t, body, "95.8%")
	assert.NotContains(t, body, "100.0%")
	assert.NotContains(t, body, "No missing values")
	assert.Contains(t, body, "missing.svg")

	rec = c.get("/charts/missing.svg")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "gdp_per_capita")
}

func TestFilters_Invalid(t *testing.T) {
	c := newClient(t, staticLoader{table: indicators()})

	tests := []struct {
		name string
		form url.Values
	}{
		{"reversed range", url.Values{"region": {"FR"}, "year_lo": {"2020"}, "year_hi": {"2019"}}},
		{"outside domain", url.Values{"region": {"FR"}, "year_lo": {"2010"}, "year_hi": {"2019"}}},
		{"not a year", url.Values{"region": {"FR"}, "year_lo": {"abc"}}},
		{"unknown region", url.Values{"region": {"XX"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := c.postForm("/filters", tt.form)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "FLT001")
		})
	}

	rec := c.get("/api/filters")
	var filters FiltersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filters))
	assert.Equal(t, []string{"FR", "DE"}, filters.Selection.Regions, "rejected input leaves state unchanged")
}

func TestFilters_EmptySelection(t *testing.T) {
	c := newClient(t, staticLoader{table: indicators()})
	rec := c.postForm("/filters", url.Values{"year_lo": {"2019"}, "year_hi": {"2020"}})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = c.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SEL001")
}

func TestAPIFilters_Put(t *testing.T) {
	c := newClient(t, staticLoader{table: indicators()})
	jsonHeader := map[string]string{"Content-Type": "application/json"}

	rec := c.do(http.MethodPut, "/api/filters", `{"regions":["DE"],"years":{"lo":2020,"hi":2020}}`, jsonHeader)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var filters FiltersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filters))
	assert.Equal(t, "country", filters.RegionColumn)
	assert.Equal(t, []string{"DE"}, filters.Selection.Regions)
	assert.Equal(t, []string{"FR", "DE"}, filters.Regions)
	require.NotNil(t, filters.Domain)
	assert.Equal(t, core.YearRange{Lo: 2019, Hi: 2020}, *filters.Domain)

	rec = c.do(http.MethodPut, "/api/filters", `{"regions":["XX"]}`, jsonHeader)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
	assert.Equal(t, "FLT001", errResp.Code)

	rec = c.do(http.MethodPut, "/api/filters", `{"unknown":1}`, jsonHeader)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPut, "/api/filters", `{"reset":true}`, jsonHeader)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &filters))
	assert.Equal(t, []string{"FR", "DE"}, filters.Selection.Regions)
}

func TestExportCSV_RoundTrip(t *testing.T) {
	c := newClient(t, staticLoader{table: indicators()})

	rec := c.get("/export.csv?columns=country&columns=year&columns=gdp_per_capita&sort=year&order=desc")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeCSV, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "eurometrics.csv")

	header, rows, err := core.ReadCSV(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{"country", "year", "gdp_per_capita"}, header)
	assert.Equal(t, [][]string{
		{"FR", "2020", "34100"},
		{"DE", "2020", ""},
		{"FR", "2019", "35800"},
		{"DE", "2019", "41800"},
	}, rows)
}

func TestExportCSV_UnknownColumn(t *testing.T) {
	c := newClient(t, staticLoader{table: indicators()})
	rec := c.get("/export.csv?columns=nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VAL005")
}

func TestExportXLSX(t *testing.T) {
	c := newClient(t, staticLoader{table: indicators()})
	rec := c.get("/export.xlsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeXLSX, rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "xlsx is a zip archive")
}

func TestCharts(t *testing.T) {
	c := newClient(t, staticLoader{table: indicators()})

	tests := []struct {
		path   string
		status int
	}{
		{"/charts/line.svg?metric=gdp_eur_millions", http.StatusOK},
		{"/charts/bar.svg?metric=gdp_per_capita", http.StatusOK},
		{"/charts/bar.svg?metric=avg_hicp_index&by=year", http.StatusOK},
		{"/charts/hist.svg?metric=population&bins=5", http.StatusOK},
		{"/charts/box.svg?metric=avg_hicp_index", http.StatusOK},
		{"/charts/scatter.svg?x=gdp_per_capita&y=avg_hicp_index", http.StatusOK},
		{"/charts/missing.svg", http.StatusOK},
		{"/charts/heatmap.svg?metric=avg_hicp_index", http.StatusOK},
		{"/charts/line.svg?metric=bogus", http.StatusBadRequest},
		{"/charts/pie.svg", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := c.get(tt.path)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			if tt.status == http.StatusOK {
				assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Body.String(), "<svg")
			}
		})
	}
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, staticLoader{table: indicators()}, testConfig())
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(0), body["sessions"], "health checks do not create sessions")
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	srv := newTestServer(t, staticLoader{table: indicators()}, cfg)

	var rec *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("Accept", "application/json")
		rec = httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
	}
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "RATE001")
}

func TestSecurityHeaders(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableCSP = true
	srv := newTestServer(t, staticLoader{table: indicators()}, cfg)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrSourceUnavailable, http.StatusServiceUnavailable},
		{session.ErrTooManyLoads, http.StatusServiceUnavailable},
		{core.ErrInvalidFilter, http.StatusBadRequest},
		{core.ErrInvalidSearch, http.StatusBadRequest},
		{metricUnavailable("x"), http.StatusBadRequest},
		{core.ErrEmptySelection, http.StatusNotFound},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
