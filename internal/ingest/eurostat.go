package ingest

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/JonMunkholm/eurometrics/internal/logging"
)

// DefaultGeos are the Eurostat geo codes fetched for GDP and population.
var DefaultGeos = []string{"FR", "DE", "EA19"}

// GDPTable holds annual GDP at market prices in EUR millions.
var GDPTable = TableSpec{Name: "gdp_eurostat", DateCol: "year", ValueCol: "value", RegionCol: "geo"}

// PopulationTable holds population on 1 January.
var PopulationTable = TableSpec{Name: "population_data", DateCol: "year", ValueCol: "population", RegionCol: "geo"}

// GDP fetches NAMA_10_GDP (B1GQ, CP_MEUR) as SDMX TSV.
type GDP struct {
	BaseURL string
	Geos    []string
}

// NewGDP creates the GDP source for the default geos.
func NewGDP(baseURL string) *GDP {
	return &GDP{BaseURL: strings.TrimRight(baseURL, "/"), Geos: DefaultGeos}
}

func (g *GDP) Name() string     { return SourceGDP }
func (g *GDP) Table() TableSpec { return GDPTable }
func (g *GDP) Mode() WriteMode  { return Append }

// URL returns the TSV data URL.
func (g *GDP) URL() string {
	return fmt.Sprintf("%s/sdmx/2.1/data/NAMA_10_GDP/A.CP_MEUR.B1GQ.%s?format=TSV",
		g.BaseURL, strings.Join(g.Geos, "+"))
}

func (g *GDP) Fetch(ctx context.Context, f *Fetcher) ([]Observation, error) {
	body, err := f.Get(ctx, "eurostat_gdp.tsv", g.URL())
	if err != nil {
		return nil, err
	}
	obs, err := ParseEurostatTSV(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gdp: %w", err)
	}
	return obs, nil
}

// ParseEurostatTSV reads the Eurostat TSV layout: the first header cell
// lists comma-separated dimension names ending in "geo\TIME_PERIOD", the
// remaining header cells are periods, and each row starts with its
// comma-separated dimension values. Missing (":") and malformed cells are
// dropped; flags after a value are ignored.
func ParseEurostatTSV(r io.Reader) ([]Observation, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		return nil, fmt.Errorf("empty response")
	}
	header := strings.Split(sc.Text(), "\t")

	dims, _, _ := strings.Cut(header[0], `\`)
	geoIdx := -1
	for i, d := range strings.Split(dims, ",") {
		if strings.EqualFold(strings.TrimSpace(d), "geo") {
			geoIdx = i
		}
	}
	if geoIdx < 0 {
		return nil, fmt.Errorf("no geo dimension in header %q", header[0])
	}

	periods := make([]time.Time, len(header))
	valid := make([]bool, len(header))
	for i := 1; i < len(header); i++ {
		if t, err := parsePeriod(header[i]); err == nil {
			periods[i], valid[i] = t, true
		}
	}

	var obs []Observation
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		cells := strings.Split(line, "\t")
		keys := strings.Split(cells[0], ",")
		if geoIdx >= len(keys) {
			continue
		}
		geo := strings.TrimSpace(keys[geoIdx])
		for i := 1; i < len(cells) && i < len(header); i++ {
			if !valid[i] {
				continue
			}
			if v, ok := parseObservation(cells[i]); ok {
				obs = append(obs, Observation{Date: periods[i], Value: v, Region: geo})
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	return obs, nil
}

// Population fetches demo_pjan (total sex, total age) as JSON-stat.
type Population struct {
	BaseURL string
	Geos    []string
}

// NewPopulation creates the population source for the default geos.
func NewPopulation(baseURL string) *Population {
	return &Population{BaseURL: strings.TrimRight(baseURL, "/"), Geos: DefaultGeos}
}

func (p *Population) Name() string     { return SourcePopulation }
func (p *Population) Table() TableSpec { return PopulationTable }
func (p *Population) Mode() WriteMode  { return Replace }

// URL returns the statistics API URL.
func (p *Population) URL() string {
	var geo strings.Builder
	for _, g := range p.Geos {
		geo.WriteString("&geo=" + g)
	}
	return fmt.Sprintf("%s/statistics/1.0/data/demo_pjan?format=JSON&lang=EN&sex=T&age=TOTAL%s",
		p.BaseURL, geo.String())
}

func (p *Population) Fetch(ctx context.Context, f *Fetcher) ([]Observation, error) {
	body, err := f.Get(ctx, "eurostat_demo_pjan.json", p.URL())
	if err != nil {
		return nil, err
	}
	obs, err := ParseJSONStat(body, map[string]string{"sex": "T", "age": "TOTAL"})
	if err != nil {
		return nil, fmt.Errorf("population: %w", err)
	}
	logging.FromContext(ctx).Debug("population parsed", "observations", len(obs))
	return obs, nil
}

// jsonStatDim is one dimension of a JSON-stat dataset.
type jsonStatDim struct {
	id     string
	size   int
	labels []string // category code by position
}

// ParseJSONStat decodes a JSON-stat 2.0 dataset into observations keyed by
// its geo and time dimensions. Values whose coordinate in a fixed dimension
// differs from the wanted code are dropped, so a response that ignores the
// query filter still yields only totals.
func ParseJSONStat(body []byte, fixed map[string]string) ([]Observation, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON")
	}
	doc := gjson.ParseBytes(body)

	ids := doc.Get("id").Array()
	sizes := doc.Get("size").Array()
	if len(ids) == 0 || len(ids) != len(sizes) {
		return nil, fmt.Errorf("malformed JSON-stat: id/size mismatch")
	}

	dims := make([]jsonStatDim, len(ids))
	geoIdx, timeIdx := -1, -1
	for i, id := range ids {
		d := jsonStatDim{id: id.String(), size: int(sizes[i].Int())}
		d.labels = make([]string, d.size)
		index := doc.Get("dimension." + gjson.Escape(d.id) + ".category.index")
		switch {
		case index.IsObject():
			index.ForEach(func(code, pos gjson.Result) bool {
				if p := int(pos.Int()); p >= 0 && p < d.size {
					d.labels[p] = code.String()
				}
				return true
			})
		case index.IsArray():
			for p, code := range index.Array() {
				if p < d.size {
					d.labels[p] = code.String()
				}
			}
		default:
			// A single-category dimension may omit its index.
			if d.size == 1 {
				doc.Get("dimension."+gjson.Escape(d.id)+".category.label").ForEach(func(code, _ gjson.Result) bool {
					d.labels[0] = code.String()
					return false
				})
			}
		}
		switch strings.ToLower(d.id) {
		case "geo":
			geoIdx = i
		case "time":
			timeIdx = i
		}
		dims[i] = d
	}
	if geoIdx < 0 || timeIdx < 0 {
		return nil, fmt.Errorf("malformed JSON-stat: need geo and time dimensions")
	}

	var obs []Observation
	var perr error
	visit := func(flat int, value gjson.Result) bool {
		if value.Type != gjson.Number {
			return true
		}
		coords := make([]int, len(dims))
		for i := len(dims) - 1; i >= 0; i-- {
			if dims[i].size == 0 {
				return true
			}
			coords[i] = flat % dims[i].size
			flat /= dims[i].size
		}
		for i, d := range dims {
			if want, ok := fixed[d.id]; ok && d.labels[coords[i]] != want {
				return true
			}
		}
		date, err := parsePeriod(dims[timeIdx].labels[coords[timeIdx]])
		if err != nil {
			perr = err
			return false
		}
		obs = append(obs, Observation{Date: date, Value: value.Float(), Region: dims[geoIdx].labels[coords[geoIdx]]})
		return true
	}

	values := doc.Get("value")
	switch {
	case values.IsObject():
		values.ForEach(func(key, v gjson.Result) bool {
			return visit(int(key.Int()), v)
		})
	case values.IsArray():
		for i, v := range values.Array() {
			if !visit(i, v) {
				break
			}
		}
	default:
		return nil, fmt.Errorf("malformed JSON-stat: no value")
	}
	if perr != nil {
		return nil, perr
	}
	return obs, nil
}
