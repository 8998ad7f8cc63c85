package ingest

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/eurometrics/internal/logging"
)

// RefArea maps an ECB reference area to the region code stored in tables.
type RefArea struct {
	ECB    string
	Region string
}

// DefaultHICPAreas are the euro area and the two member states tracked.
var DefaultHICPAreas = []RefArea{
	{ECB: "U2", Region: "EA19"},
	{ECB: "FR", Region: "FR"},
	{ECB: "DE", Region: "DE"},
}

// HICPTable is where monthly HICP observations land.
var HICPTable = TableSpec{Name: "hicp_inflation", DateCol: "date", ValueCol: "hicp_index", RegionCol: "region"}

// HICP fetches the monthly overall HICP index from the ECB data API.
type HICP struct {
	BaseURL string
	Areas   []RefArea
}

// NewHICP creates the HICP source for the default areas.
func NewHICP(baseURL string) *HICP {
	return &HICP{BaseURL: strings.TrimRight(baseURL, "/"), Areas: DefaultHICPAreas}
}

func (h *HICP) Name() string     { return SourceHICP }
func (h *HICP) Table() TableSpec { return HICPTable }
func (h *HICP) Mode() WriteMode  { return Replace }

// SeriesURL returns the csvdata URL of one area's index series.
func (h *HICP) SeriesURL(ecbArea string) string {
	return fmt.Sprintf("%s/ICP/M.%s.N.000000.4.INX?format=csvdata", h.BaseURL, ecbArea)
}

// Fetch downloads every area concurrently. The first failure cancels the
// remaining requests and fails the fetch.
func (h *HICP) Fetch(ctx context.Context, f *Fetcher) ([]Observation, error) {
	results := make([][]Observation, len(h.Areas))

	g, gctx := errgroup.WithContext(ctx)
	for i, area := range h.Areas {
		i, area := i, area
		g.Go(func() error {
			body, err := f.Get(gctx, fmt.Sprintf("ecb_hicp_%s.csv", area.Region), h.SeriesURL(area.ECB))
			if err != nil {
				return err
			}
			obs, skipped, err := ParseECBCSV(bytes.NewReader(body), area.Region)
			if err != nil {
				return fmt.Errorf("hicp %s: %w", area.Region, err)
			}
			if skipped > 0 {
				logging.FromContext(ctx).Warn("hicp rows skipped", "region", area.Region, "skipped", skipped)
			}
			results[i] = obs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Observation
	for _, obs := range results {
		all = append(all, obs...)
	}
	return all, nil
}

// ParseECBCSV reads an SDMX csvdata response, keeping TIME_PERIOD and
// OBS_VALUE. Rows with an unparseable period or value are skipped and
// counted.
func ParseECBCSV(r io.Reader, region string) (obs []Observation, skipped int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	periodIdx, valueIdx := -1, -1
	for i, col := range header {
		switch strings.ToUpper(strings.TrimSpace(col)) {
		case "TIME_PERIOD":
			periodIdx = i
		case "OBS_VALUE":
			valueIdx = i
		}
	}
	if periodIdx < 0 || valueIdx < 0 {
		return nil, 0, fmt.Errorf("unexpected columns %v: need TIME_PERIOD and OBS_VALUE", header)
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row: %w", err)
		}
		if periodIdx >= len(rec) || valueIdx >= len(rec) {
			skipped++
			continue
		}
		date, err := parsePeriod(rec[periodIdx])
		if err != nil {
			skipped++
			continue
		}
		v, ok := parseObservation(rec[valueIdx])
		if !ok {
			skipped++
			continue
		}
		obs = append(obs, Observation{Date: date, Value: v, Region: region})
	}
	return obs, skipped, nil
}
