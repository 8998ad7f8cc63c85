// Package ingest fetches indicator source data from the ECB and Eurostat,
// normalizes it to (date, value, region) observations, and loads it into
// Postgres, where the dashboard's indicator table is then built.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/JonMunkholm/eurometrics/internal/config"
)

// Observation is one normalized data point.
type Observation struct {
	Date   time.Time
	Value  float64
	Region string
}

// WriteMode controls how a source's table is written.
type WriteMode int

const (
	// Replace drops and recreates the table.
	Replace WriteMode = iota
	// Append adds rows to the existing table.
	Append
)

func (m WriteMode) String() string {
	if m == Append {
		return "append"
	}
	return "replace"
}

// TableSpec names a source table and its three columns.
type TableSpec struct {
	Name      string
	DateCol   string
	ValueCol  string
	RegionCol string
}

// Columns returns the column names in write order.
func (t TableSpec) Columns() []string {
	return []string{t.DateCol, t.ValueCol, t.RegionCol}
}

// Source fetches one dataset.
type Source interface {
	Name() string
	Table() TableSpec
	Mode() WriteMode
	Fetch(ctx context.Context, f *Fetcher) ([]Observation, error)
}

// Factory builds a source from configuration.
type Factory func(cfg config.IngestConfig) Source

var (
	factories  = make(map[string]Factory)
	sourceList []string
	registryMu sync.RWMutex
)

// Source names accepted by Build and the ingest CLI.
const (
	SourceHICP       = "hicp"
	SourceGDP        = "gdp"
	SourcePopulation = "population"
)

func init() {
	Register(SourceHICP, func(cfg config.IngestConfig) Source { return NewHICP(cfg.ECBBaseURL) })
	Register(SourceGDP, func(cfg config.IngestConfig) Source { return NewGDP(cfg.EurostatBaseURL) })
	Register(SourcePopulation, func(cfg config.IngestConfig) Source { return NewPopulation(cfg.EurostatBaseURL) })
}

// Register adds a source factory under name.
// Panics if a source with the same name is already registered.
func Register(name string, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := factories[name]; exists {
		panic(fmt.Sprintf("ingest source already registered: %s", name))
	}
	factories[name] = f
	sourceList = append(sourceList, name)
}

// Names returns registered source names in registration order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return append([]string(nil), sourceList...)
}

// Build instantiates the named sources; no names selects all of them.
func Build(cfg config.IngestConfig, names ...string) ([]Source, error) {
	if len(names) == 0 {
		names = Names()
	}

	registryMu.RLock()
	defer registryMu.RUnlock()

	sources := make([]Source, 0, len(names))
	for _, name := range names {
		f, ok := factories[name]
		if !ok {
			return nil, fmt.Errorf("unknown ingest source %q", name)
		}
		sources = append(sources, f(cfg))
	}
	return sources, nil
}
