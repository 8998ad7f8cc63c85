package core

import (
	"fmt"
	"strings"
	"sync"
)

// Metric is the canonical column name of a numeric indicator.
type Metric string

const (
	MetricGDP          Metric = "gdp_eur_millions"
	MetricGDPPerCapita Metric = "gdp_per_capita"
	MetricHICP         Metric = "avg_hicp_index"
	MetricPopulation   Metric = "population"
)

// MetricInfo describes how a metric is labelled and displayed.
type MetricInfo struct {
	Key      Metric
	Label    string // Human-readable name
	Unit     string // Display unit, may be empty
	Integer  bool   // Stored as an integer column
	Decimals int    // Digits after the decimal point when displayed
}

// Format renders a value of the metric for display.
func (m MetricInfo) Format(v float64) string {
	if m.Integer {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.*f", m.Decimals, v)
}

var (
	metrics    = make(map[Metric]MetricInfo)
	metricList []Metric
	metricsMu  sync.RWMutex
)

func init() {
	RegisterMetric(MetricInfo{Key: MetricGDP, Label: "GDP", Unit: "EUR millions", Decimals: 0})
	RegisterMetric(MetricInfo{Key: MetricGDPPerCapita, Label: "GDP per Capita", Unit: "EUR", Decimals: 0})
	RegisterMetric(MetricInfo{Key: MetricHICP, Label: "HICP Index", Decimals: 2})
	RegisterMetric(MetricInfo{Key: MetricPopulation, Label: "Population", Integer: true})
}

// RegisterMetric adds a metric to the registry.
// Panics if a metric with the same key is already registered.
func RegisterMetric(info MetricInfo) {
	metricsMu.Lock()
	defer metricsMu.Unlock()

	if _, exists := metrics[info.Key]; exists {
		panic(fmt.Sprintf("metric already registered: %s", info.Key))
	}
	metrics[info.Key] = info
	metricList = append(metricList, info.Key)
}

// LookupMetric returns the registered metric for a key.
// Returns false if not found.
func LookupMetric(key Metric) (MetricInfo, bool) {
	metricsMu.RLock()
	defer metricsMu.RUnlock()

	info, ok := metrics[key]
	return info, ok
}

// Metrics returns all registered metrics in registration order.
func Metrics() []MetricInfo {
	metricsMu.RLock()
	defer metricsMu.RUnlock()

	result := make([]MetricInfo, 0, len(metricList))
	for _, key := range metricList {
		result = append(result, metrics[key])
	}
	return result
}

// ParseMetric resolves a user-supplied metric name.
func ParseMetric(name string) (Metric, error) {
	key := Metric(strings.ToLower(strings.TrimSpace(name)))
	if _, ok := LookupMetric(key); !ok {
		return "", fmt.Errorf("%w: %q", ErrMetricUnavailable, name)
	}
	return key, nil
}

// Label returns the metric's display label, or the raw key when unregistered.
func (m Metric) Label() string {
	if info, ok := LookupMetric(m); ok {
		return info.Label
	}
	return string(m)
}
