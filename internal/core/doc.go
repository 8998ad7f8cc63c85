// Package core provides the indicator model and the views derived from it.
//
// This package holds all dashboard logic independent of storage and
// transport. It can be used by web handlers, the ingestion CLI, or tests
// without modification.
//
// # Architecture
//
//   - Table: the typed base table loaded once per session, with its schema,
//     resolved region column and the metrics present.
//   - Metric registry: the known indicators, registered at init time with
//     [RegisterMetric].
//   - FilterState: region selection and closed year range; [FilterState.CurrentView]
//     is a pure function of the state and the base table.
//   - Derived views: latest-year snapshot, time series, ranking, descriptive
//     statistics, correlation, explorer projections and inflation aggregates.
//   - Export: CSV and XLSX encodings of a projected view.
//
// # Region Role
//
// [ResolveRegionColumn] picks the first column whose name contains region,
// country, nation or area. Without one every region-dependent view falls back
// to aggregates over all rows and reports [ErrNoRegionColumn] where a
// per-region answer was requested.
//
// # Error Handling
//
// Failures are reported through sentinel errors wrapped with %w. At the page
// boundary [MapError] turns them into user messages with support codes:
//
//   - SRC001: source unavailable
//   - REG001: no region column
//   - SEL001: empty selection
//   - SRCH001: invalid search input
//   - MET001: metric unavailable
//   - FLT001: invalid filter
package core
