package core

import "errors"

// Sentinel errors of the dashboard. Callers wrap them with context using %w;
// MapError turns them into user messages at the page boundary.
var (
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrNoRegionColumn    = errors.New("no region column")
	ErrEmptySelection    = errors.New("no data for selection")
	ErrInvalidSearch     = errors.New("invalid search input")
	ErrMetricUnavailable = errors.New("metric unavailable")
	ErrInvalidFilter     = errors.New("invalid filter")
	ErrUnknownColumn     = errors.New("column not found")
)
