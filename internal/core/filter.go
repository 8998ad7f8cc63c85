package core

import "fmt"

// YearRange is a closed interval of years.
type YearRange struct {
	Lo int `json:"lo"`
	Hi int `json:"hi"`
}

// Contains reports whether year lies inside the range, bounds included.
func (r YearRange) Contains(year int) bool {
	return year >= r.Lo && year <= r.Hi
}

// Span returns the number of years covered.
func (r YearRange) Span() int {
	return r.Hi - r.Lo + 1
}

func (r YearRange) String() string {
	return fmt.Sprintf("%d-%d", r.Lo, r.Hi)
}

// FilterSelection is a snapshot of a session's filter inputs.
type FilterSelection struct {
	Regions []string  `json:"regions"` // in base table order
	Years   YearRange `json:"years"`
}

// FilterState holds the region selection and year range for one session and
// derives the filtered view from the session's base table.
//
// FilterState is not safe for concurrent use; the owning session serializes
// access.
type FilterState struct {
	base      *Table
	known     []string
	domain    YearRange
	hasDomain bool

	regions map[string]bool
	years   YearRange
}

// NewFilterState creates a filter over base with every region selected and
// the full observed year range.
func NewFilterState(base *Table) *FilterState {
	f := &FilterState{base: base, known: base.Regions()}
	f.domain, f.hasDomain = base.YearDomain()
	f.Reset()
	return f
}

// Reset restores the default selection.
func (f *FilterState) Reset() {
	f.regions = make(map[string]bool, len(f.known))
	for _, code := range f.known {
		f.regions[code] = true
	}
	f.years = f.domain
}

// Base returns the table the filter applies to.
func (f *FilterState) Base() *Table {
	return f.base
}

// KnownRegions returns every region code of the base table in first-appearance order.
func (f *FilterState) KnownRegions() []string {
	return append([]string(nil), f.known...)
}

// Domain returns the observed year interval of the base table.
// Returns false when the base table is empty.
func (f *FilterState) Domain() (YearRange, bool) {
	return f.domain, f.hasDomain
}

// SetRegions replaces the region selection.
//
// Every code must be a known region; otherwise the selection is rejected and
// the state is left unchanged. Without a region column the call is a no-op.
// An empty selection is allowed and yields an empty view.
func (f *FilterState) SetRegions(codes []string) error {
	if !f.base.HasRegion() {
		return nil
	}

	known := make(map[string]bool, len(f.known))
	for _, code := range f.known {
		known[code] = true
	}

	next := make(map[string]bool, len(codes))
	for _, code := range codes {
		if !known[code] {
			return fmt.Errorf("%w: unknown region %q", ErrInvalidFilter, code)
		}
		next[code] = true
	}

	f.regions = next
	return nil
}

// SetYearRange replaces the year range.
// The range must satisfy lo <= hi and lie inside the observed domain.
func (f *FilterState) SetYearRange(lo, hi int) error {
	if err := f.checkYears(lo, hi); err != nil {
		return err
	}
	f.years = YearRange{Lo: lo, Hi: hi}
	return nil
}

func (f *FilterState) checkYears(lo, hi int) error {
	if !f.hasDomain {
		return fmt.Errorf("%w: no years available", ErrInvalidFilter)
	}
	if lo > hi {
		return fmt.Errorf("%w: year range %d-%d is reversed", ErrInvalidFilter, lo, hi)
	}
	if !f.domain.Contains(lo) || !f.domain.Contains(hi) {
		return fmt.Errorf("%w: year range %d-%d outside %s", ErrInvalidFilter, lo, hi, f.domain)
	}
	return nil
}

// Apply sets regions and years together. Both are validated before either is
// changed.
func (f *FilterState) Apply(sel FilterSelection) error {
	if err := f.checkYears(sel.Years.Lo, sel.Years.Hi); err != nil {
		return err
	}
	if err := f.SetRegions(sel.Regions); err != nil {
		return err
	}
	f.years = sel.Years
	return nil
}

// Selection returns a copy of the current inputs.
func (f *FilterState) Selection() FilterSelection {
	sel := FilterSelection{Years: f.years}
	for _, code := range f.known {
		if f.regions[code] {
			sel.Regions = append(sel.Regions, code)
		}
	}
	return sel
}

// Selected reports whether a region is part of the selection.
func (f *FilterState) Selected(code string) bool {
	return f.regions[code]
}

// CurrentView returns the base records whose region is selected (when a
// region column exists) and whose year lies in the range, in base order.
func (f *FilterState) CurrentView() *Table {
	if f.base == nil {
		return &Table{}
	}

	byRegion := f.base.HasRegion()
	records := make([]IndicatorRecord, 0, len(f.base.Records))
	for _, r := range f.base.Records {
		if byRegion && !f.regions[r.Region] {
			continue
		}
		if !f.years.Contains(r.Year) {
			continue
		}
		records = append(records, r)
	}
	return f.base.withRecords(records)
}
