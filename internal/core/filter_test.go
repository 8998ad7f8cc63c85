package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilterState_Defaults(t *testing.T) {
	base := sampleTable()
	f := NewFilterState(base)

	sel := f.Selection()
	assert.Equal(t, []string{"FR", "DE", "IT"}, sel.Regions)
	assert.Equal(t, YearRange{Lo: 2019, Hi: 2020}, sel.Years)
	assert.Equal(t, base.Records, f.CurrentView().Records)
}

func TestFilterState_SetYearRange(t *testing.T) {
	tests := []struct {
		name    string
		lo, hi  int
		wantErr bool
		wantLen int
	}{
		{"single year", 2020, 2020, false, 3},
		{"full range closed", 2019, 2020, false, 5},
		{"reversed", 2020, 2019, true, 5},
		{"below domain", 2018, 2020, true, 5},
		{"above domain", 2019, 2021, true, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilterState(sampleTable())
			before := f.Selection()

			err := f.SetYearRange(tt.lo, tt.hi)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidFilter))
				assert.Equal(t, before, f.Selection(), "rejected range must leave state unchanged")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantLen, f.CurrentView().Len())
		})
	}
}

func TestFilterState_SetRegions(t *testing.T) {
	f := NewFilterState(sampleTable())

	require.NoError(t, f.SetRegions([]string{"IT", "FR"}))
	view := f.CurrentView()
	assert.Equal(t, 3, view.Len())
	assert.Equal(t, []string{"FR", "IT"}, f.Selection().Regions, "selection keeps base order")
	for _, r := range view.Records {
		assert.Contains(t, []string{"FR", "IT"}, r.Region)
	}

	err := f.SetRegions([]string{"FR", "XX"})
	assert.ErrorIs(t, err, ErrInvalidFilter)
	assert.Equal(t, []string{"FR", "IT"}, f.Selection().Regions)

	require.NoError(t, f.SetRegions(nil))
	assert.True(t, f.CurrentView().Empty())

	f.Reset()
	assert.Equal(t, 5, f.CurrentView().Len())
}

func TestFilterState_NoRegionColumn(t *testing.T) {
	f := NewFilterState(yearOnlyTable())

	assert.NoError(t, f.SetRegions([]string{"anything"}), "selection is ignored without a region column")
	assert.Empty(t, f.KnownRegions())
	require.NoError(t, f.SetYearRange(2020, 2020))
	assert.Equal(t, 1, f.CurrentView().Len())
}

func TestFilterState_ViewIsSubsetAndDeterministic(t *testing.T) {
	base := sampleTable()
	f := NewFilterState(base)
	require.NoError(t, f.SetRegions([]string{"DE"}))
	require.NoError(t, f.SetYearRange(2019, 2019))

	first := f.CurrentView()
	second := f.CurrentView()
	assert.Equal(t, first.Records, second.Records)
	require.Len(t, first.Records, 1)
	assert.Contains(t, base.Records, first.Records[0])
	assert.Equal(t, base.Columns, first.Columns)
}

func TestFilterState_RegionAndYearSubset(t *testing.T) {
	var records []IndicatorRecord
	for year := 2018; year <= 2021; year++ {
		for _, region := range []string{"FR", "DE"} {
			records = append(records, IndicatorRecord{Region: region, Year: year, GDP: f64(float64(year))})
		}
	}
	f := NewFilterState(NewTable(indicatorSchema, records))

	require.NoError(t, f.SetYearRange(2019, 2020))
	require.NoError(t, f.SetRegions([]string{"FR"}))

	view := f.CurrentView()
	require.Len(t, view.Records, 2)
	for i, year := range []int{2019, 2020} {
		assert.Equal(t, "FR", view.Records[i].Region)
		assert.Equal(t, year, view.Records[i].Year)
	}
}

func TestFilterState_Apply(t *testing.T) {
	f := NewFilterState(sampleTable())

	err := f.Apply(FilterSelection{Regions: []string{"FR"}, Years: YearRange{Lo: 2020, Hi: 2030}})
	assert.ErrorIs(t, err, ErrInvalidFilter)
	assert.Equal(t, 5, f.CurrentView().Len(), "invalid years must not change regions")

	require.NoError(t, f.Apply(FilterSelection{Regions: []string{"FR"}, Years: YearRange{Lo: 2020, Hi: 2020}}))
	assert.Equal(t, 1, f.CurrentView().Len())
}

func TestFilterState_EmptyBase(t *testing.T) {
	f := NewFilterState(&Table{})

	_, ok := f.Domain()
	assert.False(t, ok)
	assert.ErrorIs(t, f.SetYearRange(2000, 2001), ErrInvalidFilter)
	assert.True(t, f.CurrentView().Empty())
}
