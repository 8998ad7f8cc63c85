package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	base := sampleTable()
	f := NewFilterState(base)
	require.NoError(t, f.SetRegions([]string{"IT"}))

	// Only FilteredRows follows the selection; the id column counts as a column.
	o := Summarize(base, f.CurrentView())
	assert.Equal(t, Overview{TotalRows: 5, FilteredRows: 1, Columns: 7, YearsCovered: 2}, o)

	require.NoError(t, f.SetYearRange(2020, 2020))
	o = Summarize(base, f.CurrentView())
	assert.Equal(t, 2, o.YearsCovered)
}

func TestColumnInfosAndCompleteness(t *testing.T) {
	tbl := sampleTable()

	infos := ColumnInfos(tbl)
	require.Len(t, infos, 6)
	assert.Equal(t, ColumnInfo{Name: "country_code", Type: "text", NonNull: 5}, infos[0])
	assert.Equal(t, ColumnInfo{Name: "year", Type: "integer", NonNull: 5}, infos[1])
	assert.Equal(t, ColumnInfo{Name: "gdp_per_capita", Type: "float", NonNull: 4, Null: 1}, infos[3])
	assert.Equal(t, ColumnInfo{Name: "population", Type: "integer", NonNull: 5}, infos[5])

	assert.InDelta(t, 28.0/30.0*100, Completeness(tbl), 1e-9)
	assert.Equal(t, 0.0, Completeness(tbl.withRecords(nil)))
}

func TestMissingData(t *testing.T) {
	tbl := NewTable([]string{"region", "year", "gdp_eur_millions", "avg_hicp_index"}, []IndicatorRecord{
		{Region: "A", Year: 2019, GDP: f64(1)},
		{Region: "B", Year: 2019},
		{Region: "C", Year: 2019, GDP: f64(1), HICP: f64(1)},
		{Region: "D", Year: 2019, GDP: f64(1)},
	})

	got := MissingData(tbl)
	want := []MissingColumn{
		{Column: "avg_hicp_index", Missing: 3, Percent: 75},
		{Column: "gdp_eur_millions", Missing: 1, Percent: 25},
	}
	assert.Equal(t, want, got)
}

func TestProject_DefaultColumns(t *testing.T) {
	frame, err := Project(sampleTable(), FrameOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"country_code", "year", "gdp_eur_millions", "gdp_per_capita", "avg_hicp_index"}, frame.Columns)
	assert.Equal(t, 5, frame.Len())
}

func TestProject_SortNullsLast(t *testing.T) {
	tests := []struct {
		name string
		desc bool
		want []string
	}{
		{"ascending", false, []string{"103", "104", "105", "106", ""}},
		{"descending", true, []string{"106", "105", "104", "103", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Project(sampleTable(), FrameOptions{
				Columns: []string{"avg_hicp_index"},
				SortBy:  "avg_hicp_index",
				Desc:    tt.desc,
			})
			require.NoError(t, err)

			var got []string
			for _, row := range frame.Strings() {
				got = append(got, row[0])
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProject_StableSortByUnselectedColumn(t *testing.T) {
	frame, err := Project(sampleTable(), FrameOptions{
		Columns: []string{"country_code"},
		SortBy:  "year",
		Desc:    true,
	})
	require.NoError(t, err)

	var got []string
	for _, row := range frame.Strings() {
		got = append(got, row[0])
	}
	assert.Equal(t, []string{"FR", "DE", "IT", "FR", "DE"}, got)
}

func TestProject_UnknownColumn(t *testing.T) {
	_, err := Project(sampleTable(), FrameOptions{Columns: []string{"id"}})
	assert.ErrorIs(t, err, ErrUnknownColumn, "ignored columns are not selectable")

	_, err = Project(sampleTable(), FrameOptions{SortBy: "nope"})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestSearch(t *testing.T) {
	base := sampleTable()

	tests := []struct {
		name    string
		col     string
		term    string
		wantLen int
		wantErr error
	}{
		{"text substring case-insensitive", "country_code", "f", 2, nil},
		{"numeric equality", "year", "2020", 3, nil},
		{"numeric float", "avg_hicp_index", "104.0", 1, nil},
		{"numeric rejects text", "gdp_eur_millions", "abc", 0, ErrInvalidSearch},
		{"empty term matches all", "country_code", "  ", 5, nil},
		{"unknown column", "nope", "x", 0, ErrUnknownColumn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Search(base, tt.col, tt.term)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, got.Len())
		})
	}
}
