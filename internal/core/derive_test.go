package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLatestSnapshot(t *testing.T) {
	snap, err := LatestSnapshot(sampleTable())
	require.NoError(t, err)

	assert.Equal(t, 2020, snap.Year)
	assert.Equal(t, 3, snap.Regions)
	require.NotNil(t, snap.GDP)
	assert.Equal(t, 7250000.0, *snap.GDP)
	require.NotNil(t, snap.Population)
	assert.Equal(t, 210000000.0, *snap.Population)
	require.NotNil(t, snap.HICP)
	assert.Equal(t, 105.5, *snap.HICP, "NULL HICP is skipped, not counted as zero")
}

func TestLatestSnapshot_TwoRegions(t *testing.T) {
	tbl := NewTable(indicatorSchema, []IndicatorRecord{
		{Region: "FR", Year: 2020, GDP: f64(100), HICP: f64(2.0), Population: i64(67)},
		{Region: "DE", Year: 2020, GDP: f64(200), HICP: f64(1.5), Population: i64(83)},
	})

	snap, err := LatestSnapshot(tbl)
	require.NoError(t, err)
	assert.Equal(t, 2020, snap.Year)
	assert.Equal(t, 2, snap.Regions)
	require.NotNil(t, snap.GDP)
	assert.Equal(t, 300.0, *snap.GDP)
	require.NotNil(t, snap.HICP)
	assert.Equal(t, 1.75, *snap.HICP)
	require.NotNil(t, snap.Population)
	assert.Equal(t, 150.0, *snap.Population)
}

func TestLatestSnapshot_EmptyView(t *testing.T) {
	f := NewFilterState(sampleTable())
	require.NoError(t, f.SetRegions(nil))

	_, err := LatestSnapshot(f.CurrentView())
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestLatestSnapshot_AllNullMetric(t *testing.T) {
	tbl := NewTable([]string{"region", "year", "avg_hicp_index"}, []IndicatorRecord{
		{Region: "FR", Year: 2020},
	})
	snap, err := LatestSnapshot(tbl)
	require.NoError(t, err)
	assert.Nil(t, snap.HICP)
	assert.Nil(t, snap.GDP)
}

func TestRankRegions_CompetitionRanking(t *testing.T) {
	tbl := NewTable([]string{"country", "year", "gdp_eur_millions"}, []IndicatorRecord{
		{Region: "DE", Year: 2020, GDP: f64(200)},
		{Region: "FR", Year: 2020, GDP: f64(300)},
		{Region: "IT", Year: 2020, GDP: f64(300)},
		{Region: "ES", Year: 2019, GDP: f64(900)},
	})

	got, err := RankRegions(tbl, MetricGDP)
	require.NoError(t, err)

	want := []RankEntry{
		{Rank: 1, Region: "FR", Value: 300},
		{Rank: 1, Region: "IT", Value: 300},
		{Rank: 3, Region: "DE", Value: 200},
	}
	assert.Equal(t, want, got)
}

func TestRankRegions_Errors(t *testing.T) {
	_, err := RankRegions(yearOnlyTable(), MetricGDP)
	assert.ErrorIs(t, err, ErrNoRegionColumn)

	_, err = RankRegions(sampleTable(), Metric("unemployment"))
	assert.ErrorIs(t, err, ErrMetricUnavailable)

	_, err = RankRegions(yearOnlyTable(), MetricPopulation)
	assert.ErrorIs(t, err, ErrMetricUnavailable, "metric absent from schema")
}

func TestRankRegions_SkipsNullRegions(t *testing.T) {
	got, err := RankRegions(sampleTable(), MetricHICP)
	require.NoError(t, err)

	// DE has no HICP in 2020.
	require.Len(t, got, 2)
	assert.Equal(t, "IT", got[0].Region)
	assert.Equal(t, "FR", got[1].Region)
	assert.Equal(t, 2, got[1].Rank)
}

func TestBuildTimeSeries_ByRegion(t *testing.T) {
	series, err := BuildTimeSeries(sampleTable(), MetricHICP)
	require.NoError(t, err)

	require.Len(t, series, 3)
	assert.Equal(t, Series{Name: "FR", Points: []Point{{2019, 104}, {2020, 105}}}, series[0])
	assert.Equal(t, Series{Name: "DE", Points: []Point{{2019, 103}}}, series[1])
	assert.Equal(t, Series{Name: "IT", Points: []Point{{2020, 106}}}, series[2])
}

func TestBuildTimeSeries_YearOnly(t *testing.T) {
	series, err := BuildTimeSeries(yearOnlyTable(), MetricGDP)
	require.NoError(t, err)

	require.Len(t, series, 1)
	assert.Equal(t, AllRegions, series[0].Name)
	assert.Equal(t, []Point{{2019, 200}, {2020, 500}}, series[0].Points)
}

func TestBuildTimeSeries_Errors(t *testing.T) {
	_, err := BuildTimeSeries(sampleTable(), Metric("bogus"))
	assert.ErrorIs(t, err, ErrMetricUnavailable)

	empty := sampleTable().withRecords(nil)
	_, err = BuildTimeSeries(empty, MetricGDP)
	assert.ErrorIs(t, err, ErrEmptySelection)
}

func TestScatter(t *testing.T) {
	points, err := Scatter(sampleTable(), MetricGDPPerCapita, MetricHICP)
	require.NoError(t, err)

	// DE 2020 lacks HICP, IT 2020 lacks GDP per capita.
	require.Len(t, points, 3)
	assert.Equal(t, "FR", points[0].Region)
	require.NotNil(t, points[0].Size)
	assert.Equal(t, 67000000.0, *points[0].Size)
}
