package core

func f64(v float64) *float64 { return &v }
func i64(v int64) *int64     { return &v }

var indicatorSchema = []string{
	"id", "country_code", "year", "gdp_eur_millions", "gdp_per_capita", "avg_hicp_index", "population",
}

// sampleTable has three regions over 2019-2020 with a few NULLs.
func sampleTable() *Table {
	return NewTable(indicatorSchema, []IndicatorRecord{
		{Region: "FR", Year: 2019, GDP: f64(2400000), GDPPerCapita: f64(36000), HICP: f64(104), Population: i64(67000000)},
		{Region: "FR", Year: 2020, GDP: f64(2300000), GDPPerCapita: f64(34000), HICP: f64(105), Population: i64(67300000)},
		{Region: "DE", Year: 2019, GDP: f64(3400000), GDPPerCapita: f64(41000), HICP: f64(103), Population: i64(83000000)},
		{Region: "DE", Year: 2020, GDP: f64(3300000), GDPPerCapita: f64(40000), Population: i64(83100000)},
		{Region: "IT", Year: 2020, GDP: f64(1650000), HICP: f64(106), Population: i64(59600000)},
	})
}

// yearOnlyTable has no region column.
func yearOnlyTable() *Table {
	return NewTable([]string{"id", "year", "gdp_eur_millions", "avg_hicp_index"}, []IndicatorRecord{
		{Year: 2019, GDP: f64(100), HICP: f64(1)},
		{Year: 2019, GDP: f64(300), HICP: f64(3)},
		{Year: 2020, GDP: f64(500)},
	})
}
