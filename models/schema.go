// models/schema.go
package models

// MetricSchema declares what a metric looks like upstream and how it was named by the
// legacy (pre-2022) API. Query code works from these roles instead of matching column
// names per metric.
type MetricSchema struct {
	Name string
	Geos []Geo

	LegacyDate       string // e.g. date_report
	LegacyDaily      string // e.g. cases
	LegacyCumulative string // e.g. cumulative_cases
}

// Metrics is the registry of published metrics, in response order.
var Metrics = []MetricSchema{
	{Name: "cases", Geos: []Geo{GeoPT, GeoHR, GeoCAN},
		LegacyDate: "date_report", LegacyDaily: "cases", LegacyCumulative: "cumulative_cases"},
	{Name: "deaths", Geos: []Geo{GeoPT, GeoHR, GeoCAN},
		LegacyDate: "date_death_report", LegacyDaily: "deaths", LegacyCumulative: "cumulative_deaths"},
	{Name: "hospitalizations", Geos: []Geo{GeoPT, GeoCAN},
		LegacyDate: "date_hospitalizations", LegacyDaily: "hospitalizations", LegacyCumulative: "cumulative_hospitalizations"},
	{Name: "icu", Geos: []Geo{GeoPT, GeoCAN},
		LegacyDate: "date_icu", LegacyDaily: "icu", LegacyCumulative: "cumulative_icu"},
	{Name: "tests_completed", Geos: []Geo{GeoPT, GeoCAN},
		LegacyDate: "date_testing", LegacyDaily: "testing", LegacyCumulative: "cumulative_testing"},
	{Name: "vaccine_administration_total_doses", Geos: []Geo{GeoPT, GeoCAN},
		LegacyDate: "date_vaccine_administered", LegacyDaily: "avaccine", LegacyCumulative: "cumulative_avaccine"},
	{Name: "vaccine_administration_dose_1", Geos: []Geo{GeoPT, GeoCAN},
		LegacyDate: "date_vaccine_dose_1", LegacyDaily: "dose_1", LegacyCumulative: "cumulative_dose_1"},
	{Name: "vaccine_administration_dose_2", Geos: []Geo{GeoPT, GeoCAN},
		LegacyDate: "date_vaccine_completed", LegacyDaily: "cvaccine", LegacyCumulative: "cumulative_cvaccine"},
	{Name: "vaccine_administration_dose_3", Geos: []Geo{GeoPT, GeoCAN},
		LegacyDate: "date_vaccine_dose_3", LegacyDaily: "dose_3", LegacyCumulative: "cumulative_dose_3"},
}

var metricsByName = func() map[string]MetricSchema {
	m := make(map[string]MetricSchema, len(Metrics))
	for _, s := range Metrics {
		m[s.Name] = s
	}
	return m
}()

// LookupMetric returns the schema for a metric name.
func LookupMetric(name string) (MetricSchema, bool) {
	s, ok := metricsByName[name]
	return s, ok
}

// HasGeo reports whether the metric is published at the given level.
func (m MetricSchema) HasGeo(g Geo) bool {
	for _, x := range m.Geos {
		if x == g {
			return true
		}
	}
	return false
}

// MetricsFor lists the metrics available at a geography level.
func MetricsFor(g Geo) []MetricSchema {
	var out []MetricSchema
	for _, m := range Metrics {
		if m.HasGeo(g) {
			out = append(out, m)
		}
	}
	return out
}

// TableName is the snapshot key for a (metric, geo) table, and also the upstream file
// name without extension (cases_hr.csv).
func TableName(metric string, g Geo) string {
	return metric + "_" + string(g)
}

// Reference table names in the upstream repository.
const (
	TablePT = "pt"
	TableHR = "hr"
)
