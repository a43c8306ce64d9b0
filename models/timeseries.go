// models/timeseries.go
package models

import (
	"sort"

	"cloud.google.com/go/civil"
)

// Observation is one row of a metric table. Value is cumulative, ValueDaily the change
// from the previous observation.
type Observation struct {
	Name       string
	Region     string
	SubRegion1 string
	Date       civil.Date
	Value      float64
	ValueDaily float64
	// ValueMissing marks a blank cumulative cell upstream. NewMetricTable resolves it.
	ValueMissing bool
}

// GroupKey identifies the location an observation belongs to.
type GroupKey struct {
	Region     string
	SubRegion1 string
}

// Key returns the observation's location group.
func (o Observation) Key() GroupKey {
	return GroupKey{Region: o.Region, SubRegion1: o.SubRegion1}
}

// MetricTable holds every observation for one (metric, geo) pair, sorted by
// region, sub-region and date with at most one row per key.
type MetricTable struct {
	Metric string
	Geo    Geo
	Rows   []Observation
}

// NewMetricTable sorts rows and collapses duplicate keys, keeping the row that appeared
// last upstream. Missing cumulative values take the previous value in their group, or
// zero when the group has none yet. It returns the number of rows dropped.
func NewMetricTable(metric string, g Geo, rows []Observation) (*MetricTable, int) {
	sorted := make([]Observation, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Region != b.Region {
			return a.Region < b.Region
		}
		if a.SubRegion1 != b.SubRegion1 {
			return a.SubRegion1 < b.SubRegion1
		}
		return a.Date.Before(b.Date)
	})

	out := sorted[:0]
	dropped := 0
	for _, r := range sorted {
		if n := len(out); n > 0 && out[n-1].Key() == r.Key() && out[n-1].Date == r.Date {
			out[n-1] = r
			dropped++
			continue
		}
		out = append(out, r)
	}
	for _, grp := range GroupRows(out) {
		carry := 0.0
		for i := range grp {
			if grp[i].ValueMissing {
				grp[i].Value = carry
				grp[i].ValueMissing = false
			}
			carry = grp[i].Value
		}
	}
	return &MetricTable{Metric: metric, Geo: g, Rows: out}, dropped
}

// Groups splits the table's rows into per-location runs, in table order. The returned
// slices alias the table and must not be modified.
func (t *MetricTable) Groups() [][]Observation {
	return GroupRows(t.Rows)
}

// GroupRows splits sorted rows into consecutive runs sharing a GroupKey.
func GroupRows(rows []Observation) [][]Observation {
	var groups [][]Observation
	start := 0
	for i := 1; i <= len(rows); i++ {
		if i == len(rows) || rows[i].Key() != rows[start].Key() {
			if i > start {
				groups = append(groups, rows[start:i])
			}
			start = i
		}
	}
	return groups
}

// Timeseries is the parsed content of the time-series repository.
type Timeseries struct {
	Tables map[string]*MetricTable
	Geo    *GeoReference
}

// Table returns the table for a metric at a geography level.
func (ts *Timeseries) Table(metric string, g Geo) (*MetricTable, bool) {
	t, ok := ts.Tables[TableName(metric, g)]
	return t, ok
}

// Rows counts observations across all tables.
func (ts *Timeseries) Rows() int {
	n := 0
	for _, t := range ts.Tables {
		n += len(t.Rows)
	}
	return n
}
