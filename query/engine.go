// query/engine.go
package query

import (
	"errors"
	"sort"
	"strings"

	"cloud.google.com/go/civil"

	"github.com/opencovid/api/models"
	"github.com/opencovid/api/snapshot"
	"github.com/opencovid/api/utils"
)

// ErrNotLoaded is returned when a query runs before its source has been published.
var ErrNotLoaded = errors.New("data not loaded")

// Options are the parameters shared by /timeseries and /summary.
type Options struct {
	Geo       models.Geo
	Locations []string
	Date      string
	After     string
	Before    string
	Fill      bool
	Names     Names
	Version   bool
	// Today is the last day a live fill extends to.
	Today civil.Date
}

// TimeseriesOptions adds the metric selection and legacy projection.
type TimeseriesOptions struct {
	Options
	Stats  []string
	Legacy bool
}

// ResolveStats expands a stat selection into metrics available at geo. An empty
// selection or "all" selects every metric. Unknown names are an error; known metrics
// that are not published at geo are skipped.
func ResolveStats(stats []string, geo models.Geo) ([]models.MetricSchema, error) {
	names := utils.SplitList(stats)
	if len(names) == 0 {
		return models.MetricsFor(geo), nil
	}
	var out []models.MetricSchema
	seen := make(map[string]bool)
	for _, n := range names {
		n = strings.ToLower(n)
		if n == "all" {
			return models.MetricsFor(geo), nil
		}
		m, ok := models.LookupMetric(n)
		if !ok {
			return nil, InvalidParameter("stat")
		}
		if !m.HasGeo(geo) || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, m)
	}
	return out, nil
}

// selectRows runs fill, location and date filtering over one table.
func selectRows(ts *models.Timeseries, metric string, opts Options, loc LocationFilter, df DateFilter) []models.Observation {
	table, ok := ts.Table(metric, opts.Geo)
	if !ok {
		return nil
	}
	start, last, ok := dateBounds(table.Rows)
	if !ok {
		return nil
	}
	rows := filterLocations(table.Rows, loc)
	if opts.Fill {
		rows = fillBetween(rows, start, last, fillEnd(df.Before.OK, opts.Today))
	}
	return df.Apply(rows)
}

// Timeseries answers /timeseries: one frame per requested metric.
func Timeseries(snap *snapshot.Snapshot[*models.Timeseries], q TimeseriesOptions) (*Response, error) {
	if snap == nil || snap.Data == nil {
		return nil, ErrNotLoaded
	}
	ts := snap.Data

	metrics, err := ResolveStats(q.Stats, q.Geo)
	if err != nil {
		return nil, err
	}
	loc, err := ResolveLocations(q.Geo, q.Locations, ts.Geo)
	if err != nil {
		return nil, err
	}
	df := NewDateFilter(q.Date, q.After, q.Before, false)
	legacy := q.Legacy && len(metrics) == 1

	frames := newMetricFrames()
	for _, m := range metrics {
		rows := selectRows(ts, m.Name, q.Options, loc, df)
		if len(rows) == 0 {
			continue
		}
		if legacy {
			frames.add(m.Name, toLegacyFrame(rows, m, q.Geo, ts.Geo, q.Names))
		} else {
			frames.add(m.Name, toFrame(rows, q.Geo, ts.Geo, q.Names))
		}
	}
	if frames.Len() == 0 {
		return nil, ErrNoRecords
	}
	return &Response{Data: frames, Version: snap.Version.Token, IncludeVersion: q.Version}, nil
}

type summaryKey struct {
	region    string
	subRegion string
	date      civil.Date
}

// Summary answers /summary: every metric at geo joined into one row per location and
// date. Without any date constraint it reports the date of the current version, and an
// unparseable date selects the latest row of each location.
func Summary(snap *snapshot.Snapshot[*models.Timeseries], q Options) (*Response, error) {
	if snap == nil || snap.Data == nil {
		return nil, ErrNotLoaded
	}
	ts := snap.Data

	loc, err := ResolveLocations(q.Geo, q.Locations, ts.Geo)
	if err != nil {
		return nil, err
	}
	df := NewDateFilter(q.Date, q.After, q.Before, true)
	if df.Empty() && snap.Version.Date.IsValid() {
		df.Arg = utils.DateArg{Kind: utils.DateArgExact, Date: snap.Version.Date}
	}

	var metrics []models.MetricSchema
	for _, m := range models.MetricsFor(q.Geo) {
		if _, ok := ts.Table(m.Name, q.Geo); ok {
			metrics = append(metrics, m)
		}
	}

	joined := make(map[summaryKey][]*models.Observation)
	for i, m := range metrics {
		rows := selectRows(ts, m.Name, q, loc, df)
		for j := range rows {
			o := &rows[j]
			k := summaryKey{o.Region, o.SubRegion1, o.Date}
			vals, ok := joined[k]
			if !ok {
				vals = make([]*models.Observation, len(metrics))
				joined[k] = vals
			}
			vals[i] = o
		}
	}
	if len(joined) == 0 {
		return nil, ErrNoRecords
	}

	keys := make([]summaryKey, 0, len(joined))
	for k := range joined {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.region != b.region {
			return a.region < b.region
		}
		if a.subRegion != b.subRegion {
			return a.subRegion < b.subRegion
		}
		return a.date.Before(b.date)
	})

	cols := []string{colRegion}
	if q.Geo.HasSubRegion() {
		cols = append(cols, colSubRegion)
	}
	cols = append(cols, colDate)
	for _, m := range metrics {
		cols = append(cols, m.Name, m.Name+"_daily")
	}

	f := &Frame{Columns: cols, Rows: make([][]any, 0, len(keys))}
	for _, k := range keys {
		row := make([]any, 0, len(cols))
		row = append(row, q.Names.region(ts.Geo, k.region))
		if q.Geo.HasSubRegion() {
			row = append(row, q.Names.subRegion(ts.Geo, k.subRegion))
		}
		row = append(row, k.date.String())
		for _, o := range joined[k] {
			if o == nil {
				row = append(row, nil, nil)
				continue
			}
			row = append(row, o.Value, o.ValueDaily)
		}
		f.Rows = append(f.Rows, row)
	}
	return &Response{Data: f, Version: snap.Version.Token, IncludeVersion: q.Version}, nil
}
