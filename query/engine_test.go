package query

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencovid/api/models"
)

func tsOpts(geo models.Geo, stats ...string) TimeseriesOptions {
	return TimeseriesOptions{Options: opts(geo), Stats: stats}
}

func frameOf(t *testing.T, resp *Response, metric string) *Frame {
	t.Helper()
	mf, ok := resp.Data.(*MetricFrames)
	require.True(t, ok)
	f, ok := mf.Frames[metric]
	require.True(t, ok, "metric %s missing", metric)
	return f
}

func TestTimeseriesHealthRegionShortNames(t *testing.T) {
	q := tsOpts(models.GeoHR, "cases")
	q.Locations = []string{"3595"}
	q.Date = "2022-01-01"
	q.Names = Names{PT: models.NameShort, HR: models.NameShort}

	resp, err := Timeseries(testSnapshot(), q)
	require.NoError(t, err)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"data": {"cases": [
		{"name": "cases", "region": "ON", "sub_region_1": "Toronto", "date": "2022-01-01", "value": 1000, "value_daily": 50}
	]}}`, string(body))
	assert.Contains(t, string(body), `"value":1000,"value_daily":50`, "integers render without a fraction")
}

func TestTimeseriesUnknownLocation(t *testing.T) {
	for _, geo := range []models.Geo{models.GeoPT, models.GeoHR, models.GeoCAN} {
		q := tsOpts(geo)
		q.Locations = []string{"unknown"}
		_, err := Timeseries(testSnapshot(), q)
		require.Error(t, err, geo)
		assert.ErrorIs(t, err, ErrInvalidLocation)

		var qe *Error
		require.ErrorAs(t, err, &qe)
		assert.Equal(t, "Invalid loc", qe.Detail)
		assert.Equal(t, 400, qe.Kind.HTTPStatus())
	}
}

func TestTimeseriesLocationMembership(t *testing.T) {
	ref := testGeoRef()
	for _, loc := range [][]string{nil, {"ON"}, {"3595", "ab"}, {"9999"}, {"ON", "bogus"}} {
		q := tsOpts(models.GeoHR, "cases")
		q.Locations = loc
		q.Fill = true
		resp, err := Timeseries(testSnapshot(), q)
		require.NoError(t, err, loc)
		for _, row := range frameOf(t, resp, "cases").Rows {
			_, ok := ref.PTByCode(row[1].(string))
			assert.True(t, ok, "region %v", row[1])
			_, ok = ref.HRByID(row[2].(string))
			assert.True(t, ok, "sub_region_1 %v", row[2])
		}
	}
}

func TestTimeseriesProvinceTokensAtHealthRegionLevel(t *testing.T) {
	q := tsOpts(models.GeoHR, "cases")
	q.Locations = []string{" on "}
	resp, err := Timeseries(testSnapshot(), q)
	require.NoError(t, err)
	rows := frameOf(t, resp, "cases").Rows
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, "ON", r[1])
	}
}

func TestTimeseriesCanadaIgnoresLocation(t *testing.T) {
	q := tsOpts(models.GeoCAN, "cases")
	q.Locations = []string{"can"}
	resp, err := Timeseries(testSnapshot(), q)
	require.NoError(t, err)
	f := frameOf(t, resp, "cases")
	assert.Len(t, f.Rows, 3)
	assert.Equal(t, []string{"name", "region", "date", "value", "value_daily"}, f.Columns)
}

func TestTimeseriesRelativeWindow(t *testing.T) {
	unfiltered, err := Timeseries(testSnapshot(), tsOpts(models.GeoPT, "cases"))
	require.NoError(t, err)
	all := frameOf(t, unfiltered, "cases").Rows

	last := tsOpts(models.GeoPT, "cases")
	last.Date = "1"
	resp, err := Timeseries(testSnapshot(), last)
	require.NoError(t, err)
	lastRows := frameOf(t, resp, "cases").Rows

	first := tsOpts(models.GeoPT, "cases")
	first.Date = "-1"
	resp, err = Timeseries(testSnapshot(), first)
	require.NoError(t, err)
	firstRows := frameOf(t, resp, "cases").Rows

	require.Len(t, lastRows, 2, "one row per province")
	require.Len(t, firstRows, 2)
	assert.Equal(t, []any{"cases", "AB", "2022-01-01", 500.0, 20.0}, lastRows[0])
	assert.Equal(t, []any{"cases", "ON", "2022-01-03", 2150.0, 50.0}, lastRows[1])
	assert.Equal(t, []any{"cases", "ON", "2022-01-01", 2000.0, 100.0}, firstRows[1])
	for _, r := range append(lastRows, firstRows...) {
		assert.Contains(t, all, r)
	}

	zero := tsOpts(models.GeoPT, "cases")
	zero.Date = "0"
	_, err = Timeseries(testSnapshot(), zero)
	assert.ErrorIs(t, err, ErrNoRecords)
}

func TestTimeseriesDatePrecedence(t *testing.T) {
	q := tsOpts(models.GeoPT, "cases")
	q.Date = "02-01-2022"
	q.After = "2022-01-03"
	resp, err := Timeseries(testSnapshot(), q)
	require.NoError(t, err)
	rows := frameOf(t, resp, "cases").Rows
	require.Len(t, rows, 1, "an exact date overrides after")
	assert.Equal(t, "2022-01-02", rows[0][2])

	q = tsOpts(models.GeoPT, "cases")
	q.Date = "yesterday"
	resp, err = Timeseries(testSnapshot(), q)
	require.NoError(t, err)
	assert.Len(t, frameOf(t, resp, "cases").Rows, 4, "unparseable date is ignored")

	q = tsOpts(models.GeoPT, "cases")
	q.After = "2022-01-02"
	q.Before = "2022-01-02"
	resp, err = Timeseries(testSnapshot(), q)
	require.NoError(t, err)
	assert.Len(t, frameOf(t, resp, "cases").Rows, 1)
}

func TestTimeseriesFillBeforeLocationFilter(t *testing.T) {
	q := tsOpts(models.GeoHR, "cases")
	q.Locations = []string{"9999"}
	q.Fill = true
	q.Before = "2022-01-03"
	resp, err := Timeseries(testSnapshot(), q)
	require.NoError(t, err)
	rows := frameOf(t, resp, "cases").Rows
	require.Len(t, rows, 4, "filled over the whole table's range")
	assert.Equal(t, "2021-12-31", rows[0][3])
	assert.Equal(t, 0.0, rows[0][4])
	assert.Equal(t, 5.0, rows[3][4])
}

func TestTimeseriesStats(t *testing.T) {
	resp, err := Timeseries(testSnapshot(), tsOpts(models.GeoPT))
	require.NoError(t, err)
	mf := resp.Data.(*MetricFrames)
	assert.Equal(t, []string{"cases", "deaths"}, mf.Order)

	resp, err = Timeseries(testSnapshot(), tsOpts(models.GeoPT, "deaths|cases"))
	require.NoError(t, err)
	assert.Equal(t, []string{"deaths", "cases"}, resp.Data.(*MetricFrames).Order)

	_, err = Timeseries(testSnapshot(), tsOpts(models.GeoPT, "recovered"))
	require.Error(t, err)
	assert.Equal(t, "Invalid stat", err.Error())

	_, err = Timeseries(testSnapshot(), tsOpts(models.GeoHR, "hospitalizations"))
	assert.ErrorIs(t, err, ErrNoRecords, "not published at hr level")
}

func TestTimeseriesLegacy(t *testing.T) {
	q := tsOpts(models.GeoPT, "deaths")
	q.Legacy = true
	q.Names = Names{PT: models.NameCanonical}
	resp, err := Timeseries(testSnapshot(), q)
	require.NoError(t, err)
	f := frameOf(t, resp, "deaths")
	assert.Equal(t, []string{"province", "date_death_report", "deaths", "cumulative_deaths"}, f.Columns)
	assert.Equal(t, []any{"Ontario", "2022-01-03", int64(1), int64(11)}, f.Rows[1])

	q = tsOpts(models.GeoHR, "cases")
	q.Legacy = true
	q.Date = "2022-01-01"
	resp, err = Timeseries(testSnapshot(), q)
	require.NoError(t, err)
	assert.Equal(t, []string{"province", "health_region", "date_report", "cases", "cumulative_cases"}, frameOf(t, resp, "cases").Columns)

	q = tsOpts(models.GeoPT, "cases", "deaths")
	q.Legacy = true
	resp, err = Timeseries(testSnapshot(), q)
	require.NoError(t, err)
	assert.Equal(t, recordColumns(models.GeoPT), frameOf(t, resp, "deaths").Columns, "ignored for several metrics")
}

func TestTimeseriesCSVOmitsVersion(t *testing.T) {
	q := tsOpts(models.GeoPT, "cases")
	q.Version = true
	resp, err := Timeseries(testSnapshot(), q)
	require.NoError(t, err)

	body, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"version":"2022-01-03 21:00 EST"`)

	var buf bytes.Buffer
	require.NoError(t, resp.WriteCSV(&buf))
	out := buf.String()
	assert.NotContains(t, out, "version")
	assert.NotContains(t, out, "2022-01-03 21:00 EST")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Equal(t, "name,region,date,value,value_daily", lines[0])
	assert.Equal(t, "cases,AB,2022-01-01,500,20", lines[1])
	assert.Len(t, lines, 5)
}

func TestSummaryDefaultsToVersionDate(t *testing.T) {
	q := opts(models.GeoPT)
	q.Fill = true
	resp, err := Summary(testSnapshot(), q)
	require.NoError(t, err)

	f := resp.Data.(*Frame)
	assert.Equal(t, []string{"region", "date", "cases", "cases_daily", "deaths", "deaths_daily"}, f.Columns)
	require.Len(t, f.Rows, 2)
	for _, r := range f.Rows {
		assert.Equal(t, "2022-01-03", r[1])
	}
	assert.Equal(t, []any{"AB", "2022-01-03", 500.0, 0.0, nil, nil}, f.Rows[0], "filled province, no deaths table rows")
	assert.Equal(t, []any{"ON", "2022-01-03", 2150.0, 50.0, 11.4, 1.4}, f.Rows[1])
}

func TestSummaryInvalidDateMeansLatest(t *testing.T) {
	q := opts(models.GeoPT)
	q.Date = "not-a-date"
	resp, err := Summary(testSnapshot(), q)
	require.NoError(t, err)
	f := resp.Data.(*Frame)
	require.Len(t, f.Rows, 2)
	assert.Equal(t, []any{"AB", "2022-01-01", 500.0, 20.0, nil, nil}, f.Rows[0])
	assert.Equal(t, "2022-01-03", f.Rows[1][1])
}

func TestSummaryHealthRegions(t *testing.T) {
	q := opts(models.GeoHR)
	q.After = "2022-01-01"
	q.Names = Names{PT: models.NamePRUID, HR: models.NameCCODWG}
	q.Locations = []string{"AB"}
	resp, err := Summary(testSnapshot(), q)
	require.NoError(t, err)
	f := resp.Data.(*Frame)
	assert.Equal(t, []string{"region", "sub_region_1", "date", "cases", "cases_daily"}, f.Columns)
	require.Len(t, f.Rows, 1)
	assert.Equal(t, []any{"48", "Calgary", "2022-01-01", 12.0, 2.0}, f.Rows[0])
}

func TestSummaryNoRecords(t *testing.T) {
	q := opts(models.GeoPT)
	q.Date = "2020-01-01"
	_, err := Summary(testSnapshot(), q)
	assert.ErrorIs(t, err, ErrNoRecords)

	var qe *Error
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, 404, qe.Kind.HTTPStatus())
}

func TestNotLoaded(t *testing.T) {
	_, err := Timeseries(nil, tsOpts(models.GeoPT))
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = Summary(nil, opts(models.GeoPT))
	assert.ErrorIs(t, err, ErrNotLoaded)
}
