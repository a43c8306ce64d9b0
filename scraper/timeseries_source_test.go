package scraper

import (
	"context"
	"errors"
	"testing"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencovid/api/models"
)

type countingSyncer struct {
	calls int
	err   error
}

func (s *countingSyncer) Sync(context.Context) error {
	s.calls++
	return s.err
}

func writeRepo(t *testing.T, files map[string]string) billy.Filesystem {
	t.Helper()
	fs := memfs.New()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0644))
	}
	return fs
}

func sampleRepo() map[string]string {
	return map[string]string{
		"update_time.txt": "2022-01-03 21:00 EST\n",
		"geo/pt.csv":      "region,name_canonical,pruid,name_ccodwg\nON,Ontario,35,Ontario\n",
		"geo/hr.csv":      "region,hruid,name_canonical,name_short,name_ccodwg\nON,3595,City of Toronto Health Unit,Toronto,Toronto\n",
		"data/hr/cases_hr.csv": "name,region,sub_region_1,date,value,value_daily\n" +
			"cases,ON,3595,2022-01-02,20,10\n" +
			"cases,ON,3595,2022-01-01,10,10\n",
		"data/pt/cases_pt.csv": "name,region,date,value,value_daily\ncases,ON,2022-01-01,10,10\n",
		"data/unrelated.csv":   "a,b\n1,2\n",
		"README.md":            "# data\n",
	}
}

func TestTimeseriesSourceLoad(t *testing.T) {
	syncer := &countingSyncer{}
	src := NewTimeseriesSource(syncer, writeRepo(t, sampleRepo()))

	v, ts, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, syncer.calls)
	assert.Equal(t, "2022-01-03 21:00 EST", v.Token)
	assert.Equal(t, "2022-01-03", v.Date.String())

	table, ok := ts.Table("cases", models.GeoHR)
	require.True(t, ok)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "2022-01-01", table.Rows[0].Date.String(), "rows are sorted by date")

	_, ok = ts.Table("deaths", models.GeoHR)
	assert.False(t, ok)

	assert.Equal(t, "Toronto", ts.Geo.HRName("3595", models.NameShort))
	assert.Len(t, ts.Tables, 2)
}

func TestTimeseriesSourceVersion(t *testing.T) {
	src := NewTimeseriesSource(nil, writeRepo(t, sampleRepo()))
	v, err := src.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2022-01-03 21:00 EST", v.Token)
}

func TestTimeseriesSourceErrors(t *testing.T) {
	syncErr := errors.New("network down")
	src := NewTimeseriesSource(&countingSyncer{err: syncErr}, writeRepo(t, sampleRepo()))
	_, err := src.Version(context.Background())
	assert.ErrorIs(t, err, syncErr)

	files := sampleRepo()
	delete(files, "geo/hr.csv")
	_, _, err = NewTimeseriesSource(nil, writeRepo(t, files)).Load(context.Background())
	assert.ErrorIs(t, err, ErrParse)

	files = sampleRepo()
	files["update_time.txt"] = "not a date\n"
	_, err = NewTimeseriesSource(nil, writeRepo(t, files)).Version(context.Background())
	assert.ErrorIs(t, err, ErrParse)
}
