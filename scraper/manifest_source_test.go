package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetsJSON = `{
  "active": {
    "ab": [
      {"uuid": "u-ab-1", "name": "Alberta cases", "dir_parent": "ab", "dir_file": "cases", "active": "True"}
    ],
    "on": [
      {"uuid": "u-on-1", "dir_parent": "on", "dir_file": "deaths"},
      {"uuid": "u-on-2", "dir_parent": "on", "dir_file": "tests", "extra": {"nested": [1, 2]}}
    ]
  },
  "inactive": {
    "ca": [{"uuid": "u-ca-1", "dir_parent": "can", "dir_file": "old"}]
  }
}`

func TestParseManifest(t *testing.T) {
	m, err := ParseManifest([]byte(datasetsJSON))
	require.NoError(t, err)
	assert.Len(t, m.Datasets, 4)
	assert.Equal(t, []string{"u-ab-1", "u-ca-1", "u-on-1", "u-on-2"}, m.Order)

	d, ok := m.Lookup("u-on-2")
	require.True(t, ok)
	assert.Equal(t, "on", d.DirParent)
	assert.Equal(t, "tests", d.DirFile)
	assert.JSONEq(t, `{"uuid": "u-on-2", "dir_parent": "on", "dir_file": "tests", "extra": {"nested": [1, 2]}}`, string(d.Raw))
}

func TestParseManifestInvalid(t *testing.T) {
	_, err := ParseManifest([]byte(`{"active":`))
	assert.ErrorIs(t, err, ErrParse)

	_, err = ParseManifest([]byte(`{"active": {}}`))
	assert.ErrorIs(t, err, ErrParse)
}

func newUpstream(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/commits", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Mon, 02 Jan 2023 10:00:00 GMT")
		w.Write([]byte("[]"))
	})
	mux.HandleFunc("/datasets.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(datasetsJSON))
	})
	mux.HandleFunc("/archive/file_index.csv", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Tue, 03 Jan 2023 08:00:00 GMT")
		w.Write([]byte("uuid,file_name,file_timestamp,file_date,file_duplicate,file_md5,file_size\n" +
			"u-on-1,d_2023-01-01_10-00.csv,2023-01-01 10:00,2023-01-01,0,m1,10\n"))
	})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestManifestSource(t *testing.T) {
	srv := newUpstream(t)
	src := NewManifestSource(NewFetcher(5*time.Second, 0), srv.URL+"/datasets.json", srv.URL+"/commits")
	assert.Equal(t, "datasets", src.Name())

	v, m, err := src.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Mon, 02 Jan 2023 10:00:00 GMT", v.Token)
	assert.Len(t, m.Datasets, 4)

	v2, err := src.Version(context.Background())
	require.NoError(t, err)
	assert.True(t, v.Equal(v2))
}

func TestFileIndexClient(t *testing.T) {
	srv := newUpstream(t)
	c := NewFileIndexClient(NewFetcher(5*time.Second, 0), srv.URL+"/archive/file_index.csv")

	v, rows, err := c.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Tue, 03 Jan 2023 08:00:00 GMT", v.Token)
	require.Len(t, rows, 1)
	assert.Equal(t, "u-on-1", rows[0].UUID)

	head, err := c.Version(context.Background())
	require.NoError(t, err)
	assert.True(t, v.Equal(head))
}

func TestFetcherErrors(t *testing.T) {
	srv := newUpstream(t)
	f := NewFetcher(5*time.Second, 0)

	_, _, err := f.Get(context.Background(), srv.URL+"/missing")
	assert.ErrorIs(t, err, ErrFetch)

	_, err = f.LastModified(context.Background(), srv.URL+"/datasets.json")
	assert.ErrorIs(t, err, ErrFetch, "no Last-Modified header")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = f.Get(ctx, srv.URL+"/datasets.json")
	assert.ErrorIs(t, err, ErrFetch)
}
