// handlers/data_handler.go
package handlers

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jszwec/csvutil"

	"github.com/opencovid/api/models"
	"github.com/opencovid/api/query"
)

const csvContentType = "text/csv; charset=utf-8"

// respondWithError maps query errors to their status and a {"detail": ...} body.
func respondWithError(c *gin.Context, err error) {
	var qe *query.Error
	switch {
	case errors.As(err, &qe):
		c.JSON(qe.Kind.HTTPStatus(), gin.H{"detail": qe.Detail})
	case errors.Is(err, query.ErrNotLoaded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Data not loaded yet. Please try again shortly."})
	default:
		slog.Error("Request failed", "path", c.Request.URL.Path, "request_id", c.GetString("request_id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}

func respondWithTable(c *gin.Context, resp *query.Response, format string) {
	if format != "csv" {
		c.JSON(http.StatusOK, resp)
		return
	}
	var buf bytes.Buffer
	if err := resp.WriteCSV(&buf); err != nil {
		respondWithError(c, err)
		return
	}
	c.Data(http.StatusOK, csvContentType, buf.Bytes())
}

// GetTimeseries serves /timeseries.
func (h *Handlers) GetTimeseries(c *gin.Context) {
	var p timeseriesParams
	if err := bindQuery(c, &p); err != nil {
		respondWithError(c, err)
		return
	}
	opts, err := p.options(h.today(), false)
	if err != nil {
		respondWithError(c, err)
		return
	}
	resp, err := query.Timeseries(h.deps.Timeseries.Current(), query.TimeseriesOptions{
		Options: opts,
		Stats:   p.Stat,
		Legacy:  flag(p.Legacy, false),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	respondWithTable(c, resp, p.format())
}

// GetSummary serves /summary.
func (h *Handlers) GetSummary(c *gin.Context) {
	var p tableParams
	if err := bindQuery(c, &p); err != nil {
		respondWithError(c, err)
		return
	}
	opts, err := p.options(h.today(), true)
	if err != nil {
		respondWithError(c, err)
		return
	}
	resp, err := query.Summary(h.deps.Timeseries.Current(), opts)
	if err != nil {
		respondWithError(c, err)
		return
	}
	respondWithTable(c, resp, p.format())
}

// GetVersion serves /version: one token when route is given, otherwise all of them.
func (h *Handlers) GetVersion(c *gin.Context) {
	var p versionParams
	if err := bindQuery(c, &p); err != nil {
		respondWithError(c, err)
		return
	}
	dateOnly := flag(p.DateOnly, false) || flag(p.DateOnlyAlias, false)

	versions := map[string]*models.Version{}
	if s := h.deps.Timeseries.Current(); s != nil {
		versions["timeseries"] = &s.Version
		versions["summary"] = &s.Version
	}
	if s := h.deps.Datasets.Current(); s != nil {
		versions["datasets"] = &s.Version
	}
	if s := h.deps.Archive.Current(); s != nil {
		versions["archive"] = &s.Version
	}
	render := func(v *models.Version) string {
		if dateOnly {
			return v.DateOnly()
		}
		return v.Token
	}

	if p.Route != "" {
		v, ok := versions[p.Route]
		if !ok {
			respondWithError(c, query.ErrNotLoaded)
			return
		}
		c.JSON(http.StatusOK, gin.H{"version": render(v)})
		return
	}
	out := make(gin.H, len(versions))
	for route, v := range versions {
		out[route] = render(v)
	}
	c.JSON(http.StatusOK, out)
}

// GetDatasets serves /datasets.
func (h *Handlers) GetDatasets(c *gin.Context) {
	entries, err := query.Datasets(h.deps.Datasets.Current(), c.QueryArray("uuid"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// GetArchive serves /archive.
func (h *Handlers) GetArchive(c *gin.Context) {
	var p archiveParams
	if err := bindQuery(c, &p); err != nil {
		respondWithError(c, err)
		return
	}
	files, err := query.Archive(h.deps.Archive.Current(), query.ArchiveOptions{
		UUIDs:                p.UUID,
		RemoveDuplicates:     flag(p.RemoveDuplicates, false),
		KeepOnlyFinalForDate: flag(p.KeepOnlyFinalForDate, false),
		Date:                 p.Date,
		After:                p.After,
		Before:               p.Before,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}
	if p.format() == "csv" {
		b, err := csvutil.Marshal(files)
		if err != nil {
			respondWithError(c, err)
			return
		}
		c.Data(http.StatusOK, csvContentType, b)
		return
	}
	c.JSON(http.StatusOK, files)
}

// GetOther serves /other: the geography reference tables.
func (h *Handlers) GetOther(c *gin.Context) {
	var p otherParams
	if err := bindQuery(c, &p); err != nil {
		respondWithError(c, err)
		return
	}
	snap := h.deps.Timeseries.Current()
	if snap == nil || snap.Data == nil || snap.Data.Geo == nil {
		respondWithError(c, query.ErrNotLoaded)
		return
	}
	ref := snap.Data.Geo

	out := gin.H{}
	if p.Stat == "" || p.Stat == "pt" {
		out["pt"] = nonNil(ref.PT)
	}
	if p.Stat == "" || p.Stat == "hr" {
		out["hr"] = nonNil(ref.HR)
	}
	if flag(p.Version, false) {
		out["version"] = snap.Version.Token
	}
	c.JSON(http.StatusOK, out)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
