// handlers/admin_handler.go
package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opencovid/api/models"
	"github.com/opencovid/api/services"
	"github.com/opencovid/api/snapshot"
)

// ForceRefresh runs one check of the named source.
// Expects POST /admin/refresh/{source} where {source} is timeseries, datasets or archive.
func (h *Handlers) ForceRefresh(c *gin.Context) {
	source := c.Param("source")
	if h.deps.Scheduler == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Scheduler not running"})
		return
	}

	res, err := h.deps.Scheduler.Trigger(c.Request.Context(), source)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"source": source, "result": res.String()})
	case errors.Is(err, services.ErrUnknownSource):
		c.JSON(http.StatusNotFound, gin.H{"detail": "Unknown source '" + source + "'"})
	case errors.Is(err, services.ErrCheckInProgress):
		c.JSON(http.StatusConflict, gin.H{"detail": "A refresh of " + source + " is already in progress"})
	default:
		slog.Error("Forced refresh failed", "source", source, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"detail": "Failed to refresh " + source + ": " + err.Error()})
	}
}

// GetRefreshes lists recent entries of the refresh audit log.
func (h *Handlers) GetRefreshes(c *gin.Context) {
	if h.deps.Refreshes == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "Refresh log is disabled"})
		return
	}
	var p refreshesParams
	if err := bindQuery(c, &p); err != nil {
		respondWithError(c, err)
		return
	}
	recs, err := h.deps.Refreshes.RecentRefreshes(c.Request.Context(), p.Source, p.Limit)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": nonNil(recs)})
}

type sourceHealth struct {
	Loaded     bool       `json:"loaded"`
	Version    string     `json:"version,omitempty"`
	LoadedAt   *time.Time `json:"loaded_at,omitempty"`
	AgeSeconds float64    `json:"age_seconds,omitempty"`
}

func health[T any](snap *snapshot.Snapshot[T], now time.Time) sourceHealth {
	if snap == nil {
		return sourceHealth{}
	}
	at := snap.LoadedAt
	return sourceHealth{
		Loaded:     true,
		Version:    snap.Version.Token,
		LoadedAt:   &at,
		AgeSeconds: now.Sub(at).Seconds(),
	}
}

// GetHealth reports liveness and the age of every published snapshot. It answers 503
// until every source has loaded.
func (h *Handlers) GetHealth(c *gin.Context) {
	now := h.deps.Now()
	sources := map[string]sourceHealth{
		"timeseries": health[*models.Timeseries](h.deps.Timeseries.Current(), now),
		"datasets":   health[*models.Manifest](h.deps.Datasets.Current(), now),
		"archive":    health[*models.ArchiveData](h.deps.Archive.Current(), now),
	}

	status, code := "ok", http.StatusOK
	for _, s := range sources {
		if !s.Loaded {
			status, code = "loading", http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{"status": status, "sources": sources})
}
