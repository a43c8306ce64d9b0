// app.go
package main

import (
	"database/sql"
	"log/slog"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/opencovid/api/config"
	"github.com/opencovid/api/database"
	"github.com/opencovid/api/handlers"
	"github.com/opencovid/api/models"
	"github.com/opencovid/api/observability"
	"github.com/opencovid/api/scraper"
	"github.com/opencovid/api/services"
)

// app is the wired process: one refresher per upstream, the scheduler that drives them
// and the dependencies of the HTTP layer.
type app struct {
	cfg        *config.Config
	db         *sql.DB
	timeseries *services.Refresher[*models.Timeseries]
	datasets   *services.Refresher[*models.Manifest]
	archive    *services.Refresher[*models.ArchiveData]
	scheduler  *services.Scheduler
	refreshLog *database.RefreshLog
	metrics    *observability.Metrics
}

func newApp(cfg *config.Config, reg prometheus.Registerer) (*app, error) {
	a := &app{cfg: cfg, metrics: observability.NewMetrics(reg)}
	hooks := services.Hooks{Metrics: a.metrics}

	if cfg.Database.Enabled() {
		db, err := database.InitDB(cfg.Database)
		if err != nil {
			return nil, err
		}
		a.db = db
		a.refreshLog = database.NewRefreshLog(db, cfg.Database.Driver)
		hooks.Recorder = a.refreshLog
	}

	up := cfg.Upstream
	fetcher := scraper.NewFetcher(up.Timeout, up.RequestsPerMinute)
	repo := &scraper.GitRepo{URL: up.TimeseriesRepo, Branch: up.TimeseriesBranch, Dir: up.RepoDir}

	fresh := cfg.DataFreshness
	a.timeseries = services.NewRefresher(
		scraper.NewTimeseriesSource(repo, osfs.New(up.RepoDir)),
		fresh.TimeseriesInterval, services.TimeseriesRows, hooks)
	a.datasets = services.NewRefresher(
		scraper.NewManifestSource(fetcher, up.DatasetsURL, up.DatasetsCommitsURL),
		fresh.DatasetsInterval, services.ManifestRows, hooks)
	a.archive = services.NewRefresher(
		services.NewArchiveSource(a.datasets.Store(), scraper.NewFileIndexClient(fetcher, up.FileIndexURL), up.ArchiveBaseURL),
		fresh.ArchiveInterval, services.ArchiveRows, hooks)

	// The archive index is built against the published manifest.
	a.scheduler = services.NewScheduler(
		[]services.Task{a.timeseries, a.datasets},
		[]services.Task{a.archive},
	)
	return a, nil
}

func (a *app) handlerDeps(gatherer prometheus.Gatherer) handlers.Deps {
	d := handlers.Deps{
		Timeseries: a.timeseries.Store(),
		Datasets:   a.datasets.Store(),
		Archive:    a.archive.Store(),
		Scheduler:  a.scheduler,
		Metrics:    a.metrics,
		Gatherer:   gatherer,
		Location:   a.cfg.Location(),
	}
	if a.refreshLog != nil {
		d.Refreshes = a.refreshLog
	}
	return d
}

func (a *app) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
			return
		}
		slog.Info("Database connection closed")
	}
}

func setupLogger(format, level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
