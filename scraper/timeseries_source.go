// scraper/timeseries_source.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/opencovid/api/models"
)

// Syncer brings a local working tree up to date with its remote.
type Syncer interface {
	Sync(ctx context.Context) error
}

type tableRef struct {
	metric string
	geo    models.Geo
}

// TimeseriesSource reads metric and geography tables from a checked-out copy of the
// time-series repository.
type TimeseriesSource struct {
	repo   Syncer
	fs     billy.Filesystem
	tables map[string]tableRef
}

// NewTimeseriesSource reads tables from fs after syncing repo. repo may be nil when fs is
// not backed by a clone.
func NewTimeseriesSource(repo Syncer, fs billy.Filesystem) *TimeseriesSource {
	tables := make(map[string]tableRef)
	for _, m := range models.Metrics {
		for _, g := range m.Geos {
			tables[models.TableName(m.Name, g)] = tableRef{metric: m.Name, geo: g}
		}
	}
	return &TimeseriesSource{repo: repo, fs: fs, tables: tables}
}

func (s *TimeseriesSource) Name() string { return "timeseries" }

func (s *TimeseriesSource) sync(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	return s.repo.Sync(ctx)
}

// Version pulls the repository and returns the content of update_time.txt.
func (s *TimeseriesSource) Version(ctx context.Context) (models.Version, error) {
	if err := s.sync(ctx); err != nil {
		return models.Version{}, err
	}
	return ReadUpdateTime(s.fs)
}

// Load pulls the repository and parses every known table.
func (s *TimeseriesSource) Load(ctx context.Context) (models.Version, *models.Timeseries, error) {
	if err := s.sync(ctx); err != nil {
		return models.Version{}, nil, err
	}
	v, err := ReadUpdateTime(s.fs)
	if err != nil {
		return models.Version{}, nil, err
	}

	var (
		pt []models.ProvinceTerritory
		hr []models.HealthRegion
	)
	ts := &models.Timeseries{Tables: make(map[string]*models.MetricTable)}

	err = util.Walk(s.fs, "/", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		if path.Ext(info.Name()) != ".csv" {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		base := strings.TrimSuffix(info.Name(), ".csv")
		switch base {
		case models.TablePT:
			pt, err = readCsvFile(s.fs, p, ParsePtCsv)
			return err
		case models.TableHR:
			hr, err = readCsvFile(s.fs, p, ParseHrCsv)
			return err
		}

		ref, ok := s.tables[base]
		if !ok {
			return nil
		}
		rows, err := readCsvFile(s.fs, p, func(r io.Reader) ([]models.Observation, error) {
			return ParseMetricCsv(r, ref.metric, ref.geo)
		})
		if err != nil {
			return err
		}
		table, dropped := models.NewMetricTable(ref.metric, ref.geo, rows)
		if dropped > 0 {
			slog.Warn("Collapsed duplicate rows", "table", base, "dropped", dropped)
		}
		ts.Tables[base] = table
		return nil
	})
	if err != nil {
		return models.Version{}, nil, fmt.Errorf("failed to read time series tables: %w", err)
	}

	if pt == nil || hr == nil {
		return models.Version{}, nil, fmt.Errorf("%w: geography reference tables pt.csv and hr.csv are required", ErrParse)
	}
	ts.Geo = models.NewGeoReference(pt, hr)

	slog.Info("Parsed time series tables", "tables", len(ts.Tables), "rows", ts.Rows(), "version", v.Token)
	return v, ts, nil
}

func readCsvFile[T any](fs billy.Filesystem, name string, parse func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open %s: %w", ErrFetch, name, err)
	}
	defer f.Close()
	return parse(f)
}
