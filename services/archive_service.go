// services/archive_service.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/opencovid/api/models"
	"github.com/opencovid/api/snapshot"
	"github.com/opencovid/api/utils"
)

// FileIndexFetcher retrieves the raw archive file index.
type FileIndexFetcher interface {
	Version(ctx context.Context) (models.Version, error)
	Fetch(ctx context.Context) (models.Version, []models.FileIndexRow, error)
}

// ArchiveSource builds the archive index from the published manifest snapshot and the
// upstream file index. Its version changes when either input changes.
type ArchiveSource struct {
	manifests *snapshot.Store[*models.Manifest]
	files     FileIndexFetcher
	baseURL   string
}

func NewArchiveSource(manifests *snapshot.Store[*models.Manifest], files FileIndexFetcher, baseURL string) *ArchiveSource {
	return &ArchiveSource{manifests: manifests, files: files, baseURL: baseURL}
}

func (s *ArchiveSource) Name() string { return "archive" }

func (s *ArchiveSource) manifest() (*snapshot.Snapshot[*models.Manifest], error) {
	snap := s.manifests.Current()
	if snap == nil {
		return nil, fmt.Errorf("%w: dataset manifest has not been loaded", ErrUpstreamFetch)
	}
	return snap, nil
}

func archiveVersion(manifest, files models.Version) models.Version {
	return models.Version{Token: manifest.Token + " | " + files.Token, Date: files.Date}
}

func (s *ArchiveSource) Version(ctx context.Context) (models.Version, error) {
	m, err := s.manifest()
	if err != nil {
		return models.Version{}, err
	}
	fv, err := s.files.Version(ctx)
	if err != nil {
		return models.Version{}, err
	}
	return archiveVersion(m.Version, fv), nil
}

func (s *ArchiveSource) Load(ctx context.Context) (models.Version, *models.ArchiveData, error) {
	m, err := s.manifest()
	if err != nil {
		return models.Version{}, nil, err
	}
	fv, rows, err := s.files.Fetch(ctx)
	if err != nil {
		return models.Version{}, nil, err
	}
	idx, err := BuildArchiveIndex(rows, m.Data, s.baseURL)
	if err != nil {
		return models.Version{}, nil, err
	}
	return archiveVersion(m.Version, fv), &models.ArchiveData{Manifest: m.Data, Index: idx}, nil
}

type contentKey struct {
	uuid string
	md5  string
	size int64
}

type dayKey struct {
	uuid string
	date string
}

// BuildArchiveIndex joins manifest directories onto the file list, assigns download URLs
// and marks the final file of each (uuid, file_date).
//
// Only non-duplicate files get a URL of their own; duplicates take the URL of the
// original with the same uuid, hash and size. Files whose dataset is missing from the
// manifest, and duplicates without an original, have no URL.
func BuildArchiveIndex(rows []models.FileIndexRow, manifest *models.Manifest, baseURL string) (*models.ArchiveIndex, error) {
	files := make([]models.ArchiveFile, len(rows))
	originals := make(map[contentKey]string)

	for i, r := range rows {
		f := models.ArchiveFile{
			UUID:          r.UUID,
			FileName:      r.FileName,
			FileTimestamp: r.FileTimestamp,
			FileDate:      r.FileDate,
			FileDuplicate: r.FileDuplicate,
			FileMD5:       r.FileMD5,
			FileSize:      r.FileSize,
		}
		if ts, ok := utils.ParseTimestamp(r.FileTimestamp); ok {
			f.Timestamp = ts
			if f.FileDate == "" {
				f.FileDate = ts.Format("2006-01-02")
			}
		}
		if d := utils.ParseDate(f.FileDate); d.OK {
			f.FileDate = d.Date.String()
		}

		ds, ok := manifest.Lookup(r.UUID)
		if ok {
			f.DirParent = ds.DirParent
			f.DirFile = ds.DirFile
		}
		if ok && !f.IsDuplicate() {
			u, err := url.JoinPath(baseURL, ds.DirParent, ds.DirFile, r.FileName)
			if err != nil {
				return nil, fmt.Errorf("%w: build url for %s: %w", ErrUpstreamParse, r.FileName, err)
			}
			f.FileURL = &u
			key := contentKey{r.UUID, r.FileMD5, r.FileSize}
			if _, seen := originals[key]; !seen {
				originals[key] = u
			}
		}
		files[i] = f
	}

	missing := 0
	for i := range files {
		f := &files[i]
		if !f.IsDuplicate() {
			continue
		}
		if u, ok := originals[contentKey{f.UUID, f.FileMD5, f.FileSize}]; ok {
			f.FileURL = &u
		} else {
			missing++
		}
	}
	if missing > 0 {
		slog.Warn("Duplicate archive files without an original", "files", missing)
	}

	markFinalForDate(files)
	return models.NewArchiveIndex(files), nil
}

// markFinalForDate flags, per (uuid, file_date), the first file holding the latest
// timestamp. Files tied on that timestamp after the first stay unflagged so each day has
// exactly one final file.
func markFinalForDate(files []models.ArchiveFile) {
	latest := make(map[dayKey]int)
	for i, f := range files {
		k := dayKey{f.UUID, f.FileDate}
		j, ok := latest[k]
		if !ok || later(f, files[j]) {
			latest[k] = i
		}
	}
	for _, i := range latest {
		files[i].FileFinalForDate = 1
	}
}

// later orders by parsed timestamp and falls back to the raw text when either side did
// not parse.
func later(a, b models.ArchiveFile) bool {
	if !a.Timestamp.IsZero() && !b.Timestamp.IsZero() {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.FileTimestamp > b.FileTimestamp
}
