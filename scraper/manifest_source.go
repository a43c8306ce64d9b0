// scraper/manifest_source.go
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"github.com/opencovid/api/models"
)

// datasets.json nests entries as {group: {category: [dataset, ...]}}.
var datasetEntries = jp.MustParseString("$.*.*[*]")

// ParseManifest flattens datasets.json into a UUID-keyed manifest.
func ParseManifest(data []byte) (*models.Manifest, error) {
	root, err := oj.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse datasets.json: %w", ErrParse, err)
	}

	m := &models.Manifest{Datasets: make(map[string]models.Dataset)}
	for _, entry := range datasetEntries.Get(root) {
		obj, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		uuid, _ := obj["uuid"].(string)
		if uuid == "" {
			continue
		}
		raw, err := json.Marshal(obj)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to encode dataset %s: %w", ErrParse, uuid, err)
		}
		dirParent, _ := obj["dir_parent"].(string)
		dirFile, _ := obj["dir_file"].(string)
		if _, dup := m.Datasets[uuid]; !dup {
			m.Order = append(m.Order, uuid)
		}
		m.Datasets[uuid] = models.Dataset{UUID: uuid, DirParent: dirParent, DirFile: dirFile, Raw: raw}
	}
	if len(m.Datasets) == 0 {
		return nil, fmt.Errorf("%w: datasets.json contains no datasets", ErrParse)
	}
	sort.Strings(m.Order)
	return m, nil
}

// ManifestSource downloads datasets.json. Its version is the Last-Modified header of the
// GitHub commits listing for the file, which changes only when the file is committed.
type ManifestSource struct {
	fetcher     *Fetcher
	manifestURL string
	commitsURL  string
}

func NewManifestSource(fetcher *Fetcher, manifestURL, commitsURL string) *ManifestSource {
	return &ManifestSource{fetcher: fetcher, manifestURL: manifestURL, commitsURL: commitsURL}
}

func (s *ManifestSource) Name() string { return "datasets" }

func (s *ManifestSource) Version(ctx context.Context) (models.Version, error) {
	token, err := s.fetcher.LastModified(ctx, s.commitsURL)
	if err != nil {
		return models.Version{}, err
	}
	return models.NewVersion(token), nil
}

func (s *ManifestSource) Load(ctx context.Context) (models.Version, *models.Manifest, error) {
	v, err := s.Version(ctx)
	if err != nil {
		return models.Version{}, nil, err
	}
	body, _, err := s.fetcher.Get(ctx, s.manifestURL)
	if err != nil {
		return models.Version{}, nil, err
	}
	m, err := ParseManifest(body)
	if err != nil {
		return models.Version{}, nil, err
	}
	slog.Info("Parsed dataset manifest", "datasets", len(m.Datasets), "version", v.Token)
	return v, m, nil
}

// FileIndexClient downloads the archive file index from the object store.
type FileIndexClient struct {
	fetcher *Fetcher
	url     string
}

func NewFileIndexClient(fetcher *Fetcher, url string) *FileIndexClient {
	return &FileIndexClient{fetcher: fetcher, url: url}
}

// Version returns the object's Last-Modified header.
func (c *FileIndexClient) Version(ctx context.Context) (models.Version, error) {
	token, err := c.fetcher.LastModified(ctx, c.url)
	if err != nil {
		return models.Version{}, err
	}
	return models.NewVersion(token), nil
}

// Fetch downloads and parses the file index. The version is taken from the same response.
func (c *FileIndexClient) Fetch(ctx context.Context) (models.Version, []models.FileIndexRow, error) {
	body, header, err := c.fetcher.Get(ctx, c.url)
	if err != nil {
		return models.Version{}, nil, err
	}
	token, err := lastModified(c.url, header)
	if err != nil {
		return models.Version{}, nil, err
	}
	rows, err := ParseFileIndexCsv(bytes.NewReader(body))
	if err != nil {
		return models.Version{}, nil, err
	}
	slog.Info("Parsed archive file index", "files", len(rows), "version", token)
	return models.NewVersion(token), rows, nil
}
