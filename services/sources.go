// services/sources.go
package services

import "github.com/opencovid/api/models"

// Row counters for the three published payloads.

func TimeseriesRows(ts *models.Timeseries) int {
	if ts == nil {
		return 0
	}
	return ts.Rows()
}

func ManifestRows(m *models.Manifest) int {
	if m == nil {
		return 0
	}
	return len(m.Datasets)
}

func ArchiveRows(a *models.ArchiveData) int {
	if a == nil || a.Index == nil {
		return 0
	}
	return len(a.Index.Files)
}
