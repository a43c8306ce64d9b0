// models/meta.go
package models

import "time"

// RefreshRecord is one successful snapshot publish, as kept in the refresh audit log.
type RefreshRecord struct {
	ID          int64     `db:"id" json:"id"`
	SourceName  string    `db:"source_name" json:"source_name"` // e.g., "timeseries", "datasets", "archive"
	Version     string    `db:"version" json:"version"`
	Rows        int       `db:"rows_loaded" json:"rows"`
	DurationMS  int64     `db:"duration_ms" json:"duration_ms"`
	PublishedAt time.Time `db:"published_at" json:"published_at"`
}
