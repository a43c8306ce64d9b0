// database/refresh_store.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opencovid/api/models"
)

// ErrNotInitialized is returned by a RefreshLog without a database.
var ErrNotInitialized = errors.New("database connection is not initialized")

var refreshLogSchema = map[string][]string{
	DriverMySQL: {`
		CREATE TABLE IF NOT EXISTS refresh_log (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			source_name VARCHAR(64) NOT NULL,
			version VARCHAR(255) NOT NULL,
			rows_loaded INT NOT NULL,
			duration_ms BIGINT NOT NULL,
			published_at VARCHAR(40) NOT NULL,
			INDEX idx_refresh_log_source (source_name, id)
		)`,
	},
	DriverSQLite: {`
		CREATE TABLE IF NOT EXISTS refresh_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source_name TEXT NOT NULL,
			version TEXT NOT NULL,
			rows_loaded INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			published_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_log_source ON refresh_log (source_name, id)`,
	},
}

// RefreshLog is the audit trail of published snapshots.
type RefreshLog struct {
	db     *sql.DB
	driver string
}

// NewRefreshLog wraps db, whose dialect is named by driver.
func NewRefreshLog(db *sql.DB, driver string) *RefreshLog {
	return &RefreshLog{db: db, driver: driver}
}

// Migrate creates the refresh_log table if it does not exist.
func (l *RefreshLog) Migrate(ctx context.Context) error {
	if l == nil || l.db == nil {
		return ErrNotInitialized
	}
	stmts, ok := refreshLogSchema[l.driver]
	if !ok {
		return fmt.Errorf("unsupported driver %q", l.driver)
	}
	for _, stmt := range stmts {
		if _, err := l.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create refresh_log: %w", err)
		}
	}
	return nil
}

// RecordRefresh inserts one publish.
func (l *RefreshLog) RecordRefresh(ctx context.Context, rec models.RefreshRecord) error {
	if l == nil || l.db == nil {
		return ErrNotInitialized
	}
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO refresh_log (source_name, version, rows_loaded, duration_ms, published_at)
		VALUES (?, ?, ?, ?, ?)`,
		rec.SourceName, rec.Version, rec.Rows, rec.DurationMS,
		rec.PublishedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record refresh for %s: %w", rec.SourceName, err)
	}
	return nil
}

// RecentRefreshes returns up to limit records, newest first. An empty source matches
// every source.
func (l *RefreshLog) RecentRefreshes(ctx context.Context, source string, limit int) ([]models.RefreshRecord, error) {
	if l == nil || l.db == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, source_name, version, rows_loaded, duration_ms, published_at
		FROM refresh_log
		WHERE ? = '' OR source_name = ?
		ORDER BY id DESC
		LIMIT ?`,
		source, source, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh_log: %w", err)
	}
	defer rows.Close()

	var out []models.RefreshRecord
	for rows.Next() {
		var rec models.RefreshRecord
		var published string
		if err := rows.Scan(&rec.ID, &rec.SourceName, &rec.Version, &rec.Rows, &rec.DurationMS, &published); err != nil {
			return nil, fmt.Errorf("failed to scan refresh_log row: %w", err)
		}
		if rec.PublishedAt, err = time.Parse(time.RFC3339Nano, published); err != nil {
			return nil, fmt.Errorf("refresh_log row %d: bad published_at %q: %w", rec.ID, published, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating refresh_log rows: %w", err)
	}
	return out, nil
}
