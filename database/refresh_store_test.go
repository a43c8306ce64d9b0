package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencovid/api/config"
	"github.com/opencovid/api/models"
)

func newTestLog(t *testing.T) *RefreshLog {
	t.Helper()
	db, err := InitDB(config.DatabaseConfig{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	l := NewRefreshLog(db, DriverSQLite)
	require.NoError(t, l.Migrate(context.Background()))
	require.NoError(t, l.Migrate(context.Background()), "migrations are repeatable")
	return l
}

func TestRefreshLogRoundTrip(t *testing.T) {
	l := newTestLog(t)
	ctx := context.Background()
	base := time.Date(2022, 1, 3, 21, 0, 0, 0, time.UTC)

	for i, src := range []string{"timeseries", "datasets", "timeseries"} {
		require.NoError(t, l.RecordRefresh(ctx, models.RefreshRecord{
			SourceName:  src,
			Version:     "v" + string(rune('1'+i)),
			Rows:        100 * (i + 1),
			DurationMS:  int64(10 * i),
			PublishedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := l.RecentRefreshes(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "v3", all[0].Version, "newest first")
	assert.True(t, base.Add(2*time.Minute).Equal(all[0].PublishedAt))

	ts, err := l.RecentRefreshes(ctx, "timeseries", 1)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	assert.Equal(t, 300, ts[0].Rows)
	assert.Equal(t, int64(20), ts[0].DurationMS)

	none, err := l.RecentRefreshes(ctx, "archive", 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRefreshLogNotInitialized(t *testing.T) {
	var l *RefreshLog
	assert.ErrorIs(t, l.RecordRefresh(context.Background(), models.RefreshRecord{}), ErrNotInitialized)
	_, err := NewRefreshLog(nil, DriverSQLite).RecentRefreshes(context.Background(), "", 1)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestDSN(t *testing.T) {
	dsn, err := DSN(config.DatabaseConfig{Driver: DriverMySQL, Host: "db", Port: "3306", User: "api", Password: "secret", DBName: "opencovid"})
	require.NoError(t, err)
	assert.Equal(t, "api:secret@tcp(db:3306)/opencovid?parseTime=true", dsn)

	_, err = DSN(config.DatabaseConfig{Driver: DriverSQLite})
	assert.Error(t, err)
}
