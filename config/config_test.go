package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.DataFreshness.TimeseriesInterval)
	assert.Equal(t, 5*time.Minute, cfg.DataFreshness.DatasetsInterval)
	assert.Equal(t, 30*time.Minute, cfg.DataFreshness.ArchiveInterval)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 30, cfg.Upstream.RequestsPerMinute)
	assert.False(t, cfg.Database.Enabled())
	assert.Equal(t, "America/Toronto", cfg.Location().String())
}

func TestLoadFileAndEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeConfig(t, `
server:
  port: "9090"
database:
  driver: sqlite
  dsn: "file::memory:"
data_freshness:
  archive_interval: 1h
`)
	t.Setenv("OPENCOVID_PORT", "7070")
	t.Setenv("OPENCOVID_TIMESERIES_INTERVAL", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port, "environment wins over the file")
	assert.Equal(t, time.Hour, cfg.DataFreshness.ArchiveInterval)
	assert.Equal(t, 90*time.Second, cfg.DataFreshness.TimeseriesInterval)
	assert.Equal(t, 5*time.Minute, cfg.DataFreshness.DatasetsInterval)
	assert.True(t, cfg.Database.Enabled())
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENCOVID_LOG_FORMAT=text\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("OPENCOVID_LOG_FORMAT") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Server.LogFormat)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	cases := map[string]string{
		"bad duration":  "data_freshness:\n  datasets_interval: soon\n",
		"zero interval": "data_freshness:\n  archive_interval: 0s\n",
		"bad driver":    "database:\n  driver: postgres\n",
		"bad url":       "upstream:\n  datasets_url: not a url\n",
		"bad timezone":  "server:\n  timezone: Mars/Olympus\n",
		"bad format":    "server:\n  log_format: xml\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
