// config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port      string `yaml:"port" env:"OPENCOVID_PORT" validate:"required,numeric"`
	Timezone  string `yaml:"timezone" env:"OPENCOVID_TIMEZONE" validate:"required"`
	LogLevel  string `yaml:"log_level" env:"OPENCOVID_LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	LogFormat string `yaml:"log_format" env:"OPENCOVID_LOG_FORMAT" validate:"omitempty,oneof=json text"`
}

// DatabaseConfig configures the refresh audit log. An empty Driver disables it.
type DatabaseConfig struct {
	Driver   string `yaml:"driver" env:"OPENCOVID_DB_DRIVER" validate:"omitempty,oneof=mysql sqlite"`
	DSN      string `yaml:"dsn" env:"OPENCOVID_DB_DSN"`
	Host     string `yaml:"host" env:"OPENCOVID_DB_HOST"`
	Port     string `yaml:"port" env:"OPENCOVID_DB_PORT"`
	User     string `yaml:"user" env:"OPENCOVID_DB_USER"`
	Password string `yaml:"password" env:"OPENCOVID_DB_PASSWORD"`
	DBName   string `yaml:"dbname" env:"OPENCOVID_DB_NAME"`
}

// Enabled reports whether refreshes should be recorded.
func (d DatabaseConfig) Enabled() bool { return d.Driver != "" }

type UpstreamConfig struct {
	TimeseriesRepo     string `yaml:"timeseries_repo" env:"OPENCOVID_TIMESERIES_REPO" validate:"required"`
	TimeseriesBranch   string `yaml:"timeseries_branch" env:"OPENCOVID_TIMESERIES_BRANCH" validate:"required"`
	RepoDir            string `yaml:"repo_dir" env:"OPENCOVID_REPO_DIR" validate:"required"`
	DatasetsURL        string `yaml:"datasets_url" env:"OPENCOVID_DATASETS_URL" validate:"required,url"`
	DatasetsCommitsURL string `yaml:"datasets_commits_url" env:"OPENCOVID_DATASETS_COMMITS_URL" validate:"required,url"`
	FileIndexURL       string `yaml:"file_index_url" env:"OPENCOVID_FILE_INDEX_URL" validate:"required,url"`
	ArchiveBaseURL     string `yaml:"archive_base_url" env:"OPENCOVID_ARCHIVE_BASE_URL" validate:"required,url"`
	TimeoutStr         string `yaml:"timeout" env:"OPENCOVID_UPSTREAM_TIMEOUT"`
	RequestsPerMinute  int    `yaml:"requests_per_minute" env:"OPENCOVID_UPSTREAM_RPM" validate:"gte=0"`

	Timeout time.Duration `yaml:"-"`
}

type DataFreshnessConfig struct {
	TimeseriesIntervalStr string `yaml:"timeseries_interval" env:"OPENCOVID_TIMESERIES_INTERVAL"`
	DatasetsIntervalStr   string `yaml:"datasets_interval" env:"OPENCOVID_DATASETS_INTERVAL"`
	ArchiveIntervalStr    string `yaml:"archive_interval" env:"OPENCOVID_ARCHIVE_INTERVAL"`

	// Parsed durations
	TimeseriesInterval time.Duration `yaml:"-"`
	DatasetsInterval   time.Duration `yaml:"-"`
	ArchiveInterval    time.Duration `yaml:"-"`
}

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Upstream      UpstreamConfig      `yaml:"upstream"`
	DataFreshness DataFreshnessConfig `yaml:"data_freshness"`
}

// Default returns the configuration used when no file or environment overrides apply.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:      "8080",
			Timezone:  "America/Toronto",
			LogLevel:  "info",
			LogFormat: "json",
		},
		Upstream: UpstreamConfig{
			TimeseriesRepo:     "https://github.com/ccodwg/CovidTimelineCanada.git",
			TimeseriesBranch:   "main",
			RepoDir:            "data/CovidTimelineCanada",
			DatasetsURL:        "https://raw.githubusercontent.com/ccodwg/Covid19CanadaArchive/master/datasets.json",
			DatasetsCommitsURL: "https://api.github.com/repos/ccodwg/Covid19CanadaArchive/commits?path=datasets.json",
			FileIndexURL:       "https://data.opencovid.ca/archive/file_index.csv",
			ArchiveBaseURL:     "https://data.opencovid.ca/archive",
			TimeoutStr:         "30s",
			RequestsPerMinute:  30,
		},
		DataFreshness: DataFreshnessConfig{
			TimeseriesIntervalStr: "5m",
			DatasetsIntervalStr:   "5m",
			ArchiveIntervalStr:    "30m",
		},
	}
}

// Load builds the configuration from defaults, an optional .env file, an optional YAML
// file at path and OPENCOVID_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if _, err := time.LoadLocation(cfg.Server.Timezone); err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Server.Timezone, err)
	}
	return &cfg, nil
}

func (c *Config) parseDurations() error {
	durations := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"upstream.timeout", c.Upstream.TimeoutStr, &c.Upstream.Timeout},
		{"data_freshness.timeseries_interval", c.DataFreshness.TimeseriesIntervalStr, &c.DataFreshness.TimeseriesInterval},
		{"data_freshness.datasets_interval", c.DataFreshness.DatasetsIntervalStr, &c.DataFreshness.DatasetsInterval},
		{"data_freshness.archive_interval", c.DataFreshness.ArchiveIntervalStr, &c.DataFreshness.ArchiveInterval},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", d.name, err)
		}
		if v <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.raw)
		}
		*d.dst = v
	}
	return nil
}

// Location returns the timezone "today" is computed in.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
