// database/connection.go
package database

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/opencovid/api/config"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

// DSN returns the connection string for cfg. An explicit DSN wins; otherwise a MySQL DSN
// is assembled from host, port, user, password and database name.
func DSN(cfg config.DatabaseConfig) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.Driver != DriverMySQL {
		return "", fmt.Errorf("driver %q requires a dsn", cfg.Driver)
	}
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	return mc.FormatDSN(), nil
}

// InitDB opens the connection pool and verifies it with a ping.
func InitDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// Every connection to an in-memory SQLite database sees its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
	}
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Connected to the database", "driver", cfg.Driver)
	return db, nil
}
