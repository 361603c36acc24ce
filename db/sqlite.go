package db

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // register the sqlite driver
)

const defaultSQLitePath = "census.db"

func openSQLite(cfg *Config) (Source, error) {
	path := cfg.DSN
	if path == "" {
		path = defaultSQLitePath
	}
	conn, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	return NewSQLSource(conn, DriverSQLite, cfg.query(), cfg.Timeout), nil
}
