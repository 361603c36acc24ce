package db

import (
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/jmoiron/sqlx"
)

func openClickHouse(cfg *Config) (Source, error) {
	opts, err := clickHouseOptions(cfg)
	if err != nil {
		return nil, err
	}
	conn := clickhouse.OpenDB(opts)
	return NewSQLSource(sqlx.NewDb(conn, "clickhouse"), DriverClickHouse, cfg.query(), cfg.Timeout), nil
}

// clickHouseOptions parses a DSN when one is given, otherwise builds
// options from the discrete connection fields.
func clickHouseOptions(cfg *Config) (*clickhouse.Options, error) {
	if cfg.DSN != "" {
		opts, err := clickhouse.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid clickhouse dsn: %w", err)
		}
		return opts, nil
	}
	return &clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, portOr(cfg.Port, 9000))},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	}, nil
}
