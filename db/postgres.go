package db

import (
	"fmt"
	"net/url"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // register the postgres driver
)

func openPostgres(cfg *Config) (Source, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = postgresConnectionString(cfg)
	}
	conn, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	return NewSQLSource(conn, DriverPostgres, cfg.query(), cfg.Timeout), nil
}

func postgresConnectionString(cfg *Config) string {
	sslmode := "disable"
	if cfg.Encrypt {
		sslmode = "require"
	}
	u := &url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", cfg.Host, portOr(cfg.Port, 5432)),
		Path:     "/" + cfg.Database,
		RawQuery: url.Values{"sslmode": {sslmode}}.Encode(),
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String()
}
