package db

import (
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb" // register the sqlserver driver
)

func openMSSQL(cfg *Config) (Source, error) {
	dsn := cfg.DSN
	if dsn == "" {
		dsn = mssqlConnectionString(cfg)
	}
	conn, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MSSQL connection: %w", err)
	}
	return NewSQLSource(sqlx.NewDb(conn, "sqlserver"), DriverMSSQL, cfg.query(), cfg.Timeout), nil
}

// mssqlConnectionString builds a sqlserver:// URL. Encrypted connections
// verify the server certificate.
func mssqlConnectionString(cfg *Config) string {
	host := cfg.Host
	if !strings.Contains(host, ":") {
		host = fmt.Sprintf("%s:%d", host, portOr(cfg.Port, 1433))
	}

	query := url.Values{}
	query.Add("database", cfg.Database)
	if cfg.Encrypt {
		query.Add("encrypt", "true")
		query.Add("TrustServerCertificate", "false")
	} else {
		query.Add("encrypt", "disable")
	}

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     host,
		RawQuery: query.Encode(),
	}
	if cfg.Username != "" {
		u.User = url.UserPassword(cfg.Username, cfg.Password)
	}
	return u.String()
}
