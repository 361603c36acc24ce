// Package db loads the census table from a SQL source. SQL Server is the
// production source; Postgres, SQLite and ClickHouse share the same
// column-driven decoder.
package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"census-grid/census"
	gerrors "census-grid/pkg/errors"
)

// Driver identifies a census source implementation.
type Driver string

const (
	DriverMSSQL      Driver = "mssql"      // SQL Server, stored procedure call
	DriverPostgres   Driver = "postgres"   // PostgreSQL via lib/pq
	DriverSQLite     Driver = "sqlite"     // embedded sqlite file
	DriverClickHouse Driver = "clickhouse" // ClickHouse over database/sql
	DriverMemory     Driver = "memory"     // no database, fallback sample only
)

const (
	// DefaultMSSQLQuery is the stored procedure the census is read from.
	DefaultMSSQLQuery = "SET NOCOUNT ON; EXEC Census_Eng"
	// DefaultTableQuery is used by the non SQL Server drivers.
	DefaultTableQuery = "SELECT * FROM census"
)

// Config holds census source configuration
type Config struct {
	Driver   Driver
	DSN      string // overrides the host/port/... fields when set
	Host     string
	Port     int // 0 selects the driver's default port
	Database string
	Username string
	Password string
	Encrypt  bool
	Query    string
	Timeout  time.Duration
}

// DefaultConfig returns default development configuration
func DefaultConfig() *Config {
	return &Config{
		Driver:   DriverMSSQL,
		Host:     "localhost",
		Database: "census",
		Encrypt:  true,
		Timeout:  30 * time.Second,
	}
}

// query returns the configured query or the driver default.
func (c *Config) query() string {
	if strings.TrimSpace(c.Query) != "" {
		return c.Query
	}
	if c.Driver == DriverMSSQL {
		return DefaultMSSQLQuery
	}
	return DefaultTableQuery
}

// Source produces the master census table.
type Source interface {
	Load(ctx context.Context) (census.Table, error)
	Ping(ctx context.Context) error
	Close() error
	Driver() Driver
}

// Open selects and opens a source for the configured driver.
func Open(cfg *Config) (Source, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	switch cfg.Driver {
	case DriverMSSQL, "":
		return openMSSQL(cfg)
	case DriverPostgres:
		return openPostgres(cfg)
	case DriverSQLite:
		return openSQLite(cfg)
	case DriverClickHouse:
		return openClickHouse(cfg)
	case DriverMemory:
		return memorySource{}, nil
	default:
		return nil, fmt.Errorf("unknown census driver %q", cfg.Driver)
	}
}

// SQLSource reads the census through any database/sql driver.
type SQLSource struct {
	db      *sqlx.DB
	driver  Driver
	query   string
	timeout time.Duration
}

// NewSQLSource wraps an open connection.
func NewSQLSource(db *sqlx.DB, driver Driver, query string, timeout time.Duration) *SQLSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &SQLSource{db: db, driver: driver, query: query, timeout: timeout}
}

// Driver implements Source.
func (s *SQLSource) Driver() Driver { return s.driver }

// Ping checks database connectivity
func (s *SQLSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLSource) Close() error {
	return s.db.Close()
}

// DB exposes the underlying connection for tests and tooling.
func (s *SQLSource) DB() *sqlx.DB { return s.db }

// Load runs the census query and decodes every row.
func (s *SQLSource) Load(ctx context.Context) (census.Table, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryxContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query census: %w", err)
	}
	defer rows.Close()

	var table census.Table
	for rows.Next() {
		record := make(map[string]any)
		if err := rows.MapScan(record); err != nil {
			return nil, fmt.Errorf("scan census row: %w", err)
		}
		table = append(table, DecodeRow(record))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate census rows: %w", err)
	}
	return census.AssignIDs(table), nil
}

func portOr(port, fallback int) int {
	if port > 0 {
		return port
	}
	return fallback
}

type memorySource struct{}

func (memorySource) Load(context.Context) (census.Table, error) { return census.Fallback(), nil }
func (memorySource) Ping(context.Context) error                 { return nil }
func (memorySource) Close() error                               { return nil }
func (memorySource) Driver() Driver                             { return DriverMemory }

// LoadWithFallback loads the census and substitutes the fallback sample on
// any failure. The returned error is informational; the table is always usable.
func LoadWithFallback(ctx context.Context, src Source) (census.Table, error) {
	if src == nil {
		return census.Fallback(), nil
	}
	table, err := src.Load(ctx)
	if err != nil {
		wrapped := gerrors.NewLoadFailedError(string(src.Driver()), err)
		log.Warn().Err(err).Str("driver", string(src.Driver())).Msg("could not load census from database, using sample data")
		return census.Fallback(), wrapped
	}
	log.Info().Str("driver", string(src.Driver())).Int("rows", len(table)).Msg("census loaded")
	return table, nil
}
