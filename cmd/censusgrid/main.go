// censusgrid serves and queries the census grid.
//
// Usage:
//
//	censusgrid serve --port 8050 --enable-merge
//	censusgrid execute --carrier A --format csv
//	censusgrid options
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"census-grid/api"
	"census-grid/census"
	"census-grid/db"
	"census-grid/i18n"
	"census-grid/internal/master"
	"census-grid/internal/metrics"
	"census-grid/pkg/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	var logCloser io.Closer
	return &cli.App{
		Name:    "censusgrid",
		Usage:   "Filterable, editable census table backed by SQL Server",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"CENSUSGRID_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "json",
				Usage:   "Log format (json, console)",
				EnvVars: []string{"CENSUSGRID_LOG_FORMAT"},
			},
			&cli.StringFlag{
				Name:    "log-file",
				Usage:   "Also write logs to this file, rotated",
				EnvVars: []string{"CENSUSGRID_LOG_FILE"},
			},
			&cli.StringFlag{
				Name:    "db-driver",
				Value:   string(db.DriverMSSQL),
				Usage:   "Census source (mssql, postgres, sqlite, clickhouse, memory)",
				EnvVars: []string{"CENSUS_DB_DRIVER"},
			},
			&cli.StringFlag{
				Name:    "db-host",
				Value:   "localhost",
				Usage:   "Database host",
				EnvVars: []string{"CENSUS_DB_HOST"},
			},
			&cli.IntFlag{
				Name:    "db-port",
				Usage:   "Database port (0 uses the driver default)",
				EnvVars: []string{"CENSUS_DB_PORT"},
			},
			&cli.StringFlag{
				Name:    "db-name",
				Value:   "census",
				Usage:   "Database name",
				EnvVars: []string{"CENSUS_DB_NAME"},
			},
			&cli.StringFlag{
				Name:    "db-user",
				Usage:   "Database user",
				EnvVars: []string{"CENSUS_DB_USER"},
			},
			&cli.StringFlag{
				Name:    "db-password",
				Usage:   "Database password",
				EnvVars: []string{"CENSUS_DB_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "db-dsn",
				Usage:   "Full connection string, overrides host/port/name/user/password",
				EnvVars: []string{"CENSUS_DB_DSN"},
			},
			&cli.StringFlag{
				Name:    "db-query",
				Usage:   "Query returning the census result set",
				EnvVars: []string{"CENSUS_DB_QUERY"},
			},
			&cli.BoolFlag{
				Name:    "db-encrypt",
				Value:   true,
				Usage:   "Encrypt the database connection",
				EnvVars: []string{"CENSUS_DB_ENCRYPT"},
			},
			&cli.DurationFlag{
				Name:    "db-timeout",
				Value:   30 * time.Second,
				Usage:   "Census load timeout",
				EnvVars: []string{"CENSUS_DB_TIMEOUT"},
			},
		},

		Before: func(c *cli.Context) error {
			cfg := logging.DefaultConfig()
			cfg.Level = c.String("log-level")
			cfg.Console = c.String("log-format") == "console"
			cfg.File = c.String("log-file")
			closer, err := logging.Setup(cfg)
			if err != nil {
				return fmt.Errorf("configure logging: %w", err)
			}
			logCloser = closer
			return nil
		},
		After: func(c *cli.Context) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},

		Commands: []*cli.Command{
			serveCommand(),
			executeCommand(),
			optionsCommand(),
		},
	}
}

func sourceConfig(c *cli.Context) *db.Config {
	return &db.Config{
		Driver:   db.Driver(c.String("db-driver")),
		DSN:      c.String("db-dsn"),
		Host:     c.String("db-host"),
		Port:     c.Int("db-port"),
		Database: c.String("db-name"),
		Username: c.String("db-user"),
		Password: c.String("db-password"),
		Encrypt:  c.Bool("db-encrypt"),
		Query:    c.String("db-query"),
		Timeout:  c.Duration("db-timeout"),
	}
}

// loadMaster opens the configured source and loads the master table. A
// source that cannot be opened or read yields the fallback table.
func loadMaster(ctx context.Context, c *cli.Context) (*master.Store, db.Source) {
	store := master.NewStore()
	src, err := db.Open(sourceConfig(c))
	if err != nil {
		log.Warn().Err(err).Msg("could not open census source, using sample data")
		store.Replace(census.Fallback())
		return store, nil
	}
	table, _ := db.LoadWithFallback(ctx, src)
	store.Replace(table)
	return store, src
}

// =============================================================================
// SERVE COMMAND
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the census grid web server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   api.DefaultConfig().Port,
				Usage:   "HTTP server port",
				EnvVars: []string{"CENSUSGRID_PORT"},
			},
			&cli.StringFlag{
				Name:    "cors-origins",
				Value:   "*",
				Usage:   "Comma-separated list of allowed CORS origins",
				EnvVars: []string{"CENSUSGRID_CORS_ORIGINS"},
			},
			&cli.StringFlag{
				Name:    "default-language",
				Value:   i18n.DefaultLanguage,
				Usage:   "Language used when neither ?lang= nor the lang cookie is set",
				EnvVars: []string{"CENSUSGRID_DEFAULT_LANGUAGE"},
			},
			&cli.BoolFlag{
				Name:    "enable-merge",
				Usage:   "Accept edited views on /api/v1/merge",
				EnvVars: []string{"CENSUSGRID_ENABLE_MERGE"},
			},
			&cli.BoolFlag{
				Name:    "merge-insert",
				Usage:   "Append edited rows that are not in the master table",
				EnvVars: []string{"CENSUSGRID_MERGE_INSERT"},
			},
			&cli.BoolFlag{
				Name:    "merge-prune",
				Usage:   "Delete master rows removed from an edited view",
				EnvVars: []string{"CENSUSGRID_MERGE_PRUNE"},
			},
			&cli.IntFlag{
				Name:    "view-capacity",
				Value:   master.DefaultViewCapacity,
				Usage:   "Number of recent views kept for merging",
				EnvVars: []string{"CENSUSGRID_VIEW_CAPACITY"},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	ctx := c.Context
	store, src := loadMaster(ctx, c)
	if src != nil {
		defer src.Close()
	}

	recorder := metrics.NewRecorder()
	recorder.TrackRows(store.Len)

	svc := master.NewService(store,
		master.WithMetrics(recorder),
		master.WithViews(master.NewViews(c.Int("view-capacity"))),
		master.WithMergePolicy(census.MergePolicy{
			Insert: c.Bool("merge-insert"),
			Prune:  c.Bool("merge-prune"),
		}),
	)

	corsOrigins := strings.Split(c.String("cors-origins"), ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}

	cfg := api.DefaultConfig()
	cfg.Port = c.Int("port")
	cfg.CORSOrigins = corsOrigins
	cfg.DefaultLanguage = i18n.Normalize(c.String("default-language"))
	cfg.EnableMerge = c.Bool("enable-merge")

	opts := []api.Option{api.WithMetrics(recorder)}
	if src != nil {
		opts = append(opts, api.WithSource(src))
	}
	server := api.NewServer(svc, cfg, opts...)
	return server.StartWithGracefulShutdown(ctx)
}

// =============================================================================
// EXECUTE COMMAND
// =============================================================================

func executeCommand() *cli.Command {
	return &cli.Command{
		Name:  "execute",
		Usage: "Print the census rows matching the given filters",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "carrier", Usage: "Carrier filter"},
			&cli.StringFlag{Name: "plan-sponsor", Usage: "Plan sponsor filter"},
			&cli.StringFlag{Name: "member-status", Usage: "Member status filter"},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Value:   "json",
				Usage:   "Output format (json, csv)",
			},
			&cli.StringFlag{
				Name:  "lang",
				Value: i18n.DefaultLanguage,
				Usage: "Language of the csv header row",
			},
		},
		Action: runExecute,
	}
}

func runExecute(c *cli.Context) error {
	format := strings.ToLower(c.String("format"))
	if format != "json" && format != "csv" {
		return fmt.Errorf("unsupported format %q (want json or csv)", format)
	}

	store, src := loadMaster(c.Context, c)
	if src != nil {
		defer src.Close()
	}
	svc := master.NewService(store)
	view, err := svc.Execute(c.Context, census.Selection{
		Carrier:      c.String("carrier"),
		PlanSponsor:  c.String("plan-sponsor"),
		MemberStatus: c.String("member-status"),
	})
	if err != nil {
		return err
	}

	out := c.App.Writer
	if format == "json" {
		return writeJSON(out, view)
	}
	return writeCSV(out, i18n.MustCatalog().Headers(c.String("lang"), view.Columns), view)
}

func writeCSV(w io.Writer, headers []string, view master.View) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	record := make([]string, len(view.Columns))
	for _, row := range view.Rows {
		for i, col := range view.Columns {
			record[i] = row.Cell(col)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// =============================================================================
// OPTIONS COMMAND
// =============================================================================

func optionsCommand() *cli.Command {
	return &cli.Command{
		Name:   "options",
		Usage:  "Print the distinct carrier, plan sponsor and status values",
		Action: runOptions,
	}
}

func runOptions(c *cli.Context) error {
	store, src := loadMaster(c.Context, c)
	if src != nil {
		defer src.Close()
	}
	return writeJSON(c.App.Writer, master.NewService(store).Options(c.Context))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
