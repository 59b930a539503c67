// Package cli defines the costforecast command tree. The binary has two
// real entry points: a long-running serve command hosting the local HTTP
// API, and a one-shot sync command that replaces the remote collections
// from the source workbooks.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lilnaht/excelfile-automation/internal/config"
	"github.com/lilnaht/excelfile-automation/internal/logging"
	"github.com/lilnaht/excelfile-automation/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "costforecast",
	Short: "Cost-forecast document service",
	Long: `costforecast ingests a cleaned process-log workbook into a remote
store and serves a local HTTP API that renders revision-numbered
cost-forecast workbooks per import process.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the command tree. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads the environment, configuration, and logging, then opens
// the connection pool and ensures the schema exists. Both subcommands
// start here. The caller owns the returned pool.
func bootstrap(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	// Overload overwrites existing env vars with the .env contents.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load configuration: %w", err)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"addr", cfg.Server.Addr(),
		"db_max_conns", cfg.Database.MaxConns,
		"process_workbook", cfg.Source.ProcessWorkbook,
		"generated_root", cfg.Source.GeneratedRoot,
	)

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	st := store.NewPostgres(pool, cfg.Database.StatementTimeout)
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}

	return cfg, pool, nil
}
