package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lilnaht/excelfile-automation/internal/forecast"
	"github.com/lilnaht/excelfile-automation/internal/quote"
	"github.com/lilnaht/excelfile-automation/internal/store"
	"github.com/lilnaht/excelfile-automation/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP API",
	Long: `Start the HTTP server that answers status, generation, download and
last-update requests for the desktop client. The server binds to
loopback by default and shuts down gracefully on SIGINT/SIGTERM.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, pool, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := store.NewPostgres(pool, cfg.Database.StatementTimeout)

	codes, err := forecast.LoadCodeMap(cfg.Source.CodeMapFile)
	if err != nil {
		return err
	}

	quotes := quote.NewClient(cfg.Quote)
	generator := forecast.New(st, quotes, codes, cfg.Source)
	server := web.NewServer(st, generator, cfg)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	slog.Info("server stopped")
	return nil
}
