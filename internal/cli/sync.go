package cli

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/lilnaht/excelfile-automation/internal/store"
	"github.com/lilnaht/excelfile-automation/internal/syncer"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replace the remote collections from the source workbooks",
	Long: `Read the cleaned process-log workbook (and the tax-rate workbook if
present), replace the remote collections with their contents, and
record the update timestamp. The run is skipped when the process
workbook yields zero records.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, pool, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	st := store.NewPostgres(pool, cfg.Database.StatementTimeout)

	res, err := syncer.New(st, cfg.Source).Run(ctx)
	if err != nil {
		return err
	}

	slog.Info("sync complete",
		"process_records", res.ProcessRecords,
		"tax_rate_records", res.TaxRateRecords,
		"skipped", res.Skipped,
	)
	return nil
}
