// Package syncer normalizes the spreadsheet process log into records and
// performs the destructive full-replace synchronization against the store.
package syncer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lilnaht/excelfile-automation/internal/config"
	"github.com/lilnaht/excelfile-automation/internal/excel"
	"github.com/lilnaht/excelfile-automation/internal/store"
)

// Process-log sheet convention: the cleaned workbook keeps the original
// document's numbering, with a banner row above the headers and unrelated
// scratch columns after the first ten.
const (
	processSheet       = "DB Process"
	processHeaderRow   = 2
	processDataStart   = 3
	processColumnLimit = 10

	// identityKey disqualifies blank trailing rows from synchronization.
	identityKey = "Process&Item"

	taxRateHeaderRow = 1
	taxRateDataStart = 2
)

// Result summarizes a synchronization run.
type Result struct {
	// ProcessRecords is the number of process records persisted.
	ProcessRecords int

	// TaxRateRecords is the number of tax-rate records persisted. Zero when
	// the tax-rate step was skipped or failed (a tax-rate failure does not
	// fail the run).
	TaxRateRecords int

	// Skipped is true when the source yielded no surviving process records
	// and the store was deliberately left untouched.
	Skipped bool
}

// Synchronizer runs the spreadsheet-to-store ETL.
type Synchronizer struct {
	store store.Store
	src   config.SourceConfig
}

// New returns a Synchronizer reading the workbooks named in src and writing
// to st.
func New(st store.Store, src config.SourceConfig) *Synchronizer {
	return &Synchronizer{store: st, src: src}
}

// BuildRecords zips each data row with the header sequence positionally,
// yielding one record per row. A row shorter than the header gets empty
// strings for the missing trailing fields, so every record carries exactly
// one key per non-empty header label. When identityKey is non-empty, rows
// whose value at that key is empty are dropped.
func BuildRecords(t *excel.Table, identityKey string) []store.Record {
	var records []store.Record
	for _, row := range t.Rows {
		rec := make(store.Record, len(t.Headers))
		for i, header := range t.Headers {
			if header == "" {
				continue
			}
			value := ""
			if i < len(row) {
				value = row[i]
			}
			rec[header] = value
		}
		if len(rec) == 0 {
			continue
		}
		if identityKey != "" && rec[identityKey] == "" {
			continue
		}
		records = append(records, rec)
	}
	return records
}

// Run synchronizes the process log and then the tax-rate table, in strict
// order, and finally upserts the last-update marker. A tax-rate failure is
// logged and swallowed; any other failure aborts the run and the affected
// collection is left in whatever state the failed step produced.
func (s *Synchronizer) Run(ctx context.Context) (Result, error) {
	var res Result

	table, err := excel.Extract(s.src.ProcessWorkbook, processSheet,
		processHeaderRow, processDataStart, processColumnLimit)
	if err != nil {
		return res, fmt.Errorf("extract process log: %w", err)
	}

	records := BuildRecords(table, identityKey)
	slog.Info("process log extracted",
		"rows", len(table.Rows),
		"records", len(records),
	)

	if len(records) == 0 {
		// Nothing to persist. The previous generation stays in place
		// rather than being replaced with an empty collection.
		slog.Info("no process records to synchronize, skipping")
		res.Skipped = true
	} else {
		if err := s.replaceAll(ctx, store.ProcessCollection, records); err != nil {
			return res, err
		}
		res.ProcessRecords = len(records)
		slog.Info("process records synchronized", "count", len(records))
	}

	// A tax-rate failure must not mask the primary sync's success.
	n, err := s.syncTaxRates(ctx)
	if err != nil {
		slog.Error("tax-rate sync failed, continuing", "error", err)
	} else {
		res.TaxRateRecords = n
	}

	now := time.Now().UTC()
	if err := s.store.UpsertMarker(ctx, now); err != nil {
		return res, fmt.Errorf("record last update: %w", err)
	}
	slog.Info("last update recorded", "at", now.Format(time.RFC3339))

	return res, nil
}

// replaceAll deletes every existing row and bulk-inserts the new generation.
// The insert only runs when the delete succeeded; there is no rollback.
func (s *Synchronizer) replaceAll(ctx context.Context, collection string, records []store.Record) error {
	slog.Debug("clearing collection", "collection", collection)
	if err := s.store.DeleteAll(ctx, collection); err != nil {
		return fmt.Errorf("clear %s: %w", collection, err)
	}

	slog.Debug("inserting records", "collection", collection, "count", len(records))
	if err := s.store.InsertMany(ctx, collection, records); err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}

// syncTaxRates replaces the secondary tax-rate collection. The workbook is
// optional; a missing file skips the step without error.
func (s *Synchronizer) syncTaxRates(ctx context.Context) (int, error) {
	if s.src.TaxRateWorkbook == "" {
		return 0, nil
	}
	if _, err := os.Stat(s.src.TaxRateWorkbook); os.IsNotExist(err) {
		slog.Info("tax-rate workbook not found, skipping", "path", s.src.TaxRateWorkbook)
		return 0, nil
	}

	table, err := excel.Extract(s.src.TaxRateWorkbook, "", taxRateHeaderRow, taxRateDataStart, 0)
	if err != nil {
		return 0, fmt.Errorf("extract tax rates: %w", err)
	}

	records := BuildRecords(table, "")
	if len(records) == 0 {
		slog.Info("no tax-rate records to synchronize, skipping")
		return 0, nil
	}

	if err := s.replaceAll(ctx, store.TaxRateCollection, records); err != nil {
		return 0, err
	}
	slog.Info("tax rates synchronized", "count", len(records))
	return len(records), nil
}
