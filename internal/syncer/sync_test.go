package syncer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/lilnaht/excelfile-automation/internal/config"
	"github.com/lilnaht/excelfile-automation/internal/excel"
	"github.com/lilnaht/excelfile-automation/internal/store"
	"github.com/xuri/excelize/v2"
)

func TestBuildRecords_ShortRowPadding(t *testing.T) {
	table := &excel.Table{
		Headers: []string{"Process", "Invoice", "Price"},
		Rows: [][]string{
			{"IMP-001"},
		},
	}

	records := BuildRecords(table, "")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}

	rec := records[0]
	if len(rec) != 3 {
		t.Errorf("expected exactly 3 keys, got %d: %v", len(rec), rec)
	}
	if rec["Invoice"] != "" || rec["Price"] != "" {
		t.Errorf("missing trailing fields must be empty strings, got %v", rec)
	}
}

func TestBuildRecords_IdentityKeyFilter(t *testing.T) {
	table := &excel.Table{
		Headers: []string{"Process&Item", "Process"},
		Rows: [][]string{
			{"IMP-001#10", "IMP-001"},
			{"", "stale"},
			{"IMP-002#10", "IMP-002"},
			{}, // fully blank trailing row
		},
	}

	records := BuildRecords(table, "Process&Item")
	if len(records) != 2 {
		t.Fatalf("expected 2 surviving records, got %d", len(records))
	}
	for _, rec := range records {
		if rec["Process&Item"] == "" {
			t.Errorf("record with empty identity key survived: %v", rec)
		}
	}
}

func TestBuildRecords_EmptyHeaderLabelsSkipped(t *testing.T) {
	table := &excel.Table{
		Headers: []string{"Process", "", "Price"},
		Rows:    [][]string{{"IMP-001", "noise", "10"}},
	}

	records := BuildRecords(table, "")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if _, ok := records[0][""]; ok {
		t.Error("empty header label must not become a record key")
	}
	if records[0]["Price"] != "10" {
		t.Errorf("positional alignment broken: %v", records[0])
	}
}

// writeProcessWorkbook writes a workbook following the process-log
// convention: sheet "DB Process", banner row 1, headers row 2, data row 3.
func writeProcessWorkbook(t *testing.T, dataRows [][]any) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(processSheet); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		t.Fatalf("delete default sheet: %v", err)
	}

	headers := []any{"Process&Item", "Process", "Invoice", "Product Code", "Price"}
	if err := f.SetSheetRow(processSheet, "A2", &headers); err != nil {
		t.Fatalf("set headers: %v", err)
	}
	for i, row := range dataRows {
		cell, _ := excelize.CoordinatesToCellName(1, 3+i)
		r := row
		if err := f.SetSheetRow(processSheet, cell, &r); err != nil {
			t.Fatalf("set row: %v", err)
		}
	}

	path := filepath.Join(t.TempDir(), "cleaned_data.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	return path
}

func TestRun_FullReplace(t *testing.T) {
	mem := store.NewMemory()

	// Previous generation that must disappear entirely.
	if err := mem.InsertMany(context.Background(), store.ProcessCollection, []store.Record{
		{"Process&Item": "OLD#1", "Process": "OLD"},
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	path := writeProcessWorkbook(t, [][]any{
		{"IMP-001#10", "IMP-001", "INV/1", "P-10", "10.50"},
		{"IMP-001#20", "IMP-001", "INV/1", "P-20", "7.00"},
		{"", "", "", "", ""},
	})

	s := New(mem, config.SourceConfig{ProcessWorkbook: path})
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.ProcessRecords != 2 {
		t.Errorf("expected 2 synced records, got %d", res.ProcessRecords)
	}

	all := mem.All(store.ProcessCollection)
	if len(all) != 2 {
		t.Fatalf("store should hold exactly the new generation, got %d records", len(all))
	}
	for _, rec := range all {
		if rec["Process"] == "OLD" {
			t.Error("previous generation survived the replace")
		}
	}

	if _, ok, _ := mem.LastUpdate(context.Background()); !ok {
		t.Error("marker not upserted after successful run")
	}
}

func TestRun_ZeroRecordsSkipsWithoutEmptying(t *testing.T) {
	mem := store.NewMemory()
	if err := mem.InsertMany(context.Background(), store.ProcessCollection, []store.Record{
		{"Process&Item": "KEEP#1", "Process": "KEEP"},
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	path := writeProcessWorkbook(t, [][]any{
		{"", "", "", "", ""},
	})

	s := New(mem, config.SourceConfig{ProcessWorkbook: path})
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !res.Skipped {
		t.Error("expected run to be marked skipped")
	}
	if len(mem.All(store.ProcessCollection)) != 1 {
		t.Error("skip must leave the previous generation in place")
	}
}

func TestRun_DeleteFailureAbortsBeforeInsert(t *testing.T) {
	mem := store.NewMemory()
	mem.FailDelete = errors.New("store unavailable")

	path := writeProcessWorkbook(t, [][]any{
		{"IMP-001#10", "IMP-001", "INV/1", "P-10", "10.50"},
	})

	s := New(mem, config.SourceConfig{ProcessWorkbook: path})
	if _, err := s.Run(context.Background()); err == nil {
		t.Fatal("expected run to fail when delete fails")
	}

	if len(mem.All(store.ProcessCollection)) != 0 {
		t.Error("insert must not run after a failed delete")
	}
}

func TestRun_TaxRateFailureDoesNotFailRun(t *testing.T) {
	mem := store.NewMemory()

	processPath := writeProcessWorkbook(t, [][]any{
		{"IMP-001#10", "IMP-001", "INV/1", "P-10", "10.50"},
	})

	// A workbook that is not a real xlsx makes the tax-rate step fail.
	taxPath := filepath.Join(t.TempDir(), "taxFare.xlsx")
	if err := os.WriteFile(taxPath, []byte("not a workbook"), 0o644); err != nil {
		t.Fatalf("write bogus tax file: %v", err)
	}

	s := New(mem, config.SourceConfig{
		ProcessWorkbook: processPath,
		TaxRateWorkbook: taxPath,
	})
	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("tax-rate failure must not fail the run: %v", err)
	}
	if res.ProcessRecords != 1 {
		t.Errorf("primary sync should have succeeded, got %d records", res.ProcessRecords)
	}
	if res.TaxRateRecords != 0 {
		t.Errorf("tax-rate count should be zero on failure, got %d", res.TaxRateRecords)
	}
	if _, ok, _ := mem.LastUpdate(context.Background()); !ok {
		t.Error("marker should still be upserted")
	}
}

func TestRun_MissingTaxRateWorkbookSkipped(t *testing.T) {
	mem := store.NewMemory()

	processPath := writeProcessWorkbook(t, [][]any{
		{"IMP-001#10", "IMP-001", "INV/1", "P-10", "10.50"},
	})

	s := New(mem, config.SourceConfig{
		ProcessWorkbook: processPath,
		TaxRateWorkbook: filepath.Join(t.TempDir(), "missing.xlsx"),
	})
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("missing tax-rate workbook must not fail the run: %v", err)
	}
}
