// Package forecast renders per-process cost-forecast documents from the
// record store, by copying a fixed template and filling its header cells and
// repeating item table.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/lilnaht/excelfile-automation/internal/config"
	"github.com/lilnaht/excelfile-automation/internal/quote"
	"github.com/lilnaht/excelfile-automation/internal/revision"
	"github.com/lilnaht/excelfile-automation/internal/store"
	"github.com/xuri/excelize/v2"
)

// ErrNoRecords is returned when the store holds no records for the
// requested process key. Callers report it as a not-found condition, not an
// internal failure.
var ErrNoRecords = errors.New("no records found for process")

// rateUnavailableText is written into the rate cell when the quote window is
// exhausted. The string (rather than a number) signals "check manually" to
// the document's reader.
const rateUnavailableText = "Checar API"

// invoiceSanitizer strips path-hostile characters from the invoice id
// before it becomes part of a filename.
var invoiceSanitizer = regexp.MustCompile(`[/\s]`)

// QuoteSource resolves the reference exchange rate for the document header.
type QuoteSource interface {
	Lookup(ctx context.Context, ref time.Time) (quote.Quote, bool)
}

// Result is a successful generation.
type Result struct {
	FileName string
}

// Generator builds cost-forecast documents.
type Generator struct {
	store  store.Store
	quotes QuoteSource
	codes  CodeMap
	src    config.SourceConfig
	locks  *revision.Locker

	// now is replaceable in tests.
	now func() time.Time
}

// New returns a Generator reading records from st, rates from quotes, and
// writing documents under src.GeneratedRoot.
func New(st store.Store, quotes QuoteSource, codes CodeMap, src config.SourceConfig) *Generator {
	return &Generator{
		store:  st,
		quotes: quotes,
		codes:  codes,
		src:    src,
		locks:  revision.NewLocker(),
		now:    time.Now,
	}
}

// Generate renders a new revision of the process's cost-forecast document
// and returns its filename. Any failure aborts with a single error; a
// partially written copy may remain on disk and must be treated as unusable.
func (g *Generator) Generate(ctx context.Context, processKey string) (Result, error) {
	key := strings.ToUpper(strings.TrimSpace(processKey))

	records, err := g.store.SelectByProcess(ctx, key)
	if err != nil {
		return Result{}, fmt.Errorf("query process records: %w", err)
	}
	if len(records) == 0 {
		return Result{}, fmt.Errorf("%w %s", ErrNoRecords, key)
	}

	// The first record doubles as the header record.
	header := records[0]
	now := g.now()

	processID := header.Process()
	if processID == "" {
		processID = "PROCESSO"
	}
	invoice := header["Invoice"]
	if invoice == "" {
		invoice = "INVOICE"
	}
	safeInvoice := invoiceSanitizer.ReplaceAllString(invoice, "_")

	processDir := filepath.Join(g.src.GeneratedRoot, processID)
	if err := os.MkdirAll(processDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}

	baseFileName := fmt.Sprintf("%s - %s - Cost Forecast - %s - Rev1.0.xlsx",
		processID, now.Format("2006-01-02"), safeInvoice)

	// The scan-then-write window is a critical section per output
	// directory; without it two concurrent generations could resolve the
	// same revision and one would silently overwrite the other.
	release := g.locks.Lock(processDir)
	defer release()

	rev := revision.Next(processDir, baseFileName)
	fileName := strings.Replace(baseFileName, "Rev1.0", rev, 1)
	outPath := filepath.Join(processDir, fileName)

	// The template is only ever copied, never opened for writing.
	if err := copyFile(g.src.Template, outPath); err != nil {
		return Result{}, fmt.Errorf("copy template: %w", err)
	}

	f, err := excelize.OpenFile(outPath)
	if err != nil {
		return Result{}, fmt.Errorf("open document copy: %w", err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(templateSheet); err != nil || idx < 0 {
		return Result{}, fmt.Errorf("template sheet %q not found", templateSheet)
	}

	st := newStyler(f)

	q, haveQuote := g.quotes.Lookup(ctx, time.Time{})
	if err := g.writeHeader(f, st, header, now, q, haveQuote); err != nil {
		return Result{}, fmt.Errorf("write header: %w", err)
	}
	if err := writeItems(f, st, records); err != nil {
		return Result{}, fmt.Errorf("write items: %w", err)
	}

	if err := f.Save(); err != nil {
		return Result{}, fmt.Errorf("save document: %w", err)
	}

	slog.Info("document generated",
		"process", processID,
		"file", fileName,
		"records", len(records),
		"revision", rev,
		"rate_available", haveQuote,
	)
	return Result{FileName: fileName}, nil
}

// writeHeader fills the one-time header cells from the header record and the
// resolved quote.
func (g *Generator) writeHeader(f *excelize.File, st *styler, rec store.Record, now time.Time, q quote.Quote, haveQuote bool) error {
	if err := f.SetCellValue(templateSheet, cellGenerationDate, now); err != nil {
		return err
	}

	for _, field := range headerFields {
		value := rec[field.key]
		if field.translate {
			value = g.codes.Translate(value)
		}
		if err := f.SetCellValue(templateSheet, field.cell, value); err != nil {
			return err
		}
	}

	if serial, ok := dateSerial(rec[availabilityField]); ok {
		if err := f.SetCellValue(templateSheet, cellAvailability, serial); err != nil {
			return err
		}
		if err := st.apply(cellAvailability, fmtDate); err != nil {
			return err
		}
	} else if raw := rec[availabilityField]; raw != "" {
		if err := f.SetCellValue(templateSheet, cellAvailability, raw); err != nil {
			return err
		}
	}

	if haveQuote {
		value, _ := q.Value.Float64()
		if err := f.SetCellValue(templateSheet, cellRateValue, value); err != nil {
			return err
		}
		if err := f.SetCellValue(templateSheet, cellRateDate, q.AsOf); err != nil {
			return err
		}
	} else {
		// Type-variant on purpose: a string here tells the reader the
		// rate needs a manual check.
		if err := f.SetCellValue(templateSheet, cellRateValue, rateUnavailableText); err != nil {
			return err
		}
	}
	return st.apply(cellRateValue, fmtRate)
}

// writeItems writes one row per record into the repeating item table, in
// store-return order.
func writeItems(f *excelize.File, st *styler, records []store.Record) error {
	for i, rec := range records {
		row := itemStartRow + i
		for _, col := range itemColumns {
			cell := fmt.Sprintf("%s%d", col.col, row)
			raw := rec[col.key]

			var err error
			switch col.kind {
			case kindInteger:
				err = writeNumeric(f, st, cell, parseNumber(raw), fmtInteger)
			case kindDecimal2:
				err = writeNumeric(f, st, cell, parseNumber(raw), fmtDecimal2)
			case kindPercent:
				err = writeNumeric(f, st, cell, percentFraction(raw), fmtPercent)
			default:
				err = f.SetCellValue(templateSheet, cell, raw)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func writeNumeric(f *excelize.File, st *styler, cell string, value float64, numFmt string) error {
	if err := f.SetCellValue(templateSheet, cell, value); err != nil {
		return err
	}
	return st.apply(cell, numFmt)
}

// styler caches excelize style ids per number format for one document.
type styler struct {
	f     *excelize.File
	cache map[string]int
}

func newStyler(f *excelize.File) *styler {
	return &styler{f: f, cache: make(map[string]int)}
}

// apply sets a custom number format on a single cell.
func (s *styler) apply(cell, numFmt string) error {
	id, ok := s.cache[numFmt]
	if !ok {
		var err error
		id, err = s.f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
		if err != nil {
			return fmt.Errorf("style %q: %w", numFmt, err)
		}
		s.cache[numFmt] = id
	}
	return s.f.SetCellStyle(templateSheet, cell, cell, id)
}

// copyFile copies src to dst, truncating dst if it exists.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
