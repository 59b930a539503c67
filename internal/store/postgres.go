package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// deleteSentinel is the unused primary key the delete-all statement excludes.
// Expressing delete-all as "id <> sentinel" keeps the statement shaped like
// every other filtered delete the upstream service accepts.
var deleteSentinel = uuid.Nil

// Postgres implements Store on a pgx connection pool.
type Postgres struct {
	pool        *pgxpool.Pool
	stmtTimeout time.Duration
}

// NewPostgres wraps a pgx pool. stmtTimeout bounds every statement so a hung
// network call cannot block a sync or generation run indefinitely.
func NewPostgres(pool *pgxpool.Pool, stmtTimeout time.Duration) *Postgres {
	return &Postgres{pool: pool, stmtTimeout: stmtTimeout}
}

// EnsureSchema creates the store's tables when they do not exist yet.
// seq preserves insertion order for SelectByProcess.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS process_records (
			id uuid PRIMARY KEY,
			seq bigserial,
			process text NOT NULL DEFAULT '',
			fields jsonb NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS process_records_process_idx ON process_records (process)`,
		`CREATE TABLE IF NOT EXISTS tax_rates (
			id uuid PRIMARY KEY,
			seq bigserial,
			fields jsonb NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sync_marker (
			id uuid PRIMARY KEY,
			last_update timestamptz NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		cctx, cancel := p.bound(ctx)
		_, err := p.pool.Exec(cctx, stmt)
		cancel()
		if err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// bound derives a context carrying the statement timeout.
func (p *Postgres) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.stmtTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.stmtTimeout)
}

// Ping probes the store with a bounded single-row read.
func (p *Postgres) Ping(ctx context.Context) error {
	cctx, cancel := p.bound(ctx)
	defer cancel()

	var id uuid.UUID
	err := p.pool.QueryRow(cctx, `SELECT id FROM process_records LIMIT 1`).Scan(&id)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("ping store: %w", err)
	}
	return nil
}

// SelectByProcess returns all records for the process key in insertion order.
func (p *Postgres) SelectByProcess(ctx context.Context, process string) ([]Record, error) {
	cctx, cancel := p.bound(ctx)
	defer cancel()

	rows, err := p.pool.Query(cctx,
		`SELECT fields FROM process_records WHERE process = $1 ORDER BY seq`, process)
	if err != nil {
		return nil, fmt.Errorf("select process records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec); err != nil {
			return nil, fmt.Errorf("scan process record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read process records: %w", err)
	}
	return records, nil
}

// DeleteAll removes every record from the collection via the sentinel filter.
func (p *Postgres) DeleteAll(ctx context.Context, collection string) error {
	if !knownCollection(collection) {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}

	cctx, cancel := p.bound(ctx)
	defer cancel()

	query := fmt.Sprintf("DELETE FROM %s WHERE id <> $1", quoteIdentifier(collection))
	if _, err := p.pool.Exec(cctx, query, deleteSentinel); err != nil {
		return fmt.Errorf("delete all from %s: %w", collection, err)
	}
	return nil
}

// InsertMany bulk-inserts records using the binary copy protocol.
func (p *Postgres) InsertMany(ctx context.Context, collection string, records []Record) error {
	if !knownCollection(collection) {
		return fmt.Errorf("%w: %s", ErrUnknownCollection, collection)
	}
	if len(records) == 0 {
		return nil
	}

	columns := []string{"id", "fields"}
	if collection == ProcessCollection {
		columns = []string{"id", "process", "fields"}
	}

	source := pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
		rec := records[i]
		if collection == ProcessCollection {
			return []any{uuid.New(), rec.Process(), rec}, nil
		}
		return []any{uuid.New(), rec}, nil
	})

	cctx, cancel := p.bound(ctx)
	defer cancel()

	n, err := p.pool.CopyFrom(cctx, pgx.Identifier{collection}, columns, source)
	if err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	if n != int64(len(records)) {
		return fmt.Errorf("insert into %s: wrote %d of %d rows", collection, n, len(records))
	}
	return nil
}

// UpsertMarker updates the existing marker row by primary key, or inserts
// one when the marker table is empty.
func (p *Postgres) UpsertMarker(ctx context.Context, at time.Time) error {
	cctx, cancel := p.bound(ctx)
	defer cancel()

	var id uuid.UUID
	err := p.pool.QueryRow(cctx, `SELECT id FROM sync_marker LIMIT 1`).Scan(&id)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = p.pool.Exec(cctx,
			`INSERT INTO sync_marker (id, last_update) VALUES ($1, $2)`, uuid.New(), at)
		if err != nil {
			return fmt.Errorf("insert sync marker: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read sync marker: %w", err)
	default:
		_, err = p.pool.Exec(cctx,
			`UPDATE sync_marker SET last_update = $1 WHERE id = $2`, at, id)
		if err != nil {
			return fmt.Errorf("update sync marker: %w", err)
		}
	}
	return nil
}

// LastUpdate reads the marker timestamp.
func (p *Postgres) LastUpdate(ctx context.Context) (time.Time, bool, error) {
	cctx, cancel := p.bound(ctx)
	defer cancel()

	var at time.Time
	err := p.pool.QueryRow(cctx, `SELECT last_update FROM sync_marker LIMIT 1`).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read last update: %w", err)
	}
	return at, true, nil
}

// quoteIdentifier wraps a SQL identifier in double quotes, escaping any
// embedded quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
