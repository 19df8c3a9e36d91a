// SPDX-License-Identifier: MPL-2.0

// Package ledger keeps a history of report runs in PostgreSQL so that
// deliveries can be compared across versions.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/keinus/make-sps/pkg/category"
	"github.com/keinus/make-sps/pkg/fingerprint"
	"github.com/keinus/make-sps/pkg/record"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("ledger run not found")

const schema = `
CREATE TABLE IF NOT EXISTS sps_runs (
	id          BIGSERIAL PRIMARY KEY,
	device      TEXT        NOT NULL,
	version     TEXT        NOT NULL DEFAULT '',
	algorithm   TEXT        NOT NULL,
	root        TEXT        NOT NULL DEFAULT '',
	file_count  INTEGER     NOT NULL,
	skipped     INTEGER     NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sps_files (
	run_id      BIGINT  NOT NULL REFERENCES sps_runs(id) ON DELETE CASCADE,
	csu         TEXT    NOT NULL DEFAULT '',
	category    TEXT    NOT NULL,
	ordinal     INTEGER NOT NULL,
	dir         TEXT    NOT NULL,
	rel_path    TEXT    NOT NULL,
	name        TEXT    NOT NULL,
	version     TEXT    NOT NULL DEFAULT '',
	size        BIGINT  NOT NULL,
	checksum    TEXT    NOT NULL,
	file_date   TEXT    NOT NULL,
	part_number TEXT    NOT NULL DEFAULT '',
	measure     TEXT    NOT NULL DEFAULT '',
	description TEXT    NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS sps_files_run_idx ON sps_files (run_id);
CREATE INDEX IF NOT EXISTS sps_runs_device_idx ON sps_runs (device, created_at DESC);
`

var fileColumns = []string{
	"run_id", "csu", "category", "ordinal", "dir", "rel_path", "name", "version",
	"size", "checksum", "file_date", "part_number", "measure", "description",
}

type (
	// Postgres stores runs through a pgx connection pool.
	Postgres struct {
		pool *pgxpool.Pool
	}

	// Run describes one report build.
	Run struct {
		ID        int64
		Device    string
		Version   string
		Algorithm fingerprint.Algorithm
		Root      string
		FileCount int
		Skipped   int
		CreatedAt time.Time
	}
)

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing ledger dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnLifetime = time.Hour
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating ledger pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to ledger: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// Migrate creates the ledger tables when missing.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrating ledger schema: %w", err)
	}
	return nil
}

// Record stores run and its records in one transaction and returns the new
// run id. run.ID, run.FileCount and run.CreatedAt are ignored.
func (p *Postgres) Record(ctx context.Context, run Run, records []record.FileRecord) (int64, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("starting ledger transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after Commit

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO sps_runs (device, version, algorithm, root, file_count, skipped)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		run.Device, run.Version, string(run.Algorithm), run.Root, len(records), run.Skipped,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting run: %w", err)
	}

	_, err = tx.CopyFrom(ctx, pgx.Identifier{"sps_files"}, fileColumns,
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			r := records[i]
			return []any{
				id, r.CSU, r.Category.String(), r.Ordinal, r.Dir, r.RelPath, r.Name, r.Version,
				r.Size, r.Checksum, r.Date, r.PartNumber, r.Measure, r.Description,
			}, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("copying file records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing run: %w", err)
	}
	return id, nil
}

// Runs lists the runs of device, newest first.
func (p *Postgres) Runs(ctx context.Context, device string) ([]Run, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, device, version, algorithm, root, file_count, skipped, created_at
		 FROM sps_runs WHERE device = $1 ORDER BY created_at DESC, id DESC`, device)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var alg string
		if err := rows.Scan(&r.ID, &r.Device, &r.Version, &alg, &r.Root, &r.FileCount, &r.Skipped, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Algorithm = fingerprint.Algorithm(alg)
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// Files returns the records stored for a run, ordered by path.
func (p *Postgres) Files(ctx context.Context, runID int64) ([]record.FileRecord, error) {
	var device string
	err := p.pool.QueryRow(ctx, `SELECT device FROM sps_runs WHERE id = $1`, runID).Scan(&device)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %d: %w", runID, err)
	}

	rows, err := p.pool.Query(ctx,
		`SELECT csu, category, ordinal, dir, rel_path, name, version, size, checksum,
		        file_date, part_number, measure, description
		 FROM sps_files WHERE run_id = $1 ORDER BY rel_path`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying files of run %d: %w", runID, err)
	}
	defer rows.Close()

	var out []record.FileRecord
	for rows.Next() {
		r := record.FileRecord{Device: device}
		var cat string
		if err := rows.Scan(&r.CSU, &cat, &r.Ordinal, &r.Dir, &r.RelPath, &r.Name, &r.Version, &r.Size,
			&r.Checksum, &r.Date, &r.PartNumber, &r.Measure, &r.Description); err != nil {
			return nil, fmt.Errorf("scanning file record: %w", err)
		}
		if r.Category, err = category.Parse(cat); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating file records: %w", err)
	}
	return out, nil
}
