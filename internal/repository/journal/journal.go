// Package journal keeps a local history of indexing runs in SQLite.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // database/sql driver "sqlite"

	"github.com/kailas-cloud/archivist/internal/domain"
	"github.com/kailas-cloud/archivist/internal/domain/run"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id          TEXT NOT NULL,
	source          TEXT NOT NULL,
	started_at      TEXT NOT NULL,
	finished_at     TEXT NOT NULL,
	found           INTEGER NOT NULL,
	unparsed        INTEGER NOT NULL,
	already_indexed INTEGER NOT NULL,
	added           INTEGER NOT NULL,
	chunks          INTEGER NOT NULL,
	empty           INTEGER NOT NULL,
	failed          INTEGER NOT NULL,
	verbatim        INTEGER NOT NULL,
	summarized      INTEGER NOT NULL,
	PRIMARY KEY (run_id, source)
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
`

// Journal is a SQLite-backed run history.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends one source report. Recording the same run and source twice
// replaces the earlier row.
func (j *Journal) Record(ctx context.Context, r run.Report) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs (
			run_id, source, started_at, finished_at, found, unparsed, already_indexed,
			added, chunks, empty, failed, verbatim, summarized
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, string(r.Source),
		formatTime(r.StartedAt), formatTime(r.FinishedAt),
		r.Found, r.Unparsed, r.AlreadyIndexed,
		r.Added, r.Chunks, r.Empty, r.Failed, r.Verbatim, r.Summarized,
	)
	if err != nil {
		return fmt.Errorf("record run %s/%s: %w", r.RunID, r.Source, err)
	}
	return nil
}

// Recent returns up to n reports, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]run.Report, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, source, started_at, finished_at, found, unparsed, already_indexed,
			added, chunks, empty, failed, verbatim, summarized
		FROM runs
		ORDER BY started_at DESC, run_id DESC, source ASC
		LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []run.Report
	for rows.Next() {
		var (
			r                 run.Report
			source            string
			started, finished string
		)
		if err := rows.Scan(
			&r.RunID, &source, &started, &finished,
			&r.Found, &r.Unparsed, &r.AlreadyIndexed,
			&r.Added, &r.Chunks, &r.Empty, &r.Failed, &r.Verbatim, &r.Summarized,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Source = domain.Source(source)
		r.StartedAt = parseTime(started)
		r.FinishedAt = parseTime(finished)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
