package core

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Journal is a SQLite-backed history of completed runs. It is strictly
// best-effort: orchestration never depends on it and a write failure only
// warrants a warning at the call site.
type Journal struct{ db *sql.DB }

//go:embed migrations/*.sql
var migrationFS embed.FS

// RunRecord is one journaled drain or rebalance run.
type RunRecord struct {
	ID         int64
	Kind       string // drain-host | rebalance-cluster
	Subject    string // "source -> target" or the cluster name
	Processed  int
	Moved      int
	Failures   int
	Status     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// OpenJournal opens (creating if needed) the journal database. An empty path
// resolves $XDG_DATA_HOME/vrelo/journal.db or ~/.local/share/vrelo/journal.db.
func OpenJournal(path string) (*Journal, error) {
	if path == "" {
		base := os.Getenv("XDG_DATA_HOME")
		if base == "" {
			home, _ := os.UserHomeDir()
			base = filepath.Join(home, ".local", "share")
		}
		path = filepath.Join(base, "vrelo", "journal.db")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) migrate() error {
	schema, err := migrationFS.ReadFile("migrations/0001_init.sql")
	if err != nil {
		return err
	}
	if _, err := j.db.Exec(string(schema)); err != nil {
		return fmt.Errorf("apply migration: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (j *Journal) Close() error { return j.db.Close() }

// Record appends one run to the journal.
func (j *Journal) Record(ctx context.Context, rec RunRecord) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (kind, subject, processed, moved, failures, status, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Kind, rec.Subject, rec.Processed, rec.Moved, rec.Failures, rec.Status,
		rec.StartedAt.UTC().Format(time.RFC3339), rec.FinishedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns the newest runs, most recent first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, kind, subject, processed, moved, failures, status, started_at, finished_at
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var started, finished string
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Subject, &rec.Processed, &rec.Moved,
			&rec.Failures, &rec.Status, &started, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339, started)
		rec.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		out = append(out, rec)
	}
	return out, rows.Err()
}
