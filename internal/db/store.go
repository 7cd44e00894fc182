package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"exam_project/internal/models"
)

// timeLayout has a fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store keeps the history of runs. It is a report only: whether a file
// needs downloading is decided by the archive on disk, never by this table.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty SQLite path")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragma := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	}

	for _, stmt := range pragma {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("pragma: %w", err)
		}
	}
	return nil
}

func migrate(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	resource TEXT NOT NULL,
	started_at TEXT NOT NULL,
	finished_at TEXT NOT NULL,
	pages INTEGER NOT NULL,
	pages_failed INTEGER NOT NULL,
	downloaded INTEGER NOT NULL,
	skipped INTEGER NOT NULL,
	failed INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

CREATE TABLE IF NOT EXISTS run_failures (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	path TEXT NOT NULL,
	url TEXT,
	error TEXT,
	FOREIGN KEY(run_id) REFERENCES runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_run_failures_run_id ON run_failures(run_id);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// NewRunID returns a fresh identifier for a run.
func NewRunID() string {
	return uuid.NewString()
}

// RecordRun stores a finished run and its failures. An empty RunID is filled in.
func (s *Store) RecordRun(ctx context.Context, summary *models.Summary) error {
	if summary.RunID == "" {
		summary.RunID = NewRunID()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO runs (id, resource, started_at, finished_at, pages, pages_failed, downloaded, skipped, failed)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, summary.RunID, summary.Resource,
		summary.StartedAt.UTC().Format(timeLayout), summary.FinishedAt.UTC().Format(timeLayout),
		summary.Pages, summary.PagesFailed, summary.Downloaded, summary.Skipped, summary.Failed)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, f := range summary.Failures {
		_, err := tx.ExecContext(ctx, `
INSERT INTO run_failures (run_id, path, url, error) VALUES (?, ?, ?, ?)
`, summary.RunID, f.Path, f.URL, f.Error)
		if err != nil {
			return fmt.Errorf("insert failure: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListRuns returns the latest runs, newest first, with their failures.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]models.Summary, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, resource, started_at, finished_at, pages, pages_failed, downloaded, skipped, failed
FROM runs
ORDER BY started_at DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Summary
	for rows.Next() {
		var (
			run               models.Summary
			started, finished string
		)
		if err := rows.Scan(&run.RunID, &run.Resource, &started, &finished,
			&run.Pages, &run.PagesFailed, &run.Downloaded, &run.Skipped, &run.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if run.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if run.FinishedAt, err = time.Parse(timeLayout, finished); err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	rows.Close()

	for i := range runs {
		failures, err := s.failures(ctx, runs[i].RunID)
		if err != nil {
			return nil, err
		}
		runs[i].Failures = failures
	}
	return runs, nil
}

func (s *Store) failures(ctx context.Context, runID string) ([]models.Failure, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT path, url, error FROM run_failures WHERE run_id = ? ORDER BY id
`, runID)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var out []models.Failure
	for rows.Next() {
		var (
			f        models.Failure
			url, msg sql.NullString
		)
		if err := rows.Scan(&f.Path, &url, &msg); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.URL = url.String
		f.Error = msg.String
		out = append(out, f)
	}
	return out, rows.Err()
}
