package dataio

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// History is the SQLite-backed index of measurement runs. It records when a
// run started and finished, how it ended, and which files it produced, so
// that data directories stay navigable months later.
type History struct {
	db *sql.DB
}

// Run is one row of the history index.
type Run struct {
	ID         string
	Experiment string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Files      []string
}

// Run status values.
const (
	StatusRunning   = "running"
	StatusDone      = "done"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	experiment  TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	status      TEXT NOT NULL,
	files       TEXT NOT NULL DEFAULT ''
);`

// OpenHistory opens (creating if necessary) the run index at path.
func OpenHistory(path string) (*History, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise run history schema: %w", err)
	}
	return &History{db: db}, nil
}

// Close releases the database handle.
func (h *History) Close() error { return h.db.Close() }

// Begin inserts a new running entry and returns its generated ID.
func (h *History) Begin(ctx context.Context, experiment string) (string, error) {
	id := uuid.NewString()
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO runs (id, experiment, started_at, status) VALUES (?, ?, ?, ?)`,
		id, experiment, time.Now().UTC(), StatusRunning)
	if err != nil {
		return "", fmt.Errorf("failed to record run start: %w", err)
	}
	return id, nil
}

// Finish marks a run as ended with the given status and output files.
func (h *History) Finish(ctx context.Context, id, status string, files []string) error {
	_, err := h.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, files = ? WHERE id = ?`,
		time.Now().UTC(), status, strings.Join(files, "\n"), id)
	if err != nil {
		return fmt.Errorf("failed to record run end: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, experiment, started_at, COALESCE(finished_at, started_at), status, files
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query run history: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var files string
		if err := rows.Scan(&r.ID, &r.Experiment, &r.StartedAt, &r.FinishedAt, &r.Status, &files); err != nil {
			return nil, fmt.Errorf("failed to scan run history row: %w", err)
		}
		if files != "" {
			r.Files = strings.Split(files, "\n")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
