// Package history records hitgraph runs in a SQLite database so failures
// can be compared across runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	// SQLite driver
	_ "github.com/mattn/go-sqlite3"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/runner"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TIMESTAMP NOT NULL,
	duration_ms INTEGER NOT NULL,
	passed      INTEGER NOT NULL,
	failed      INTEGER NOT NULL,
	skipped     INTEGER NOT NULL,
	clean       BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS outcomes (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	test_id     TEXT NOT NULL,
	suite       TEXT NOT NULL,
	state       TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	position    INTEGER NOT NULL,
	PRIMARY KEY (run_id, test_id)
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Run is one recorded run
type Run struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Passed    int
	Failed    int
	Skipped   int
	Clean     bool
}

// Outcome is the recorded final state of one test
type Outcome struct {
	RunID    string
	TestID   string
	Suite    string
	State    string
	Duration time.Duration
	Error    string
}

// Store is a run history backed by SQLite
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database. The path may carry a
// "sqlite://" or "sqlite:" prefix.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := parseConnectionString(path)
	if dsn == "" {
		return nil, fmt.Errorf("empty history database path")
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record stores a finished run and the outcome of every test it contained.
func (s *Store) Record(ctx context.Context, result *runner.RunResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, duration_ms, passed, failed, skipped, clean) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RunID, result.StartTime.UTC(), result.Duration.Milliseconds(),
		result.Passed, result.Failed, result.Skipped, result.Clean(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (run_id, test_id, suite, state, duration_ms, error, position) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare outcome: %w", err)
	}
	defer stmt.Close()

	for i, t := range result.Tests {
		if !t.IsReal() {
			continue
		}
		suite := ""
		if t.Suite() != nil {
			suite = t.Suite().Name()
		}
		var d time.Duration
		if t.State() != graph.StateSkipped {
			d, _ = t.Duration()
		}
		msg := ""
		if err := t.Failure(); err != nil {
			msg = err.Error()
		}
		if _, err := stmt.ExecContext(ctx, result.RunID, t.Identifier(), suite, t.State().String(), d.Milliseconds(), msg, i); err != nil {
			return fmt.Errorf("insert outcome %q: %w", t.Identifier(), err)
		}
	}

	return tx.Commit()
}

// Runs returns the most recent runs, newest first
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, duration_ms, passed, failed, skipped, clean FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r  Run
			ms int64
		)
		if err := rows.Scan(&r.ID, &r.StartedAt, &ms, &r.Passed, &r.Failed, &r.Skipped, &r.Clean); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Duration = time.Duration(ms) * time.Millisecond
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return runs, nil
}

// Outcomes returns the test outcomes of one run in discovery order
func (s *Store) Outcomes(ctx context.Context, runID string) ([]Outcome, error) {
	return s.outcomes(ctx,
		`SELECT run_id, test_id, suite, state, duration_ms, error FROM outcomes WHERE run_id = ? ORDER BY position`, runID)
}

// LastFailures returns the tests that failed in the most recent run
func (s *Store) LastFailures(ctx context.Context) ([]Outcome, error) {
	return s.outcomes(ctx,
		`SELECT run_id, test_id, suite, state, duration_ms, error FROM outcomes
		 WHERE state = ? AND run_id = (SELECT id FROM runs ORDER BY started_at DESC LIMIT 1)
		 ORDER BY position`, graph.StateFailure.String())
}

func (s *Store) outcomes(ctx context.Context, query string, args ...any) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var (
			o  Outcome
			ms int64
		)
		if err := rows.Scan(&o.RunID, &o.TestID, &o.Suite, &o.State, &ms, &o.Error); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		o.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return out, nil
}

// parseConnectionString strips the sqlite scheme prefixes accepted on the
// command line
func parseConnectionString(connStr string) string {
	connStr = strings.TrimSpace(connStr)
	if strings.HasPrefix(connStr, "sqlite://") {
		return strings.TrimPrefix(connStr, "sqlite://")
	}
	return strings.TrimPrefix(connStr, "sqlite:")
}
