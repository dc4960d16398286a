package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (and creates) the run log. Use ":memory:" for an
// in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive across calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		gate_open INTEGER NOT NULL,
		forced INTEGER NOT NULL,
		policy TEXT NOT NULL,
		release_label TEXT,
		conf_path TEXT,
		conf_changed INTEGER NOT NULL,
		passes TEXT,
		error TEXT
	);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_run_id ON runs(run_id);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends run and returns its row id.
func (s *SQLiteStore) Record(ctx context.Context, run Run) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	passesJSON, err := json.Marshal(run.Passes)
	if err != nil {
		return 0, fmt.Errorf("marshal passes: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, finished_at, outcome, gate_open, forced, policy, release_label, conf_path, conf_changed, passes, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(), run.Outcome,
		run.GateOpen, run.Forced, run.Policy, run.Release, run.ConfPath, run.ConfChanged,
		string(passesJSON), run.Error,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	return res.LastInsertId()
}

// List returns runs newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, started_at, finished_at, outcome, gate_open, forced, policy, release_label, conf_path, conf_changed, passes, error
		FROM runs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// Prune keeps the newest keep runs.
func (s *SQLiteStore) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY id DESC LIMIT ?)",
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRuns(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var (
			r                    Run
			started, finished    int64
			release, confPath    sql.NullString
			passesJSON, errorMsg sql.NullString
		)
		err := rows.Scan(&r.ID, &r.RunID, &started, &finished, &r.Outcome, &r.GateOpen, &r.Forced,
			&r.Policy, &release, &confPath, &r.ConfChanged, &passesJSON, &errorMsg)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		r.Release = release.String
		r.ConfPath = confPath.String
		r.Error = errorMsg.String
		if passesJSON.String != "" {
			if err := json.Unmarshal([]byte(passesJSON.String), &r.Passes); err != nil {
				return nil, fmt.Errorf("unmarshal passes: %w", err)
			}
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return runs, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
