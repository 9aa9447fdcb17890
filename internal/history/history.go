// Package history persists learning runs in a local SQLite database so
// earlier templates can be inspected, compared, and pruned.
package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/shahbajlive/templar/internal/learn"
)

// ErrNotFound is returned when a run ID is not in the store.
var ErrNotFound = errors.New("run not found")

// RunSummary is the listing view of a stored run.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Examples    int       `json:"examples"`
	Tasks       int       `json:"tasks"`
	Confidence  float64   `json:"confidence"`
	Level       string    `json:"level"`
}

// Store is a SQLite-backed run archive.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (and creates if needed) the history database. An empty
// path uses ~/.config/templar/history.db.
func Open(path string) (*Store, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		path = filepath.Join(home, ".config", "templar", "history.db")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	store := &Store{db: db, path: path}
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the schema. Safe to call repeatedly.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id       TEXT PRIMARY KEY,
			generated_at TIMESTAMP NOT NULL,
			examples     INTEGER NOT NULL,
			tasks        INTEGER NOT NULL,
			confidence   REAL NOT NULL,
			level        TEXT NOT NULL,
			result       TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs(generated_at);
	`)
	if err != nil {
		return fmt.Errorf("migrate history db: %w", err)
	}
	return nil
}

// Save stores one completed run. The full result is kept as JSON; the
// indexed columns exist for listing without decoding every row.
func (s *Store) Save(result *learn.Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", result.RunID, err)
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (run_id, generated_at, examples, tasks, confidence, level, result)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.RunID,
		result.GeneratedAt.UTC(),
		len(result.ExampleIDs),
		len(result.Template.Tasks),
		result.Confidence.Overall,
		string(result.Confidence.Level),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", result.RunID, err)
	}

	slog.Debug("run saved", "run_id", result.RunID, "path", s.path)
	return nil
}

// Get loads one run by ID.
func (s *Store) Get(runID string) (*learn.Result, error) {
	var payload string
	err := s.db.QueryRow(`SELECT result FROM runs WHERE run_id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	var result learn.Result
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("decode run %s: %w", runID, err)
	}
	return &result, nil
}

// Latest loads the most recent run, or ErrNotFound on an empty store.
func (s *Store) Latest() (*learn.Result, error) {
	var runID string
	err := s.db.QueryRow(`SELECT run_id FROM runs ORDER BY generated_at DESC, run_id DESC LIMIT 1`).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load latest run: %w", err)
	}
	return s.Get(runID)
}

// List returns run summaries, newest first. A non-positive limit means
// all runs.
func (s *Store) List(limit int) ([]RunSummary, error) {
	query := `SELECT run_id, generated_at, examples, tasks, confidence, level
		FROM runs ORDER BY generated_at DESC, run_id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.GeneratedAt, &r.Examples, &r.Tasks, &r.Confidence, &r.Level); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Prune deletes all but the newest keep runs and reports how many rows
// were removed.
func (s *Store) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(`
		DELETE FROM runs WHERE run_id NOT IN (
			SELECT run_id FROM runs ORDER BY generated_at DESC, run_id DESC LIMIT ?
		)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}

	if n > 0 {
		slog.Info("history pruned", "removed", n, "kept", keep)
	}
	return int(n), nil
}
