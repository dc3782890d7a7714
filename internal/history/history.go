// Package history records installations in a local SQLite database so they
// can be listed and inspected later; it performs no rollback. This is separate from
// the JSONL audit log: the audit log captures operation lifecycle events,
// this store captures what was installed and how.
package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"cortex/internal/logging"
)

// Status of a recorded installation.
const (
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// Record is one installation.
type Record struct {
	ID          string
	Kind        string // install / rollback
	Packages    []string
	Commands    []string
	Status      string
	Error       string
	StartedAt   time.Time
	CompletedAt time.Time
}

// Store wraps the installations database.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS installations (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	packages TEXT NOT NULL,
	commands TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_installations_status ON installations(status);
`

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Record inserts a new in-progress installation and returns its ID.
func (s *Store) Record(kind string, packages, commands []string, startedAt time.Time) (string, error) {
	id := uuid.NewString()[:8]
	pkgJSON, _ := json.Marshal(packages)
	cmdJSON, _ := json.Marshal(commands)
	_, err := s.db.Exec(
		`INSERT INTO installations (id, kind, packages, commands, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, kind, string(pkgJSON), string(cmdJSON), StatusInProgress, startedAt.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record installation: %w", err)
	}
	logging.Infof(logging.CategoryHistory, "recorded installation %s (%v)", id, packages)
	return id, nil
}

// Update finalizes a record's status and error text.
func (s *Store) Update(id, status, errText string) error {
	_, err := s.db.Exec(
		`UPDATE installations SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		status, errText, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update installation %s: %w", id, err)
	}
	return nil
}

// Get returns one record by ID.
func (s *Store) Get(id string) (Record, error) {
	row := s.db.QueryRow(
		`SELECT id, kind, packages, commands, status, error, started_at, COALESCE(completed_at, started_at)
		 FROM installations WHERE id = ?`, id)
	return scanRecord(row)
}

// List returns the most recent records, optionally filtered by status.
func (s *Store) List(limit int, status string) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id, kind, packages, commands, status, error, started_at, COALESCE(completed_at, started_at)
		 FROM installations`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return records, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scannable) (Record, error) {
	var r Record
	var pkgJSON, cmdJSON string
	if err := row.Scan(&r.ID, &r.Kind, &pkgJSON, &cmdJSON, &r.Status, &r.Error, &r.StartedAt, &r.CompletedAt); err != nil {
		return Record{}, err
	}
	json.Unmarshal([]byte(pkgJSON), &r.Packages)
	json.Unmarshal([]byte(cmdJSON), &r.Commands)
	return r, nil
}
