// Package messages persists the agent conversation for a run.
//
// DESIGN: One SQLite database per run. The agent's stream-json lines are
// stored as received, stamped with run metadata, so a later run can replay
// the conversation history without re-parsing the agent's transcript format.
package messages

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	_ "modernc.org/sqlite"

	"github.com/harforge/harforge/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	goal       TEXT NOT NULL,
	har_path   TEXT NOT NULL,
	model      TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	seq        INTEGER NOT NULL,
	kind       TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_run ON messages(run_id, seq);
`

// Store is a per-run conversation store backed by SQLite.
type Store struct {
	db    *sql.DB
	runID string
	seq   int64
}

// Open opens (or creates) the message database at path and registers the run.
func Open(path, runID, goal, harPath, model string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), config.DirPerm); err != nil {
		return nil, fmt.Errorf("messages: create dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("messages: open %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("messages: init schema: %w", err)
	}

	if _, err := db.Exec(
		`INSERT OR IGNORE INTO runs (id, goal, har_path, model, created_at) VALUES (?, ?, ?, ?, ?)`,
		runID, goal, harPath, model, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("messages: register run: %w", err)
	}

	s := &Store{db: db, runID: runID}
	if err := s.db.QueryRow(
		`SELECT COALESCE(MAX(seq), 0) FROM messages WHERE run_id = ?`, runID,
	).Scan(&s.seq); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("messages: read sequence: %w", err)
	}
	return s, nil
}

// Append stores one raw agent message, stamping run_id and received_at into
// the JSON body before insert. Non-JSON bodies are stored as-is.
func (s *Store) Append(kind string, raw []byte) error {
	body := string(raw)
	if gjson.Valid(body) {
		if stamped, err := sjson.Set(body, "run_id", s.runID); err == nil {
			body = stamped
		}
		if stamped, err := sjson.Set(body, "received_at", time.Now().UTC().Format(time.RFC3339Nano)); err == nil {
			body = stamped
		}
	}

	s.seq++
	_, err := s.db.Exec(
		`INSERT INTO messages (run_id, seq, kind, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		s.runID, s.seq, kind, body, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("messages: append: %w", err)
	}
	return nil
}

// History returns the stored message bodies for the run, in order.
func (s *Store) History() ([]string, error) {
	rows, err := s.db.Query(
		`SELECT body FROM messages WHERE run_id = ? ORDER BY seq`, s.runID,
	)
	if err != nil {
		return nil, fmt.Errorf("messages: history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("messages: scan: %w", err)
		}
		out = append(out, body)
	}
	return out, rows.Err()
}

// Count returns how many messages the run has stored.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE run_id = ?`, s.runID).Scan(&n)
	return n, err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
