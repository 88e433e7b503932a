// Package auditlog keeps a local journal of the actions this service took.
// It records what was done, never derived status; the provider stays the
// only source of truth for request state.
package auditlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one recorded action.
type Entry struct {
	ID          string    `json:"id"`
	Action      string    `json:"action"`
	IssueNumber int       `json:"issueNumber,omitempty"`
	PRNumber    int       `json:"prNumber,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Actions recorded by the API handlers.
const (
	ActionRequestCreated  = "request_created"
	ActionRequestApproved = "request_approved"
	ActionRequestRejected = "request_rejected"
	ActionRequestRevised  = "request_revised"
	ActionRequestReverted = "request_reverted"
)

type Log struct {
	conn *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id TEXT PRIMARY KEY,
	action TEXT NOT NULL,
	issue_number INTEGER NOT NULL DEFAULT 0,
	pr_number INTEGER NOT NULL DEFAULT 0,
	detail TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL DEFAULT (datetime('now'))
);
`

// DefaultPath returns the journal location under the user's home directory,
// creating the directory if needed.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	dir := filepath.Join(home, ".aimod")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}
	return filepath.Join(dir, "aimod.db"), nil
}

func Open(path string) (*Log, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	conn, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running schema migration: %w", err)
	}

	return &Log{conn: conn}, nil
}

func (l *Log) Close() error {
	return l.conn.Close()
}

// Record appends one action to the journal.
func (l *Log) Record(action string, issueNumber, prNumber int, detail string) error {
	id := uuid.New().String()
	_, err := l.conn.Exec(`
		INSERT INTO audit_log (id, action, issue_number, pr_number, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, action, issueNumber, prNumber, detail, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording action: %w", err)
	}
	return nil
}

// Recent returns the most recent entries, newest first.
func (l *Log) Recent(limit int) ([]Entry, error) {
	rows, err := l.conn.Query(`
		SELECT id, action, issue_number, pr_number, detail, created_at
		FROM audit_log
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.Action, &e.IssueNumber, &e.PRNumber, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
