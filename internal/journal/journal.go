// Package journal keeps a local SQLite log of player events: slide starts
// and ends, quiz choices, shares. One row per event, grouped by session.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	session TEXT    NOT NULL,
	slide   INTEGER NOT NULL DEFAULT -1,
	name    TEXT    NOT NULL,
	data    TEXT,
	at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_session ON events(session, id);
`

type Event struct {
	ID      int64
	Session string
	// Slide is the slide index, -1 for session-level events.
	Slide  int
	Name   string
	Fields map[string]string
	At     time.Time
}

type SessionSummary struct {
	ID      string
	Started time.Time
	Events  int
}

type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// один писатель: sqlite не любит конкурентные транзакции
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", schema} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init journal: %w", err)
		}
	}
	return &Journal{db: db}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends an event. A zero At is set to now.
func (j *Journal) Record(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	var data sql.NullString
	if len(e.Fields) > 0 {
		raw, err := json.Marshal(e.Fields)
		if err != nil {
			return err
		}
		data = sql.NullString{String: string(raw), Valid: true}
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (session, slide, name, data, at) VALUES (?, ?, ?, ?, ?)`,
		e.Session, e.Slide, e.Name, data, e.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("record %s: %w", e.Name, err)
	}
	return nil
}

// Events returns the events of a session in recording order.
func (j *Journal) Events(ctx context.Context, session string) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, session, slide, name, data, at FROM events WHERE session = ? ORDER BY id`, session)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e    Event
			data sql.NullString
			at   int64
		)
		if err := rows.Scan(&e.ID, &e.Session, &e.Slide, &e.Name, &data, &at); err != nil {
			return nil, err
		}
		if data.Valid {
			if err := json.Unmarshal([]byte(data.String), &e.Fields); err != nil {
				return nil, fmt.Errorf("event %d: %w", e.ID, err)
			}
		}
		e.At = time.UnixMilli(at)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Sessions lists recorded sessions, most recent first.
func (j *Journal) Sessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT session, MIN(at), COUNT(*) FROM events
		GROUP BY session ORDER BY MIN(at) DESC, session LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			s  SessionSummary
			at int64
		)
		if err := rows.Scan(&s.ID, &at, &s.Events); err != nil {
			return nil, err
		}
		s.Started = time.UnixMilli(at)
		out = append(out, s)
	}
	return out, rows.Err()
}
