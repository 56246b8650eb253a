package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema
const eventSchema = `
CREATE TABLE IF NOT EXISTS event_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	payload_json  TEXT,
	created_at    TEXT NOT NULL
);
`

// #endregion schema

// #region sqlite-sink
// SQLiteSink writes events to the event_log table.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink creates the event_log table if needed.
func NewSQLiteSink(db *sql.DB) (*SQLiteSink, error) {
	if _, err := db.Exec(eventSchema); err != nil {
		return nil, fmt.Errorf("migrate event_log: %w", err)
	}
	return &SQLiteSink{db: db}, nil
}

// WriteEvent inserts one event row.
func (s *SQLiteSink) WriteEvent(e Event) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO event_log (name, payload_json, created_at) VALUES (?, ?, ?)`,
		e.Name,
		nullIfEmpty(string(e.Payload)),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log event: %w", err)
	}
	return nil
}

// RecentEvents returns the newest events first.
func (s *SQLiteSink) RecentEvents(limit int) ([]Event, error) {
	rows, err := s.db.Query(
		`SELECT name, payload_json, created_at FROM event_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var payload sql.NullString
		var createdStr string
		if err := rows.Scan(&e.Name, &payload, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if payload.Valid {
			e.Payload = []byte(payload.String)
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		events = append(events, e)
	}
	return events, rows.Err()
}

// #endregion sqlite-sink

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
