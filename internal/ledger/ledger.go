// Package ledger provides an append-only history of action runs.
// It is an observer outside the scheduler; nothing in the control loop reads it.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event in the ledger
type EventType string

const (
	EventActionStarted     EventType = "action_started"
	EventActionFinished    EventType = "action_finished"
	EventActionInterrupted EventType = "action_interrupted"
	EventActionFaulted     EventType = "action_faulted"
	EventModeChanged       EventType = "mode_changed"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID        int64
	EventType EventType
	Timestamp time.Time
	RunID     string
	Action    string
	Period    uint64
	Payload   map[string]any
}

// Ledger provides append-only action run logging
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append adds a new event to the ledger
func (l *Ledger) Append(e Entry) error {
	var payloadJSON []byte
	var err error

	if e.Payload != nil {
		payloadJSON, err = json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = l.db.Exec(
		`INSERT INTO action_ledger (event_type, timestamp, run_id, action, period, payload) VALUES (?, ?, ?, ?, ?, ?)`,
		string(e.EventType), ts.UTC().UnixMilli(), e.RunID, e.Action, int64(e.Period), string(payloadJSON),
	)
	return err
}

// Recent returns the most recent entries, newest first
func (l *Ledger) Recent(limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, run_id, action, period, payload
		FROM action_ledger
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// ByRun returns all entries for one run, oldest first
func (l *Ledger) ByRun(runID string) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, run_id, action, period, payload
		FROM action_ledger
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// GetByType returns entries filtered by event type, newest first
func (l *Ledger) GetByType(eventType EventType, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, run_id, action, period, payload
		FROM action_ledger
		WHERE event_type = ?
		ORDER BY id DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).UTC().UnixMilli()
	result, err := l.db.Exec(`DELETE FROM action_ledger WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr sql.NullString
		var timestamp, period int64

		err := rows.Scan(
			&entry.ID, &entry.EventType, &timestamp, &entry.RunID, &entry.Action, &period, &payloadStr,
		)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.UnixMilli(timestamp).UTC()
		entry.Period = uint64(period)

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
