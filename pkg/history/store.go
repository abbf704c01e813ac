package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sp1d3rx/atui/pkg/logging"
	"github.com/sp1d3rx/atui/pkg/session"

	_ "modernc.org/sqlite"
)

// Sentinel error for a store that cannot be reached; callers degrade to
// memory-only operation instead of blocking the UI.
var ErrPersistence = errors.New("history store unavailable")

// Store persists forward sessions and their transition audit trail in SQLite.
// It keeps one row per (instance_id, forward_name) in forward_sessions and an
// append-only forward_events table, which together survive restarts and feed
// startup reconciliation.
type Store struct {
	db     *sql.DB
	dbPath string
	mutex  sync.Mutex
}

// DefaultPath returns ~/.atui/history.db.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".atui", "history.db"), nil
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("%w: creating directory: %v", ErrPersistence, err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", ErrPersistence, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: pinging database: %v", ErrPersistence, err)
	}

	store := &Store{db: db, dbPath: path}
	if err := store.initializeSchema(); err != nil {
		db.Close()
		return nil, err
	}

	logging.LogDebug("History store initialized at: %s", path)
	return store, nil
}

func (s *Store) initializeSchema() error {
	schema := `
	-- latest record per forward key
	CREATE TABLE IF NOT EXISTS forward_sessions (
		instance_id  TEXT NOT NULL,
		forward_name TEXT NOT NULL,
		remote_port  INTEGER NOT NULL,
		local_port   INTEGER NOT NULL,
		remote_host  TEXT NOT NULL DEFAULT '',
		state        TEXT NOT NULL,
		started_at   TEXT,
		ended_at     TEXT,
		command      TEXT NOT NULL DEFAULT '',
		reason       TEXT NOT NULL DEFAULT '',
		updated_at   TEXT NOT NULL,
		PRIMARY KEY (instance_id, forward_name)
	);

	-- append-only transition audit trail
	CREATE TABLE IF NOT EXISTS forward_events (
		event_id     TEXT PRIMARY KEY,
		instance_id  TEXT NOT NULL,
		forward_name TEXT NOT NULL,
		from_state   TEXT NOT NULL,
		to_state     TEXT NOT NULL,
		occurred_at  TEXT NOT NULL,
		reason       TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_forward_sessions_updated
		ON forward_sessions(instance_id, updated_at DESC);
	CREATE INDEX IF NOT EXISTS idx_forward_events_key
		ON forward_events(instance_id, forward_name, occurred_at DESC);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("%w: initializing schema: %v", ErrPersistence, err)
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file location, for display.
func (s *Store) Path() string {
	return s.dbPath
}

// Upsert replaces or inserts the latest record for the session's key.
func (s *Store) Upsert(sess session.ForwardSession) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO forward_sessions
			(instance_id, forward_name, remote_port, local_port, remote_host,
			 state, started_at, ended_at, command, reason, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (instance_id, forward_name) DO UPDATE SET
			remote_port = excluded.remote_port,
			local_port  = excluded.local_port,
			remote_host = excluded.remote_host,
			state       = excluded.state,
			started_at  = excluded.started_at,
			ended_at    = excluded.ended_at,
			command     = excluded.command,
			reason      = excluded.reason,
			updated_at  = excluded.updated_at
	`

	_, err := s.db.Exec(query,
		sess.Spec.InstanceID,
		sess.Spec.Name,
		sess.Spec.RemotePort,
		sess.Spec.LocalPort,
		sess.Spec.RemoteHost,
		string(sess.State),
		encodeTime(sess.StartedAt),
		encodeTimePtr(sess.EndedAt),
		sess.Command,
		sess.Reason,
		encodeTime(time.Now().UTC()),
	)
	if err != nil {
		return fmt.Errorf("%w: upserting session %s: %v", ErrPersistence, sess.Key(), err)
	}
	return nil
}

// LoadAll returns the current record per key, newest transition first. An
// empty instanceID returns every instance's records.
func (s *Store) LoadAll(instanceID string) ([]session.ForwardSession, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		SELECT instance_id, forward_name, remote_port, local_port, remote_host,
		       state, started_at, ended_at, command, reason
		FROM forward_sessions
	`
	var args []any
	if instanceID != "" {
		query += " WHERE instance_id = ?"
		args = append(args, instanceID)
	}
	query += " ORDER BY updated_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying sessions: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var sessions []session.ForwardSession
	for rows.Next() {
		var sess session.ForwardSession
		var state, startedAt string
		var endedAt sql.NullString
		err := rows.Scan(
			&sess.Spec.InstanceID,
			&sess.Spec.Name,
			&sess.Spec.RemotePort,
			&sess.Spec.LocalPort,
			&sess.Spec.RemoteHost,
			&state,
			&startedAt,
			&endedAt,
			&sess.Command,
			&sess.Reason,
		)
		if err != nil {
			logging.LogError("Failed to scan session row: %v", err)
			continue
		}
		sess.State = session.State(state)
		sess.StartedAt = decodeTime(startedAt)
		if endedAt.Valid && endedAt.String != "" {
			ended := decodeTime(endedAt.String)
			sess.EndedAt = &ended
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading sessions: %v", ErrPersistence, err)
	}
	return sessions, nil
}

// AppendEvent records one transition in the audit trail. Rows are never
// updated or deleted except by Prune.
func (s *Store) AppendEvent(change session.Change) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO forward_events
			(event_id, instance_id, forward_name, from_state, to_state, occurred_at, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.Exec(query,
		uuid.NewString(),
		change.Key.InstanceID,
		change.Key.Name,
		string(change.From),
		string(change.To),
		encodeTime(change.At.UTC()),
		change.Reason,
	)
	if err != nil {
		return fmt.Errorf("%w: appending event for %s: %v", ErrPersistence, change.Key, err)
	}
	return nil
}

// Event is one audit row read back for display.
type Event struct {
	ID     string
	Key    session.Key
	From   session.State
	To     session.State
	At     time.Time
	Reason string
}

// Events returns the newest audit rows for one instance (or all instances
// when instanceID is empty), capped at limit when limit > 0.
func (s *Store) Events(instanceID string, limit int) ([]Event, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		SELECT event_id, instance_id, forward_name, from_state, to_state, occurred_at, reason
		FROM forward_events
	`
	var args []any
	if instanceID != "" {
		query += " WHERE instance_id = ?"
		args = append(args, instanceID)
	}
	query += " ORDER BY occurred_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: querying events: %v", ErrPersistence, err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		var from, to, at string
		if err := rows.Scan(&ev.ID, &ev.Key.InstanceID, &ev.Key.Name, &from, &to, &at, &ev.Reason); err != nil {
			logging.LogError("Failed to scan event row: %v", err)
			continue
		}
		ev.From = session.State(from)
		ev.To = session.State(to)
		ev.At = decodeTime(at)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading events: %v", ErrPersistence, err)
	}
	return events, nil
}

// Prune removes audit events older than cutoff, plus session rows in a
// terminal state that have not transitioned since cutoff. Active rows are
// never pruned.
func (s *Store) Prune(cutoff time.Time) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("%w: starting prune transaction: %v", ErrPersistence, err)
	}
	defer tx.Rollback()

	encoded := encodeTime(cutoff.UTC())

	eventsResult, err := tx.Exec("DELETE FROM forward_events WHERE occurred_at < ?", encoded)
	if err != nil {
		return 0, fmt.Errorf("%w: pruning events: %v", ErrPersistence, err)
	}
	sessionsResult, err := tx.Exec(
		"DELETE FROM forward_sessions WHERE state != ? AND updated_at < ?",
		string(session.StateActive), encoded,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: pruning sessions: %v", ErrPersistence, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: committing prune: %v", ErrPersistence, err)
	}

	eventsPruned, _ := eventsResult.RowsAffected()
	sessionsPruned, _ := sessionsResult.RowsAffected()
	logging.LogDebug("Pruned %d events and %d sessions before %s", eventsPruned, sessionsPruned, encoded)
	return eventsPruned + sessionsPruned, nil
}

func encodeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func encodeTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return encodeTime(*t)
}

func decodeTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
