// Package store keeps a sqlite journal of rounds, shots and advice so past play
// can be reviewed and the probability estimates scored against what was fired.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"shellsense/internal/logging"

	_ "modernc.org/sqlite"
)

// Journal is a sqlite-backed round journal. It is safe for concurrent use.
type Journal struct {
	db     *sql.DB
	mu     sync.RWMutex
	dbPath string
}

// Open opens or creates the journal at path. ":memory:" gives a private in-memory journal.
func Open(path string) (*Journal, error) {
	log := logging.Get(logging.CategoryStore)
	log.Debugw("opening journal", "path", path)

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" coherent and serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Debugw("failed to set busy_timeout", "error", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		log.Debugw("failed to enable foreign keys", "error", err)
	}

	j := &Journal{db: db, dbPath: path}
	if err := j.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) initialize() error {
	roundsTable := `
	CREATE TABLE IF NOT EXISTS rounds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		live INTEGER NOT NULL,
		blank INTEGER NOT NULL,
		started_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_rounds_session ON rounds(session_id);
	`

	eventsTable := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		round_id INTEGER NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
		kind TEXT NOT NULL,
		position INTEGER NOT NULL DEFAULT 0,
		live INTEGER NOT NULL DEFAULT 0,
		probability REAL NOT NULL DEFAULT 0,
		detail TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_round ON events(round_id);
	CREATE INDEX IF NOT EXISTS idx_events_kind ON events(kind);
	`

	adviceTable := `
	CREATE TABLE IF NOT EXISTS advice (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		round_id INTEGER NOT NULL REFERENCES rounds(id) ON DELETE CASCADE,
		source TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_advice_round ON advice(round_id);
	`

	for _, table := range []string{roundsTable, eventsTable, adviceTable} {
		if _, err := j.db.Exec(table); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// Path returns the database path the journal was opened with.
func (j *Journal) Path() string { return j.dbPath }

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Event kinds written by the session layer.
const (
	KindFire   = "fire"
	KindEject  = "eject"
	KindReveal = "reveal"
	KindForget = "forget"
	KindItem   = "item"
	KindHealth = "health"
)

// Event is one journaled action within a round.
type Event struct {
	ID       int64
	RoundID  int64
	Kind     string
	Position int
	Live     bool
	// Probability is the live probability the tracker held just before the action.
	Probability float64
	Detail      string
	At          time.Time
}

// Advice sources.
const (
	SourceLocal  = "local"
	SourceRemote = "remote"
)

// Advice is one piece of journaled advice.
type Advice struct {
	ID       int64
	RoundID  int64
	Source   string // SourceLocal or SourceRemote
	Provider string
	Model    string
	Text     string
	At       time.Time
}

// Round summarises a journaled round.
type Round struct {
	ID        int64
	SessionID string
	Live      int
	Blank     int
	StartedAt time.Time
	Shots     int
	LiveShots int
	Advice    int
}

// StartRound records a new round and returns its id.
func (j *Journal) StartRound(ctx context.Context, sessionID string, live, blank int) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	res, err := j.db.ExecContext(ctx,
		"INSERT INTO rounds (session_id, live, blank, started_at) VALUES (?, ?, ?, ?)",
		sessionID, live, blank, time.Now().UnixMilli(),
	)
	if err != nil {
		logging.Get(logging.CategoryStore).Warnw("failed to start round", "session", sessionID, "error", err)
		return 0, fmt.Errorf("failed to start round: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read round id: %w", err)
	}
	logging.Get(logging.CategoryStore).Debugw("round journaled", "round", id, "live", live, "blank", blank)
	return id, nil
}

// RecordEvent appends e to its round.
func (j *Journal) RecordEvent(ctx context.Context, e Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	at := e.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO events (round_id, kind, position, live, probability, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.RoundID, e.Kind, e.Position, e.Live, e.Probability, e.Detail, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record %s event: %w", e.Kind, err)
	}
	return nil
}

// RecordAdvice appends a to its round.
func (j *Journal) RecordAdvice(ctx context.Context, a Advice) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	at := a.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO advice (round_id, source, provider, model, text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.RoundID, a.Source, a.Provider, a.Model, a.Text, at.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record advice: %w", err)
	}
	return nil
}

// RecentRounds returns up to limit rounds, newest first.
func (j *Journal) RecentRounds(ctx context.Context, limit int) ([]Round, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT r.id, r.session_id, r.live, r.blank, r.started_at,
		        (SELECT COUNT(*) FROM events e WHERE e.round_id = r.id AND e.kind = 'fire'),
		        (SELECT COUNT(*) FROM events e WHERE e.round_id = r.id AND e.kind = 'fire' AND e.live = 1),
		        (SELECT COUNT(*) FROM advice a WHERE a.round_id = r.id)
		 FROM rounds r
		 ORDER BY r.id DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var out []Round
	for rows.Next() {
		var r Round
		var started int64
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Live, &r.Blank, &started, &r.Shots, &r.LiveShots, &r.Advice); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Events returns the events of one round in the order they happened.
func (j *Journal) Events(ctx context.Context, roundID int64) ([]Event, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	rows, err := j.db.QueryContext(ctx,
		`SELECT id, round_id, kind, position, live, probability, detail, created_at
		 FROM events WHERE round_id = ? ORDER BY id`, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var at int64
		if err := rows.Scan(&e.ID, &e.RoundID, &e.Kind, &e.Position, &e.Live, &e.Probability, &e.Detail, &at); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.At = time.UnixMilli(at)
		out = append(out, e)
	}
	return out, rows.Err()
}
