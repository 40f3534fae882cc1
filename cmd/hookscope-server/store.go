// Copyright 2026 The Hookscope Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"github.com/hookscope/hookscope/lib/clock"
	"github.com/hookscope/hookscope/lib/schema/hook"
	"github.com/hookscope/hookscope/lib/sqlitepool"
)

// maxRecentEvents bounds the limit of recent-event queries so a single
// request can never pull the whole table into memory.
const maxRecentEvents = 1000

// defaultRecentEvents is the limit applied when a recent-event query
// does not specify one.
const defaultRecentEvents = 100

// Store manages SQLite storage for hook events: a single append-only
// events table in a WAL-mode database.
//
// Write path: the ingest handler calls Insert for each valid event.
// The insert is a single atomic statement; the store assigns the id
// (monotonic rowid) and created_at, and returns the fully populated
// event.
//
// Read path: Recent, EventsForSession, and FilterOptions serve the
// query endpoints and the live-stream backlog. WAL journaling means
// these reads never block on an in-progress insert.
//
// Rows are immutable. Nothing in this service updates or deletes an
// event; resetting the database is an out-of-band operation (stop the
// server, remove the file).
type Store struct {
	pool   *sqlitepool.Pool
	clock  clock.Clock
	logger *slog.Logger
}

// StoreConfig holds the parameters for opening an event store.
type StoreConfig struct {
	// Path is the filesystem path to the SQLite database file. The
	// parent directory must exist.
	Path string

	// PoolSize is the number of connections in the pool. Zero picks
	// the pool default.
	PoolSize int

	// Clock provides the current time for created_at assignment.
	Clock clock.Clock

	// Logger receives operational messages.
	Logger *slog.Logger
}

// eventsSchema is created once per pooled connection via OnConnect.
// AUTOINCREMENT (rather than plain rowid reuse) makes ids strictly
// increasing for the lifetime of the database.
const eventsSchema = `
	CREATE TABLE IF NOT EXISTS events (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp       INTEGER NOT NULL,
		source_app      TEXT NOT NULL,
		session_id      TEXT NOT NULL,
		hook_event_type TEXT NOT NULL,
		payload         TEXT NOT NULL,
		ai_summary      TEXT,
		chat_transcript TEXT,
		created_at      INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, id);
	CREATE INDEX IF NOT EXISTS idx_events_source_app ON events(source_app);
	CREATE INDEX IF NOT EXISTS idx_events_type ON events(hook_event_type);
`

// OpenStore creates an event store backed by SQLite. The database file
// is created if it does not exist, and the schema is applied on first
// connection use.
func OpenStore(cfg StoreConfig) (*Store, error) {
	if cfg.Clock == nil {
		return nil, fmt.Errorf("event store: Clock is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("event store: Logger is required")
	}

	pool, err := sqlitepool.Open(sqlitepool.Config{
		Path:     cfg.Path,
		PoolSize: cfg.PoolSize,
		Logger:   cfg.Logger,
		OnConnect: func(conn *sqlite.Conn) error {
			return sqlitex.ExecuteScript(conn, eventsSchema, nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("event store: %w", err)
	}

	return &Store{
		pool:   pool,
		clock:  cfg.Clock,
		logger: cfg.Logger,
	}, nil
}

// Close closes the underlying connection pool. Blocks until all
// borrowed connections are returned.
func (s *Store) Close() error {
	return s.pool.Close()
}

// Insert persists one event, assigning its id and created_at, and
// returns the fully populated event. The insert is atomic: a reader
// never observes a partial row. A write failure is returned to the
// caller without retry — the ingest endpoint reports it as a storage
// error so the producer knows the event was not recorded.
func (s *Store) Insert(ctx context.Context, request hook.IngestRequest) (hook.Event, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return hook.Event{}, fmt.Errorf("event store: insert: %w", err)
	}
	defer s.pool.Put(conn)

	var aiSummary any
	if request.AISummary != "" {
		aiSummary = request.AISummary
	}
	var chatTranscript any
	if request.ChatTranscript != "" {
		chatTranscript = request.ChatTranscript
	}

	createdAt := s.clock.Now().UnixMilli()

	err = sqlitex.Execute(conn, `INSERT INTO events
		(timestamp, source_app, session_id, hook_event_type, payload,
		 ai_summary, chat_transcript, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, &sqlitex.ExecOptions{
		Args: []any{
			request.Timestamp,
			request.SourceApp,
			request.SessionID,
			request.HookEventType,
			string(request.Payload),
			aiSummary,
			chatTranscript,
			createdAt,
		},
	})
	if err != nil {
		return hook.Event{}, fmt.Errorf("event store: insert: %w", err)
	}

	return hook.Event{
		ID:             conn.LastInsertRowID(),
		Timestamp:      request.Timestamp,
		SourceApp:      request.SourceApp,
		SessionID:      request.SessionID,
		HookEventType:  request.HookEventType,
		Payload:        request.Payload,
		AISummary:      request.AISummary,
		ChatTranscript: request.ChatTranscript,
		CreatedAt:      createdAt,
	}, nil
}

// Recent returns the limit most recently inserted events in ascending
// id order (chronological display order). A non-positive limit uses
// the default; anything above maxRecentEvents is clamped.
func (s *Store) Recent(ctx context.Context, limit int) ([]hook.Event, error) {
	if limit <= 0 {
		limit = defaultRecentEvents
	}
	if limit > maxRecentEvents {
		limit = maxRecentEvents
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("event store: recent: %w", err)
	}
	defer s.pool.Put(conn)

	// Newest-first to apply the limit, then reversed so callers get
	// insertion order.
	var events []hook.Event
	err = sqlitex.Execute(conn, selectEventColumns+" ORDER BY id DESC LIMIT ?", &sqlitex.ExecOptions{
		Args: []any{limit},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			event, err := scanEvent(stmt)
			if err != nil {
				return err
			}
			events = append(events, event)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("event store: recent: %w", err)
	}

	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

// EventsForSession returns all events for one session in ascending id
// order.
func (s *Store) EventsForSession(ctx context.Context, sessionID string) ([]hook.Event, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("event store: session events: %w", err)
	}
	defer s.pool.Put(conn)

	var events []hook.Event
	err = sqlitex.Execute(conn, selectEventColumns+" WHERE session_id = ? ORDER BY id ASC", &sqlitex.ExecOptions{
		Args: []any{sessionID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			event, err := scanEvent(stmt)
			if err != nil {
				return err
			}
			events = append(events, event)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("event store: session events: %w", err)
	}
	return events, nil
}

// FilterOptions returns the distinct source apps and hook event types
// present in the store, each sorted ascending. Computed by a scan on
// every call — the dataset is small and the indexes make the DISTINCT
// cheap. Cache here if that ever stops being true.
func (s *Store) FilterOptions(ctx context.Context) (hook.FilterOptions, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return hook.FilterOptions{}, fmt.Errorf("event store: filter options: %w", err)
	}
	defer s.pool.Put(conn)

	options := hook.FilterOptions{
		Apps:       []string{},
		EventTypes: []string{},
	}

	err = sqlitex.Execute(conn, "SELECT DISTINCT source_app FROM events ORDER BY source_app", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			options.Apps = append(options.Apps, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return hook.FilterOptions{}, fmt.Errorf("event store: distinct apps: %w", err)
	}

	err = sqlitex.Execute(conn, "SELECT DISTINCT hook_event_type FROM events ORDER BY hook_event_type", &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			options.EventTypes = append(options.EventTypes, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return hook.FilterOptions{}, fmt.Errorf("event store: distinct event types: %w", err)
	}

	return options, nil
}

// Stats returns current storage statistics for the status endpoint.
func (s *Store) Stats(ctx context.Context) (hook.StorageStats, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return hook.StorageStats{}, fmt.Errorf("event store: stats: %w", err)
	}
	defer s.pool.Put(conn)

	var stats hook.StorageStats

	err = sqlitex.Execute(conn,
		"SELECT COUNT(*), COUNT(DISTINCT session_id) FROM events",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stats.EventCount = stmt.ColumnInt64(0)
				stats.SessionCount = stmt.ColumnInt64(1)
				return nil
			},
		})
	if err != nil {
		return stats, fmt.Errorf("event store: counting events: %w", err)
	}

	err = sqlitex.Execute(conn,
		"SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()",
		&sqlitex.ExecOptions{
			ResultFunc: func(stmt *sqlite.Stmt) error {
				stats.DatabaseSizeBytes = stmt.ColumnInt64(0)
				return nil
			},
		})
	if err != nil {
		return stats, fmt.Errorf("event store: database size: %w", err)
	}

	return stats, nil
}

const selectEventColumns = "SELECT id, timestamp, source_app, session_id, " +
	"hook_event_type, payload, ai_summary, chat_transcript, created_at FROM events"

func scanEvent(stmt *sqlite.Stmt) (hook.Event, error) {
	event := hook.Event{
		ID:            stmt.ColumnInt64(0),
		Timestamp:     stmt.ColumnInt64(1),
		SourceApp:     stmt.ColumnText(2),
		SessionID:     stmt.ColumnText(3),
		HookEventType: stmt.ColumnText(4),
		CreatedAt:     stmt.ColumnInt64(8),
	}

	payload := stmt.ColumnText(5)
	if !json.Valid([]byte(payload)) {
		return event, fmt.Errorf("event %d: stored payload is not valid JSON", event.ID)
	}
	event.Payload = json.RawMessage(payload)

	if !stmt.ColumnIsNull(6) {
		event.AISummary = stmt.ColumnText(6)
	}
	if !stmt.ColumnIsNull(7) {
		event.ChatTranscript = stmt.ColumnText(7)
	}

	return event, nil
}
