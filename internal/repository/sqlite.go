package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/infernodragon456/travel-chat-app/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS turns (
			turn_id TEXT PRIMARY KEY,
			locale TEXT NOT NULL,
			status TEXT NOT NULL,
			started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			ended_at DATETIME,
			error TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_started ON turns(started_at)`,
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			turn_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (turn_id) REFERENCES turns(turn_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_turn ON events(turn_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateTurn records the start of a turn.
func (s *SQLiteStore) CreateTurn(ctx context.Context, turn *domain.Turn) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turns (turn_id, locale, status, started_at) VALUES (?, ?, ?, ?)`,
		turn.TurnID, turn.Locale, turn.Status, turn.StartedAt)
	return err
}

// GetTurn retrieves a turn by ID. A missing turn returns nil, nil.
func (s *SQLiteStore) GetTurn(ctx context.Context, turnID string) (*domain.Turn, error) {
	var turn domain.Turn
	var errData sql.NullString
	var endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx,
		`SELECT turn_id, locale, status, started_at, ended_at, error FROM turns WHERE turn_id = ?`,
		turnID).Scan(&turn.TurnID, &turn.Locale, &turn.Status, &turn.StartedAt, &endedAt, &errData)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if endedAt.Valid {
		turn.EndedAt = &endedAt.Time
	}
	if errData.Valid {
		turn.Error = json.RawMessage(errData.String)
	}
	return &turn, nil
}

// UpdateTurnCompleted moves a turn to a terminal state.
func (s *SQLiteStore) UpdateTurnCompleted(ctx context.Context, turnID string, status domain.TurnStatus, errData []byte) error {
	now := time.Now()
	var errStr sql.NullString
	if errData != nil {
		errStr = sql.NullString{String: string(errData), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE turns SET status = ?, ended_at = ?, error = ? WHERE turn_id = ?`,
		status, now, errStr, turnID)
	return err
}

// CreateEvent creates a new event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	payload := ""
	if event.Payload != nil {
		payload = string(event.Payload)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events (event_id, turn_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.TurnID, event.Ts, event.Type, payload)
	return err
}

// GetEvents retrieves events for a turn in insertion order.
func (s *SQLiteStore) GetEvents(ctx context.Context, turnID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	query := `SELECT event_id, turn_id, ts, type, payload FROM events WHERE turn_id = ?`
	args := []any{turnID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.TurnID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid && payload.String != "" {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
