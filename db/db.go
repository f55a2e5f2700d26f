// --- medprep-server/db/db.go ---
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"medprep-server/logger"
)

// InitDB initializes the PostgreSQL database connection pool
func InitDB(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Ping the database to verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// CreateSchema sets up the tables used by the postgres state backend and the audit log.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	schemaSQL := `
	CREATE TABLE IF NOT EXISTS client_state (
		key VARCHAR(255) PRIMARY KEY,
		value JSONB NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		expires_at TIMESTAMP WITH TIME ZONE
	);

	ALTER TABLE client_state ADD COLUMN IF NOT EXISTS expires_at TIMESTAMP WITH TIME ZONE;

	CREATE TABLE IF NOT EXISTS session_events (
		id SERIAL PRIMARY KEY,
		timestamp TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
		user_id VARCHAR(255) NOT NULL,
		action VARCHAR(255) NOT NULL,
		target TEXT,       -- session id, user id
		notes TEXT
	);

	CREATE INDEX IF NOT EXISTS session_events_user_idx ON session_events (user_id, timestamp DESC);
	`
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}
	return nil
}

// SessionEvent is a row of the session_events table
type SessionEvent struct {
	ID        int       `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Notes     string    `json:"notes"`
}

// EventLog writes session events. A nil pool turns it into a no-op.
type EventLog struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

func NewEventLog(pool *pgxpool.Pool, log *logger.Logger) *EventLog {
	return &EventLog{pool: pool, log: log}
}

// LogSessionEvent adds an entry to the session_events table
func (e *EventLog) LogSessionEvent(ctx context.Context, userID, action, target, notes string) {
	if e == nil || e.pool == nil {
		return
	}
	_, err := e.pool.Exec(ctx, `
		INSERT INTO session_events (user_id, action, target, notes)
		VALUES ($1, $2, $3, $4)
	`, userID, action, target, notes)
	if err != nil {
		e.log.Warn("failed to log session event", "action", action, "target", target, "error", err)
	}
}

// RecentSessionEvents returns the latest events, newest first.
func (e *EventLog) RecentSessionEvents(ctx context.Context, limit int) ([]SessionEvent, error) {
	if e == nil || e.pool == nil {
		return []SessionEvent{}, nil
	}
	rows, err := e.pool.Query(ctx, `
		SELECT id, timestamp, user_id, action, COALESCE(target, ''), COALESCE(notes, '')
		FROM session_events
		ORDER BY timestamp DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query session events: %w", err)
	}
	defer rows.Close()

	events := []SessionEvent{}
	for rows.Next() {
		var ev SessionEvent
		if err := rows.Scan(&ev.ID, &ev.Timestamp, &ev.UserID, &ev.Action, &ev.Target, &ev.Notes); err != nil {
			return nil, fmt.Errorf("scan session event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
