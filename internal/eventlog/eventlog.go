// Package eventlog stores the per-session audit trail in session_events.
package eventlog

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

type EventType string

const (
	EventTurnProcessed     EventType = "turn_processed"
	EventPhaseChanged      EventType = "phase_changed"
	EventPersonaChanged    EventType = "persona_changed"
	EventTemperatureRaised EventType = "temperature_raised"
	EventLeadCaptured      EventType = "lead_captured"
	EventLeadSubmitted     EventType = "lead_submitted"
	EventLeadFailed        EventType = "lead_failed"
	EventLeadRetried       EventType = "lead_retried"
	EventLimitsFallback    EventType = "limits_fallback"
	EventFragmentsFallback EventType = "fragments_fallback"
)

const asyncWriteTimeout = 2 * time.Second

// Execer is satisfied by *pgxpool.Pool and pgx.Tx.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Logger struct {
	db      Execer
	pending sync.WaitGroup
}

// New returns a logger writing to db. A nil db turns every call into a no-op.
func New(db Execer) *Logger {
	return &Logger{db: db}
}

func (l *Logger) enabled(sessionID string) bool {
	return l != nil && l.db != nil && sessionID != ""
}

// Log writes one event. Events without a session are dropped.
func (l *Logger) Log(ctx context.Context, sessionID string, eventType EventType, data map[string]any) error {
	if !l.enabled(sessionID) {
		return nil
	}
	payload, err := json.Marshal(data)
	if err != nil || data == nil {
		payload = []byte("{}")
	}
	_, err = l.db.Exec(ctx,
		`INSERT INTO session_events (session_id, event_type, event_data) VALUES ($1, $2, $3)`,
		sessionID, string(eventType), payload)
	return err
}

// LogAsync writes the event in the background; failures are ignored.
func (l *Logger) LogAsync(sessionID string, eventType EventType, data map[string]any) {
	if !l.enabled(sessionID) {
		return
	}
	l.pending.Add(1)
	go func() {
		defer l.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), asyncWriteTimeout)
		defer cancel()
		_ = l.Log(ctx, sessionID, eventType, data)
	}()
}

// Wait blocks until background writes started by LogAsync finish.
func (l *Logger) Wait() {
	if l != nil {
		l.pending.Wait()
	}
}
