package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/lukasbauer/hypoteka/internal/engine"
	"github.com/lukasbauer/hypoteka/internal/profile"
	"github.com/lukasbauer/hypoteka/internal/state"
)

// LoadSession returns engine.ErrSessionNotFound for an unknown id.
func (s *Store) LoadSession(ctx context.Context, id string) (engine.Session, error) {
	var (
		out         engine.Session
		profileJSON []byte
		stateJSON   []byte
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, tenant_id, profile, state, created_at, updated_at
		FROM sessions
		WHERE id = $1
	`, id).Scan(&out.ID, &out.TenantID, &profileJSON, &stateJSON, &out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.Session{}, engine.ErrSessionNotFound
	}
	if err != nil {
		return engine.Session{}, err
	}

	out.Profile = profile.Profile{}
	if len(profileJSON) > 0 {
		if err := json.Unmarshal(profileJSON, &out.Profile); err != nil {
			return engine.Session{}, fmt.Errorf("decode profile of session %s: %w", id, err)
		}
	}
	out.State = state.New()
	if len(stateJSON) > 0 {
		if err := json.Unmarshal(stateJSON, out.State); err != nil {
			return engine.Session{}, fmt.Errorf("decode state of session %s: %w", id, err)
		}
	}
	return out, nil
}

// SaveSession upserts the session. created_at is kept from the first save.
func (s *Store) SaveSession(ctx context.Context, sess engine.Session) error {
	profileJSON, err := json.Marshal(sess.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	stateJSON, err := json.Marshal(sess.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	createdAt := sess.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	updatedAt := sess.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO sessions (id, tenant_id, profile, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			profile = EXCLUDED.profile,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at
	`, sess.ID, sess.TenantID, profileJSON, stateJSON, createdAt, updatedAt)
	return err
}

// SessionListItem is one row of the admin session list.
type SessionListItem struct {
	ID           string    `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Phase        string    `json:"phase"`
	Persona      string    `json:"persona"`
	LeadScore    int       `json:"lead_score"`
	Temperature  string    `json:"temperature"`
	LeadCaptured bool      `json:"lead_captured"`
	TurnCount    int       `json:"turn_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListSessions returns the most recently updated sessions. An empty tenantID
// lists all tenants.
func (s *Store) ListSessions(ctx context.Context, tenantID string, limit int) ([]SessionListItem, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, tenant_id,
		       COALESCE(state->>'phase', ''),
		       COALESCE(state->>'persona', ''),
		       COALESCE((state->>'leadScore')::int, 0),
		       COALESCE(state->>'temperature', ''),
		       COALESCE((state->>'leadCaptured')::boolean, false),
		       COALESCE((state->>'turnCount')::int, 0),
		       created_at, updated_at
		FROM sessions
		WHERE $1 = '' OR tenant_id = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SessionListItem
	for rows.Next() {
		var item SessionListItem
		if err := rows.Scan(&item.ID, &item.TenantID, &item.Phase, &item.Persona, &item.LeadScore,
			&item.Temperature, &item.LeadCaptured, &item.TurnCount, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}
