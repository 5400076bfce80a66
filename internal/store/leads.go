package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lukasbauer/hypoteka/internal/crm"
)

// Lead submission statuses.
const (
	LeadStatusSubmitted = "submitted"
	LeadStatusFailed    = "failed"
)

// LeadSubmission is the stored outcome of submitting one lead.
type LeadSubmission struct {
	Lead         crm.Lead   `json:"lead"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	LastError    *string    `json:"last_error,omitempty"`
	CRMLeadID    *string    `json:"crm_lead_id,omitempty"`
	CRMContactID *string    `json:"crm_contact_id,omitempty"`
	CRMDealID    *string    `json:"crm_deal_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// RecordLeadSubmission stores one attempt. Every call counts as an attempt;
// a success clears the last error.
func (s *Store) RecordLeadSubmission(ctx context.Context, lead crm.Lead, res crm.Result, submitErr error) error {
	payload, err := json.Marshal(lead)
	if err != nil {
		return fmt.Errorf("encode lead: %w", err)
	}

	status := LeadStatusSubmitted
	var lastErr *string
	var submittedAt *time.Time
	if submitErr != nil {
		status = LeadStatusFailed
		msg := submitErr.Error()
		lastErr = &msg
	} else {
		now := time.Now()
		submittedAt = &now
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO lead_submissions (id, session_id, tenant_id, payload, status, attempts, last_error,
		                              crm_lead_id, crm_contact_id, crm_deal_id, submitted_at)
		VALUES ($1, $2, $3, $4, $5, 1, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			attempts = lead_submissions.attempts + 1,
			last_error = EXCLUDED.last_error,
			crm_lead_id = COALESCE(EXCLUDED.crm_lead_id, lead_submissions.crm_lead_id),
			crm_contact_id = COALESCE(EXCLUDED.crm_contact_id, lead_submissions.crm_contact_id),
			crm_deal_id = COALESCE(EXCLUDED.crm_deal_id, lead_submissions.crm_deal_id),
			submitted_at = COALESCE(EXCLUDED.submitted_at, lead_submissions.submitted_at),
			updated_at = NOW()
	`, lead.ID, lead.SessionID, lead.TenantID, payload, status, lastErr,
		nullable(res.LeadID), nullable(res.ContactID), nullable(res.DealID), submittedAt)
	return err
}

// ListFailedLeads returns failed submissions with fewer than maxAttempts
// attempts, oldest update first. maxAttempts <= 0 returns all of them.
func (s *Store) ListFailedLeads(ctx context.Context, maxAttempts, limit int) ([]LeadSubmission, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(ctx, `
		SELECT payload, status, attempts, last_error, crm_lead_id, crm_contact_id, crm_deal_id,
		       created_at, updated_at, submitted_at
		FROM lead_submissions
		WHERE status = $1 AND ($2 <= 0 OR attempts < $2)
		ORDER BY updated_at ASC
		LIMIT $3
	`, LeadStatusFailed, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []LeadSubmission
	for rows.Next() {
		var ls LeadSubmission
		var payload []byte
		if err := rows.Scan(&payload, &ls.Status, &ls.Attempts, &ls.LastError, &ls.CRMLeadID, &ls.CRMContactID,
			&ls.CRMDealID, &ls.CreatedAt, &ls.UpdatedAt, &ls.SubmittedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &ls.Lead); err != nil {
			return nil, fmt.Errorf("decode lead payload: %w", err)
		}
		out = append(out, ls)
	}
	return out, rows.Err()
}

// LeadStatusOf returns the submission status and attempt count of a lead.
func (s *Store) LeadStatusOf(ctx context.Context, leadID string) (string, int, error) {
	var status string
	var attempts int
	err := s.db.QueryRow(ctx, `
		SELECT status, attempts FROM lead_submissions WHERE id = $1
	`, leadID).Scan(&status, &attempts)
	return status, attempts, err
}
